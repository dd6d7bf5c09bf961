package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository reads and marks rows in the match_outbox table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an outbox repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchByID loads one outbox row, published or not.
func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, match_id, event_type, payload, created_at
		FROM match_outbox WHERE id = $1`, id)
	return scanEvent(row)
}

// FetchUnpublished returns up to limit unpublished rows, oldest first.
func (r *Repository) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, match_id, event_type, payload, created_at
		FROM match_outbox WHERE published_at IS NULL
		ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unpublished outbox rows: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// MarkPublished stamps the row as relayed.
func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE match_outbox SET published_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox row published: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*OutboxEvent, error) {
	var ev OutboxEvent
	err := row.Scan(&ev.ID, &ev.EventID, &ev.MatchID, &ev.EventType, &ev.Payload, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outbox row not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox row: %w", err)
	}
	return &ev, nil
}
