package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pitchside/matchday/internal/models"
	"github.com/pitchside/matchday/internal/sqlutil"
)

// Repository implementation on Postgres via database/sql. The timeline is
// read back ORDER BY seq, which is what makes insertion order a guarantee
// downstream view models may rely on. Event appends and their outbox rows
// commit in one transaction; the outbox relay picks them up via NOTIFY.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a match repository over an open database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateMatch inserts a new match with an empty timeline. The partial unique
// index on open fixtures backstops the app-layer check: two concurrent opens
// that both pass it still resolve to one winner and one ErrMatchAlreadyOpen.
func (r *PostgresRepository) CreateMatch(ctx context.Context, match *models.Match) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matches (id, fixture_id, title, home, away, kickoff_ts, home_score, away_score, closed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, FALSE, $7)`,
		match.ID, match.FixtureID, match.Title, match.Home, match.Away, match.KickoffTS, match.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrMatchAlreadyOpen
	}
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// GetMatch loads a match and its full timeline in append order.
func (r *PostgresRepository) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, fixture_id, title, home, away, kickoff_ts, home_score, away_score, closed, updated_at
		FROM matches WHERE id = $1`, id,
	).Scan(&match.ID, &match.FixtureID, &match.Title, &match.Home, &match.Away,
		&match.KickoffTS, &match.HomeScore, &match.AwayScore, &match.Closed, &match.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	timeline, err := r.loadTimeline(ctx, id)
	if err != nil {
		return nil, err
	}
	match.Timeline = timeline
	return match, nil
}

// GetOpenMatchByFixture returns the open (not closed) match for a fixture,
// or ErrNotFound.
func (r *PostgresRepository) GetOpenMatchByFixture(ctx context.Context, fixtureID uuid.UUID) (*models.Match, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM matches WHERE fixture_id = $1 AND closed = FALSE`, fixtureID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up open match: %w", err)
	}
	return r.GetMatch(ctx, id)
}

// txQueries binds the append-event statements to one transaction.
type txQueries struct {
	tx *sql.Tx
}

func newTxQueries(tx *sql.Tx) *txQueries {
	return &txQueries{tx: tx}
}

// AppendEvent writes the event, the updated score, and the outbox row in a
// single transaction, then notifies the outbox relay.
func (r *PostgresRepository) AppendEvent(ctx context.Context, matchID uuid.UUID, event models.MatchEvent, homeScore, awayScore int, updatedAt time.Time) error {
	return sqlutil.Run(ctx, r.db, newTxQueries, func(q *txQueries) error {
		_, err := q.tx.ExecContext(ctx, `
			INSERT INTO match_events (id, match_id, ts, type, minute, payload)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			event.ID, matchID, event.TS, event.Type,
			sqlutil.ToSqlInt32(event.Minute), sqlutil.ToNullRawMessage(event.Payload),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}

		res, err := q.tx.ExecContext(ctx, `
			UPDATE matches SET home_score = $2, away_score = $3, updated_at = $4
			WHERE id = $1 AND closed = FALSE`,
			matchID, homeScore, awayScore, updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update match: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// The match closed between the app-layer check and this write.
			return ErrMatchClosed
		}

		envelope, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}
		outboxID := uuid.New()
		_, err = q.tx.ExecContext(ctx, `
			INSERT INTO match_outbox (id, event_id, match_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			outboxID, event.ID, matchID, event.Type, envelope, updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outbox row: %w", err)
		}

		if _, err := q.tx.ExecContext(ctx, `SELECT pg_notify('match_outbox_events', $1)`, outboxID.String()); err != nil {
			return fmt.Errorf("failed to notify outbox: %w", err)
		}
		return nil
	})
}

// CloseMatch marks the match closed.
func (r *PostgresRepository) CloseMatch(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches SET closed = TRUE, updated_at = $2 WHERE id = $1`,
		id, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to close match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) loadTimeline(ctx context.Context, matchID uuid.UUID) ([]models.MatchEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts, type, minute, payload
		FROM match_events WHERE match_id = $1 ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	timeline := []models.MatchEvent{}
	for rows.Next() {
		var (
			ev      models.MatchEvent
			minute  sql.NullInt32
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.TS, &ev.Type, &minute, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Minute = sqlutil.FromSqlInt32(minute)
		if payload != nil {
			ev.Payload = json.RawMessage(payload)
		}
		timeline = append(timeline, ev)
	}
	return timeline, rows.Err()
}
