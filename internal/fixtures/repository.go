// Package fixtures serves the club's scheduled games: the read-only
// reference data a match is opened against.
package fixtures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pitchside/matchday/internal/models"
)

// ErrNotFound is returned for an unknown fixture.
var ErrNotFound = errors.New("fixture not found")

// Repository is the fixtures storage seam.
type Repository interface {
	ListFixtures(ctx context.Context) ([]models.Fixture, error)
	GetFixture(ctx context.Context, id uuid.UUID) (*models.Fixture, error)
}

// PostgresRepository reads fixtures from Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a fixtures repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListFixtures(ctx context.Context) ([]models.Fixture, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, opponent, home_away, venue, date, time
		FROM fixtures ORDER BY date, time`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []models.Fixture
	for rows.Next() {
		var f models.Fixture
		if err := rows.Scan(&f.ID, &f.Opponent, &f.HomeAway, &f.Venue, &f.Date, &f.Time); err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, rows.Err()
}

func (r *PostgresRepository) GetFixture(ctx context.Context, id uuid.UUID) (*models.Fixture, error) {
	var f models.Fixture
	err := r.db.QueryRowContext(ctx, `
		SELECT id, opponent, home_away, venue, date, time
		FROM fixtures WHERE id = $1`, id,
	).Scan(&f.ID, &f.Opponent, &f.HomeAway, &f.Venue, &f.Date, &f.Time)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture: %w", err)
	}
	return &f, nil
}

// MemoryRepository holds fixtures in memory for tests and dev.
type MemoryRepository struct {
	mu       sync.RWMutex
	fixtures map[uuid.UUID]models.Fixture
}

// NewMemoryRepository creates a repository seeded with the given fixtures.
func NewMemoryRepository(seed ...models.Fixture) *MemoryRepository {
	r := &MemoryRepository{fixtures: make(map[uuid.UUID]models.Fixture)}
	for _, f := range seed {
		r.fixtures[f.ID] = f
	}
	return r
}

func (r *MemoryRepository) ListFixtures(_ context.Context) ([]models.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Fixture, 0, len(r.fixtures))
	for _, f := range r.fixtures {
		out = append(out, f)
	}
	return out, nil
}

func (r *MemoryRepository) GetFixture(_ context.Context, id uuid.UUID) (*models.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fixtures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}
