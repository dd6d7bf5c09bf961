package match

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/matchday/internal/models"
)

// MemoryRepository is the in-memory counterpart to the Postgres repository,
// used by tests and single-node development. Reads hand out deep clones so
// two tallies of an unchanged match are identical and callers can never
// mutate shared state.
type MemoryRepository struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]*models.Match
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		matches: make(map[uuid.UUID]*models.Match),
	}
}

func (r *MemoryRepository) CreateMatch(_ context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[match.ID] = match.Clone()
	return nil
}

func (r *MemoryRepository) GetMatch(_ context.Context, id uuid.UUID) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return match.Clone(), nil
}

func (r *MemoryRepository) GetOpenMatchByFixture(_ context.Context, fixtureID uuid.UUID) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, match := range r.matches {
		if match.FixtureID == fixtureID && !match.Closed {
			return match.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) AppendEvent(_ context.Context, matchID uuid.UUID, event models.MatchEvent, homeScore, awayScore int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[matchID]
	if !ok {
		return ErrNotFound
	}
	if match.Closed {
		return ErrMatchClosed
	}
	match.Timeline = append(match.Timeline, event)
	match.HomeScore = homeScore
	match.AwayScore = awayScore
	match.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryRepository) CloseMatch(_ context.Context, id uuid.UUID, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return ErrNotFound
	}
	match.Closed = true
	match.UpdatedAt = updatedAt
	return nil
}
