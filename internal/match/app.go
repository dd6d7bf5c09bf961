// Package match holds the authoritative match resource: the domain rules
// behind open/record/tally/close and their persistence seam.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/matchday/internal/models"
)

// Sentinel errors the transport layer maps onto response envelopes.
var (
	ErrNotFound         = errors.New("match not found")
	ErrMatchClosed      = errors.New("match is closed")
	ErrMatchAlreadyOpen = errors.New("a match is already open for this fixture")
)

// Repository defines what the app layer needs from the storage layer.
// GetMatch returns a full snapshot with the timeline in append order.
type Repository interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	GetOpenMatchByFixture(ctx context.Context, fixtureID uuid.UUID) (*models.Match, error)
	AppendEvent(ctx context.Context, matchID uuid.UUID, event models.MatchEvent, homeScore, awayScore int, updatedAt time.Time) error
	CloseMatch(ctx context.Context, id uuid.UUID, updatedAt time.Time) error
}

// OpenMatchRequest carries everything needed to create a match resource.
type OpenMatchRequest struct {
	FixtureID uuid.UUID `json:"fixture_id"`
	Title     string    `json:"title"`
	Home      string    `json:"home"`
	Away      string    `json:"away"`
	KickoffTS int64     `json:"kickoff_ts"`
}

// RecordEventRequest describes one event to append to an open match.
type RecordEventRequest struct {
	Type    models.EventType `json:"type"`
	Minute  *int             `json:"minute,omitempty"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// App implements the match domain logic.
type App struct {
	repo  Repository
	clock clockwork.Clock
}

// NewApp creates the match app layer.
func NewApp(repo Repository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// OpenMatch creates the match resource for a fixture. At most one open
// match may exist per fixture.
func (a *App) OpenMatch(ctx context.Context, req OpenMatchRequest) (*models.Match, error) {
	if req.FixtureID == uuid.Nil {
		return nil, fmt.Errorf("fixture_id is required")
	}
	if req.Home == "" || req.Away == "" {
		return nil, fmt.Errorf("home and away labels are required")
	}
	if req.KickoffTS <= 0 {
		return nil, fmt.Errorf("kickoff_ts is required")
	}

	existing, err := a.repo.GetOpenMatchByFixture(ctx, req.FixtureID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check for open match: %w", err)
	}
	if existing != nil {
		return nil, ErrMatchAlreadyOpen
	}

	now := a.clock.Now().UTC()
	match := &models.Match{
		ID:        uuid.New(),
		FixtureID: req.FixtureID,
		Title:     req.Title,
		Home:      req.Home,
		Away:      req.Away,
		KickoffTS: req.KickoffTS,
		Timeline:  []models.MatchEvent{},
		UpdatedAt: now,
	}
	if err := a.repo.CreateMatch(ctx, match); err != nil {
		if errors.Is(err, ErrMatchAlreadyOpen) {
			// Lost a race past the check above; same rejection, same text.
			return nil, ErrMatchAlreadyOpen
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	log.Info().
		Str("match_id", match.ID.String()).
		Str("fixture_id", req.FixtureID.String()).
		Str("home", req.Home).
		Str("away", req.Away).
		Msg("match opened")
	return match, nil
}

// GetTally returns a fresh full snapshot of the match.
func (a *App) GetTally(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return a.repo.GetMatch(ctx, id)
}

// RecordEvent validates and appends one event. Goals move the side's score;
// scores are maintained here, server-side, and only mirrored by clients.
func (a *App) RecordEvent(ctx context.Context, matchID uuid.UUID, req RecordEventRequest) (*models.Match, error) {
	if !models.KnownEventType(req.Type) {
		return nil, fmt.Errorf("unknown event type: %s", req.Type)
	}
	if err := models.ValidatePayload(req.Type, req.Payload); err != nil {
		return nil, err
	}
	if req.Minute != nil && *req.Minute < 0 {
		return nil, fmt.Errorf("minute cannot be negative")
	}

	match, err := a.repo.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Closed {
		return nil, ErrMatchClosed
	}

	now := a.clock.Now().UTC()
	event := models.MatchEvent{
		ID:      uuid.New(),
		TS:      now.UnixMilli(),
		Type:    req.Type,
		Minute:  req.Minute,
		Payload: req.Payload,
	}

	homeScore, awayScore := match.HomeScore, match.AwayScore
	if req.Type == models.EventTypeGoal {
		var goal models.GoalPayload
		if err := json.Unmarshal(req.Payload, &goal); err != nil {
			return nil, fmt.Errorf("invalid goal payload: %w", err)
		}
		if goal.Side == models.SideHome {
			homeScore++
		} else {
			awayScore++
		}
	}

	if err := a.repo.AppendEvent(ctx, matchID, event, homeScore, awayScore, now); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	log.Info().
		Str("match_id", matchID.String()).
		Str("event_id", event.ID.String()).
		Str("type", string(req.Type)).
		Msg("event recorded")

	return a.repo.GetMatch(ctx, matchID)
}

// CloseMatch ends the match. Closing twice is a no-op success: the second
// call just returns the closed snapshot.
func (a *App) CloseMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	match, err := a.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Closed {
		return match, nil
	}

	now := a.clock.Now().UTC()
	if err := a.repo.CloseMatch(ctx, id, now); err != nil {
		return nil, fmt.Errorf("failed to close match: %w", err)
	}

	log.Info().Str("match_id", id.String()).Msg("match closed")
	return a.repo.GetMatch(ctx, id)
}
