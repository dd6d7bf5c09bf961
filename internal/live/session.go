package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/matchday/clients/matchapi"
	"github.com/pitchside/matchday/internal/models"
)

// MatchAPI is the full match resource contract the session consumes.
// *matchapi.Client satisfies it.
type MatchAPI interface {
	OpenMatch(ctx context.Context, fixtureID uuid.UUID, params matchapi.OpenMatchParams) (*models.Match, error)
	GetTally(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
	RecordEvent(ctx context.Context, matchID uuid.UUID, params matchapi.RecordEventParams) (*models.Match, error)
	CloseMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
}

// ErrWatchOnly is returned when a watch session attempts a write.
var ErrWatchOnly = fmt.Errorf("watch sessions cannot modify the match")

// ErrMatchClosed is returned when a write is attempted after the local
// snapshot has observed the match closed. The server side enforces the same
// rule; blocking locally just saves the round trip.
var ErrMatchClosed = fmt.Errorf("match is closed")

// Session ties one role's moving parts together for a single match: the
// resource client, the elapsed-time clock, the polling synchronizer, and
// (for the input role) the event entry form. Every exit path - match close,
// session close, context cancellation - stops the poller. The match clock is
// derived state with no goroutine of its own; callers wanting a periodic
// tick run Clock().Run themselves.
type Session struct {
	role  Role
	api   MatchAPI
	clock clockwork.Clock
	cfg   SynchronizerConfig

	mu         sync.Mutex
	matchID    uuid.UUID
	matchClock *MatchClock
	sync       *Synchronizer
	form       *EntryForm
	attached   bool
}

// NewSession creates a detached session. Attach it with Open (input role)
// or Watch.
func NewSession(api MatchAPI, clock clockwork.Clock, cfg SynchronizerConfig) *Session {
	if cfg.Role == "" {
		cfg.Role = RoleWatch
	}
	return &Session{
		role:  cfg.Role,
		api:   api,
		clock: clock,
		cfg:   cfg,
		form:  NewEntryForm(),
	}
}

// Open creates the match resource for a fixture and attaches to it. Input
// role only. The server's rejection text (e.g. a match is already open for
// the fixture) comes back verbatim in the error.
func (s *Session) Open(ctx context.Context, fixtureID uuid.UUID, params matchapi.OpenMatchParams) (*models.Match, error) {
	if s.role != RoleInput {
		return nil, ErrWatchOnly
	}
	match, err := s.api.OpenMatch(ctx, fixtureID, params)
	if err != nil {
		return nil, err
	}
	s.attach(ctx, match)
	return match, nil
}

// Watch fetches the match once and attaches read-only.
func (s *Session) Watch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	match, err := s.api.GetTally(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.attach(ctx, match)
	return match, nil
}

func (s *Session) attach(ctx context.Context, match *models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return
	}
	s.attached = true
	s.matchID = match.ID
	s.matchClock = NewMatchClock(s.clock, match.KickoffTS)

	s.sync = NewSynchronizer(s.api, s.clock, match.ID, s.cfg, nil)
	// Seed the snapshot so View works before the first poll lands.
	s.sync.snapshot = match

	if !match.Closed {
		s.sync.Start(ctx)
	}

	log.Info().
		Str("match_id", match.ID.String()).
		Str("role", string(s.role)).
		Msg("session attached")
}

// RecordEvent validates and submits the entry form, then pulls the
// authoritative post-write snapshot. No optimistic local event is
// synthesized; the timeline changes only when the server says so.
func (s *Session) RecordEvent(ctx context.Context) (*models.Match, error) {
	if s.role != RoleInput {
		return nil, ErrWatchOnly
	}
	s.mu.Lock()
	syncer, form, matchID := s.sync, s.form, s.matchID
	s.mu.Unlock()
	if syncer == nil {
		return nil, fmt.Errorf("session not attached to a match")
	}
	if snap := syncer.Snapshot(); snap != nil && snap.Closed {
		return nil, ErrMatchClosed
	}

	params, err := form.Params()
	if err != nil {
		return nil, err
	}

	form.beginSubmit()
	match, err := s.api.RecordEvent(ctx, matchID, params)
	form.finishSubmit(err)
	if err != nil {
		return nil, err
	}

	syncer.RefreshNow()
	return match, nil
}

// EndMatch closes the match resource and tears the session down. Closing an
// already-closed match is a no-op success server-side.
func (s *Session) EndMatch(ctx context.Context) (*models.Match, error) {
	if s.role != RoleInput {
		return nil, ErrWatchOnly
	}
	s.mu.Lock()
	matchID, attached := s.matchID, s.attached
	s.mu.Unlock()
	if !attached {
		return nil, fmt.Errorf("session not attached to a match")
	}
	match, err := s.api.CloseMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.Close()
	return match, nil
}

// Refresh triggers an out-of-band poll (pull-to-refresh).
func (s *Session) Refresh() {
	s.mu.Lock()
	syncer := s.sync
	s.mu.Unlock()
	if syncer != nil {
		syncer.RefreshNow()
	}
}

// View returns a view model over the latest snapshot.
func (s *Session) View() *ViewModel {
	s.mu.Lock()
	syncer := s.sync
	s.mu.Unlock()
	if syncer == nil {
		return NewViewModel(s.clock, nil)
	}
	return NewViewModel(s.clock, syncer.Snapshot())
}

// Form returns the event entry form (input role).
func (s *Session) Form() *EntryForm { return s.form }

// Clock returns the elapsed-time clock, nil before attach.
func (s *Session) Clock() *MatchClock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchClock
}

// Close stops the poller. Safe to call more than once and on a
// never-attached session.
func (s *Session) Close() {
	s.mu.Lock()
	syncer := s.sync
	s.mu.Unlock()
	if syncer != nil {
		syncer.Stop()
	}
}
