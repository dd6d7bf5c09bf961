package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/matchday/internal/models"
)

// Role distinguishes the two consumers of a match resource. Watchers poll
// faster because viewers want fresher data; both are tuning constants, not
// protocol requirements.
type Role string

const (
	RoleInput Role = "input"
	RoleWatch Role = "watch"
)

const (
	DefaultInputPollInterval = 10 * time.Second
	DefaultWatchPollInterval = 5 * time.Second
)

// PollInterval returns the default polling cadence for the role.
func (r Role) PollInterval() time.Duration {
	if r == RoleWatch {
		return DefaultWatchPollInterval
	}
	return DefaultInputPollInterval
}

// TallyFetcher is the read side of the match resource API.
type TallyFetcher interface {
	GetTally(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
}

// BackoffPolicy controls the wait after a failed poll. Consecutive failures
// stretch the wait from Initial by Multiplier up to Cap; any success resets
// it. A Cap above the poll interval is clamped to the interval, so a failing
// synchronizer never polls slower than a healthy one. The zero value
// disables backoff: failed polls simply wait out the normal cadence.
type BackoffPolicy struct {
	Initial    time.Duration
	Multiplier float64
	Cap        time.Duration
}

// DefaultBackoffPolicy retries one second after a failure, doubling up to
// the poll interval.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Initial:    time.Second,
		Multiplier: 2,
	}
}

func (p BackoffPolicy) enabled() bool {
	return p.Initial > 0
}

// wait returns the delay before the next poll after `failures` consecutive
// failed polls.
func (p BackoffPolicy) wait(failures int, interval time.Duration) time.Duration {
	if failures <= 0 || !p.enabled() {
		return interval
	}
	d := p.Initial
	for i := 1; i < failures; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.Cap > 0 && d >= p.Cap {
			d = p.Cap
			break
		}
		if d >= interval {
			break
		}
	}
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}
	if d > interval {
		d = interval
	}
	return d
}

// SynchronizerConfig configures one polling session.
type SynchronizerConfig struct {
	Role     Role
	Interval time.Duration // zero means the role default
	Backoff  BackoffPolicy
}

// Synchronizer keeps a local match snapshot eventually consistent with the
// server while a match is open. It owns exactly one timer; every exit path
// releases it. Each successful poll replaces the snapshot wholesale - the
// server is the single source of truth, so there is no merge logic.
type Synchronizer struct {
	client TallyFetcher
	clock  clockwork.Clock

	matchID  uuid.UUID
	cfg      SynchronizerConfig
	onUpdate func(*models.Match)

	mu       sync.Mutex
	snapshot *models.Match
	failures int
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}

	refreshCh chan struct{}
}

// NewSynchronizer creates a synchronizer for one match. onUpdate is invoked
// after every successful poll with the fresh snapshot; it may be nil.
func NewSynchronizer(client TallyFetcher, clock clockwork.Clock, matchID uuid.UUID, cfg SynchronizerConfig, onUpdate func(*models.Match)) *Synchronizer {
	if cfg.Role == "" {
		cfg.Role = RoleWatch
	}
	if cfg.Interval <= 0 {
		cfg.Interval = cfg.Role.PollInterval()
	}
	return &Synchronizer{
		client:    client,
		clock:     clock,
		matchID:   matchID,
		cfg:       cfg,
		onUpdate:  onUpdate,
		refreshCh: make(chan struct{}, 1),
	}
}

// Start begins polling: one immediate poll, then the configured cadence.
// Calling Start on a running synchronizer is a no-op.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	log.Debug().
		Str("match_id", s.matchID.String()).
		Str("role", string(s.cfg.Role)).
		Dur("interval", s.cfg.Interval).
		Msg("synchronizer started")

	go s.run(runCtx, done)
}

// Stop cancels polling and waits for the poll loop to exit. Idempotent.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// RefreshNow requests an out-of-band poll without disturbing the timer
// cadence. If a refresh is already pending the request is coalesced.
func (s *Synchronizer) RefreshNow() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the last successfully fetched match state, or nil before
// the first poll lands.
func (s *Synchronizer) Snapshot() *models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Running reports whether the poll loop is active.
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Synchronizer) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	if s.poll(ctx) {
		return
	}

	for {
		timer := s.clock.NewTimer(s.nextWait())
		fired := false
		for !fired {
			select {
			case <-ctx.Done():
				stopAndDrainTimer(timer)
				log.Debug().Str("match_id", s.matchID.String()).Msg("synchronizer cancelled")
				return
			case <-s.refreshCh:
				// Manual refresh: poll now, leave the scheduled timer alone.
				if s.poll(ctx) {
					stopAndDrainTimer(timer)
					return
				}
			case <-timer.Chan():
				fired = true
			}
		}
		if s.poll(ctx) {
			return
		}
	}
}

// poll fetches a fresh snapshot. It returns true when polling should stop:
// the context is gone or the match has been observed closed. A failed fetch
// keeps the last-known-good snapshot untouched.
func (s *Synchronizer) poll(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}

	match, err := s.client.GetTally(ctx, s.matchID)
	if err != nil {
		s.mu.Lock()
		s.failures++
		failures := s.failures
		s.mu.Unlock()
		log.Warn().
			Err(err).
			Str("match_id", s.matchID.String()).
			Int("consecutive_failures", failures).
			Msg("tally poll failed, keeping last snapshot")
		return false
	}

	s.mu.Lock()
	s.snapshot = match
	s.failures = 0
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(match)
	}

	if match.Closed {
		log.Info().Str("match_id", s.matchID.String()).Msg("match closed, stopping synchronizer")
		return true
	}
	return false
}

func (s *Synchronizer) nextWait() time.Duration {
	s.mu.Lock()
	failures := s.failures
	s.mu.Unlock()
	return s.cfg.Backoff.wait(failures, s.cfg.Interval)
}

// stopAndDrainTimer safely stops a timer and drains its channel, following
// the pattern recommended in the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
