package live

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pitchside/matchday/internal/models"
)

// stubTally is a TallyFetcher with a settable response. Every call signals
// the polled channel so tests can wait deterministically.
type stubTally struct {
	mu     sync.Mutex
	calls  int
	match  *models.Match
	err    error
	polled chan struct{}
}

func newStubTally(match *models.Match) *stubTally {
	return &stubTally{
		match:  match,
		polled: make(chan struct{}, 32),
	}
}

func (s *stubTally) GetTally(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	s.mu.Lock()
	s.calls++
	match, err := s.match, s.err
	s.mu.Unlock()
	s.polled <- struct{}{}
	if err != nil {
		return nil, err
	}
	return match.Clone(), nil
}

func (s *stubTally) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubTally) set(match *models.Match, err error) {
	s.mu.Lock()
	s.match, s.err = match, err
	s.mu.Unlock()
}

func waitPoll(t *testing.T, s *stubTally) {
	t.Helper()
	select {
	case <-s.polled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a poll")
	}
}

func expectNoPoll(t *testing.T, s *stubTally) {
	t.Helper()
	select {
	case <-s.polled:
		t.Fatal("unexpected poll")
	case <-time.After(100 * time.Millisecond):
	}
}

func waitStopped(t *testing.T, s *Synchronizer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("synchronizer still running")
		}
		time.Sleep(time.Millisecond)
	}
}

func openMatch() *models.Match {
	return &models.Match{
		ID:        uuid.New(),
		FixtureID: uuid.New(),
		Home:      "Pitchside U12",
		Away:      "Riverside Rovers U12",
		KickoffTS: time.Date(2026, 4, 18, 10, 30, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestRolePollIntervals(t *testing.T) {
	if got := RoleInput.PollInterval(); got != DefaultInputPollInterval {
		t.Errorf("input interval = %v, want %v", got, DefaultInputPollInterval)
	}
	if got := RoleWatch.PollInterval(); got != DefaultWatchPollInterval {
		t.Errorf("watch interval = %v, want %v", got, DefaultWatchPollInterval)
	}
}

func TestSynchronizerPollsOnCadence(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleInput}, nil)

	s.Start(context.Background())
	defer s.Stop()

	// One immediate poll on start.
	waitPoll(t, stub)
	if snap := s.Snapshot(); snap == nil || snap.ID != match.ID {
		t.Fatal("snapshot not set after first poll")
	}

	clock.BlockUntil(1)
	clock.Advance(DefaultInputPollInterval)
	waitPoll(t, stub)

	// Less than a full interval must not trigger a poll.
	clock.BlockUntil(1)
	clock.Advance(DefaultInputPollInterval - time.Second)
	expectNoPoll(t, stub)

	clock.Advance(time.Second)
	waitPoll(t, stub)

	if got := stub.callCount(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSynchronizerRefreshNowPollsImmediately(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleInput}, nil)

	s.Start(context.Background())
	defer s.Stop()
	waitPoll(t, stub)
	clock.BlockUntil(1)

	// Manual refresh lands without any clock movement.
	s.RefreshNow()
	waitPoll(t, stub)

	// The scheduled cadence is undisturbed: the original timer still fires
	// a full interval after it was armed.
	clock.Advance(DefaultInputPollInterval)
	waitPoll(t, stub)

	if got := stub.callCount(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSynchronizerRefreshRequestsCoalesce(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleWatch}, nil)

	// Not started: requests queue into the buffered channel, capacity one.
	s.RefreshNow()
	s.RefreshNow()
	s.RefreshNow()

	s.Start(context.Background())
	defer s.Stop()

	waitPoll(t, stub) // immediate start poll
	waitPoll(t, stub) // the single coalesced refresh
	expectNoPoll(t, stub)
}

func TestSynchronizerStopHaltsPolling(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleWatch}, nil)

	s.Start(context.Background())
	waitPoll(t, stub)

	s.Stop()
	if s.Running() {
		t.Fatal("Running() = true after Stop")
	}

	// Any amount of clock movement after Stop produces no further polls.
	clock.Advance(10 * DefaultWatchPollInterval)
	expectNoPoll(t, stub)
	if got := stub.callCount(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	// Stop again is a no-op.
	s.Stop()
}

func TestSynchronizerStopsWhenMatchCloses(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))

	var updates []bool
	var mu sync.Mutex
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleWatch}, func(m *models.Match) {
		mu.Lock()
		updates = append(updates, m.Closed)
		mu.Unlock()
	})

	s.Start(context.Background())
	waitPoll(t, stub)

	closed := match.Clone()
	closed.Closed = true
	stub.set(closed, nil)

	clock.BlockUntil(1)
	clock.Advance(DefaultWatchPollInterval)
	waitPoll(t, stub)
	waitStopped(t, s)

	// Once a closed tally has been observed the loop is done for good.
	clock.Advance(10 * DefaultWatchPollInterval)
	expectNoPoll(t, stub)
	if got := stub.callCount(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 2 || updates[0] || !updates[1] {
		t.Errorf("onUpdate closed flags = %v, want [false true]", updates)
	}
	if snap := s.Snapshot(); snap == nil || !snap.Closed {
		t.Error("final snapshot should be the closed match")
	}
}

func TestSynchronizerKeepsSnapshotOnFailure(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleInput}, nil)

	s.Start(context.Background())
	defer s.Stop()
	waitPoll(t, stub)

	stub.set(nil, fmt.Errorf("network down"))
	clock.BlockUntil(1)
	clock.Advance(DefaultInputPollInterval)
	waitPoll(t, stub)

	// Last known good snapshot survives the failed poll.
	if snap := s.Snapshot(); snap == nil || snap.ID != match.ID {
		t.Fatal("snapshot lost after failed poll")
	}
	if !s.Running() {
		t.Fatal("synchronizer stopped on a transient failure")
	}

	updated := match.Clone()
	updated.HomeScore = 1
	stub.set(updated, nil)
	clock.BlockUntil(1)
	clock.Advance(DefaultInputPollInterval)
	waitPoll(t, stub)

	if snap := s.Snapshot(); snap == nil || snap.HomeScore != 1 {
		t.Error("snapshot not replaced after recovery")
	}
}

func TestSynchronizerBackoffRetriesFasterThanCadence(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	stub.set(nil, fmt.Errorf("boom"))
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{
		Role:    RoleInput,
		Backoff: DefaultBackoffPolicy(),
	}, nil)

	s.Start(context.Background())
	defer s.Stop()
	waitPoll(t, stub) // failure #1

	// First retry after 1s, not the 10s cadence.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitPoll(t, stub) // failure #2

	// Second retry doubles to 2s: 1s is not enough.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	expectNoPoll(t, stub)
	clock.Advance(time.Second)
	waitPoll(t, stub) // failure #3

	// A success resets the cadence to the full interval.
	stub.set(match, nil)
	clock.BlockUntil(1)
	clock.Advance(4 * time.Second)
	waitPoll(t, stub) // success
	clock.BlockUntil(1)
	clock.Advance(DefaultInputPollInterval - time.Second)
	expectNoPoll(t, stub)
	clock.Advance(time.Second)
	waitPoll(t, stub)
}

func TestSynchronizerStartIdempotent(t *testing.T) {
	match := openMatch()
	stub := newStubTally(match)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(match.KickoffTS))
	s := NewSynchronizer(stub, clock, match.ID, SynchronizerConfig{Role: RoleWatch}, nil)

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()
	waitPoll(t, stub)

	s.Start(ctx)
	expectNoPoll(t, stub)
	if got := stub.callCount(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestBackoffPolicyWait(t *testing.T) {
	interval := 10 * time.Second

	t.Run("zero value disables backoff", func(t *testing.T) {
		var p BackoffPolicy
		if got := p.wait(3, interval); got != interval {
			t.Errorf("wait(3) = %v, want %v", got, interval)
		}
	})

	t.Run("no failures means full interval", func(t *testing.T) {
		p := DefaultBackoffPolicy()
		if got := p.wait(0, interval); got != interval {
			t.Errorf("wait(0) = %v, want %v", got, interval)
		}
	})

	t.Run("exponential growth capped at the interval", func(t *testing.T) {
		p := DefaultBackoffPolicy()
		wants := []time.Duration{
			time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			10 * time.Second,
			10 * time.Second,
		}
		for i, want := range wants {
			if got := p.wait(i+1, interval); got != want {
				t.Errorf("wait(%d) = %v, want %v", i+1, got, want)
			}
		}
	})

	t.Run("explicit cap below the interval", func(t *testing.T) {
		p := BackoffPolicy{Initial: time.Second, Multiplier: 2, Cap: 5 * time.Second}
		if got := p.wait(4, interval); got != 5*time.Second {
			t.Errorf("wait(4) = %v, want 5s", got)
		}
	})

	t.Run("cap above the interval is clamped", func(t *testing.T) {
		p := BackoffPolicy{Initial: time.Second, Multiplier: 2, Cap: time.Minute}
		if got := p.wait(10, interval); got != interval {
			t.Errorf("wait(10) = %v, want %v", got, interval)
		}
	})
}
