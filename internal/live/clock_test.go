package live

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestMatchClockMinute(t *testing.T) {
	kickoff := time.Date(2026, 4, 18, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"at kickoff", kickoff, 0},
		{"mid first half", kickoff.Add(125 * time.Second), 2},
		{"just under a minute", kickoff.Add(59 * time.Second), 0},
		{"exactly a minute", kickoff.Add(time.Minute), 1},
		{"deep second half", kickoff.Add(93 * time.Minute), 93},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClockAt(tt.now)
			c := NewMatchClock(clock, kickoff.UnixMilli())
			if got := c.Minute(); got != tt.want {
				t.Errorf("Minute() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchClockFutureKickoffClampsToZero(t *testing.T) {
	now := time.Date(2026, 4, 18, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	// Kickoff 30 minutes from now: clock skew must render 0', never -30'.
	c := NewMatchClock(clock, now.Add(30*time.Minute).UnixMilli())
	if got := c.Minute(); got != 0 {
		t.Errorf("Minute() before kickoff = %d, want 0", got)
	}
	if got := c.Label(); got != "0'" {
		t.Errorf("Label() before kickoff = %q, want \"0'\"", got)
	}
}

func TestMinuteLabel(t *testing.T) {
	tests := []struct {
		minute int
		want   string
	}{
		{0, "0'"},
		{1, "1'"},
		{44, "44'"},
		{45, "45'"},
		{46, "45+1'"},
		{48, "45+3'"},
		{50, "45+5'"},
		{51, "51'"},
		{89, "89'"},
		{90, "90'"},
		{91, "90+1'"},
		{93, "90+3'"},
		{104, "90+14'"},
		{-3, "0'"},
	}

	for _, tt := range tests {
		if got := MinuteLabel(tt.minute); got != tt.want {
			t.Errorf("MinuteLabel(%d) = %q, want %q", tt.minute, got, tt.want)
		}
	}
}

func TestMatchClockRunTicks(t *testing.T) {
	kickoff := time.Date(2026, 4, 18, 10, 30, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(kickoff.Add(59 * time.Second))
	c := NewMatchClock(clock, kickoff.UnixMilli())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	minutes := make(chan int, 16)
	go c.Run(ctx, func(minute int) {
		minutes <- minute
	})

	// The first tick fires immediately, before any time passes.
	select {
	case m := <-minutes:
		if m != 0 {
			t.Fatalf("initial tick minute = %d, want 0", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial tick")
	}

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case m := <-minutes:
		if m != 1 {
			t.Fatalf("tick after advance minute = %d, want 1", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick after advancing the clock")
	}
}
