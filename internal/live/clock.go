package live

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// MatchClock derives the current match minute from the kickoff timestamp.
// It is independent of server polling: the minute advances on a local
// one-second tick whether or not a tally ever lands.
type MatchClock struct {
	clock     clockwork.Clock
	kickoffTS int64 // epoch milliseconds
}

// NewMatchClock creates a clock anchored at kickoffTS.
func NewMatchClock(clock clockwork.Clock, kickoffTS int64) *MatchClock {
	return &MatchClock{
		clock:     clock,
		kickoffTS: kickoffTS,
	}
}

// Minute returns whole minutes elapsed since kickoff, clamped at zero so a
// future kickoff (clock skew) never renders a negative minute.
func (c *MatchClock) Minute() int {
	elapsed := c.clock.Now().UnixMilli() - c.kickoffTS
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / 60_000)
}

// Label returns the display label for the current minute.
func (c *MatchClock) Label() string {
	return MinuteLabel(c.Minute())
}

// Run ticks once per second, invoking onTick with the current minute, until
// ctx is cancelled. The ticker is released on every exit path.
func (c *MatchClock) Run(ctx context.Context, onTick func(minute int)) {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	onTick(c.Minute())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			onTick(c.Minute())
		}
	}
}

// MinuteLabel formats a match minute with the fixed two-tier stoppage
// banding: 46-50 render as first-half stoppage ("45+n'"), 91 and up as
// second-half stoppage ("90+n'"). Everything else is the plain minute.
func MinuteLabel(minute int) string {
	if minute < 0 {
		minute = 0
	}
	switch {
	case minute > 90:
		return fmt.Sprintf("90+%d'", minute-90)
	case minute > 45 && minute <= 50:
		return fmt.Sprintf("45+%d'", minute-45)
	default:
		return fmt.Sprintf("%d'", minute)
	}
}
