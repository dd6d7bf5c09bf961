package live

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pitchside/matchday/internal/models"
)

// GoalBannerWindow is how long after a goal's timestamp the celebration
// banner stays visible.
const GoalBannerWindow = 10 * time.Second

// Match status labels.
const (
	StatusLive     = "LIVE"
	StatusHalfTime = "HALF-TIME"
	StatusFullTime = "FULL-TIME"
)

// EventCounts are the summary tallies derived from the timeline by type.
type EventCounts struct {
	Goals   int
	Yellows int
	Reds    int
}

// ViewModel derives everything a renderer needs from one match snapshot.
// It holds no mutable state: construct a fresh one per snapshot (they are
// cheap) and every derived value stays consistent with that snapshot.
type ViewModel struct {
	match *models.Match
	clock clockwork.Clock
}

// NewViewModel wraps a snapshot. A nil match yields empty derived values.
func NewViewModel(clock clockwork.Clock, match *models.Match) *ViewModel {
	return &ViewModel{match: match, clock: clock}
}

// SortedTimeline returns the timeline ordered by timestamp descending (most
// recent first). The snapshot's own order is never assumed sorted; ties keep
// insertion order.
func (v *ViewModel) SortedTimeline() []models.MatchEvent {
	if v.match == nil {
		return nil
	}
	out := make([]models.MatchEvent, len(v.match.Timeline))
	copy(out, v.match.Timeline)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TS > out[j].TS
	})
	return out
}

// Scoreboard returns the server-maintained score. Scores are never
// recomputed from goal events client-side, so disputed or voided goals can
// not double-count.
func (v *ViewModel) Scoreboard() (home, away int) {
	if v.match == nil {
		return 0, 0
	}
	return v.match.HomeScore, v.match.AwayScore
}

// Counts tallies goals and cards by filtering the timeline.
func (v *ViewModel) Counts() EventCounts {
	var c EventCounts
	if v.match == nil {
		return c
	}
	for _, ev := range v.match.Timeline {
		switch ev.Type {
		case models.EventTypeGoal:
			c.Goals++
		case models.EventTypeYellow:
			c.Yellows++
		case models.EventTypeRed:
			c.Reds++
		}
	}
	return c
}

// GoalBannerVisible reports whether the celebration banner should show: the
// most recent goal (by timestamp) happened within GoalBannerWindow of now.
// The result is derived, never latched, so a stale goal refetched by a later
// poll cannot re-trigger the banner.
func (v *ViewModel) GoalBannerVisible() bool {
	if v.match == nil {
		return false
	}
	var latest int64
	found := false
	for _, ev := range v.match.Timeline {
		if ev.Type == models.EventTypeGoal && (!found || ev.TS > latest) {
			latest = ev.TS
			found = true
		}
	}
	if !found {
		return false
	}
	age := v.clock.Now().UnixMilli() - latest
	return age >= 0 && age < GoalBannerWindow.Milliseconds()
}

// StatusLabel derives the match status. Closed wins outright; otherwise a
// half-time event at the tail of the timeline as delivered (insertion order,
// not timestamp order) means the break is on. Insertion order is a guarantee
// of our repository's ORDER BY seq, not an assumption about arbitrary feeds.
func (v *ViewModel) StatusLabel() string {
	if v.match == nil {
		return StatusLive
	}
	if v.match.Closed {
		return StatusFullTime
	}
	if last := v.match.LastEvent(); last != nil && last.Type == models.EventTypeHalfTime {
		return StatusHalfTime
	}
	return StatusLive
}

// EventMinuteLabel formats an event's minute for the timeline. Events
// recorded without a minute fall back to deriving one from the event
// timestamp and kickoff.
func (v *ViewModel) EventMinuteLabel(ev models.MatchEvent) string {
	if ev.Minute != nil {
		return MinuteLabel(*ev.Minute)
	}
	if v.match == nil {
		return MinuteLabel(0)
	}
	elapsed := ev.TS - v.match.KickoffTS
	if elapsed < 0 {
		elapsed = 0
	}
	return MinuteLabel(int(elapsed / 60_000))
}
