package models

import (
	"time"

	"github.com/google/uuid"
)

// Match is a full snapshot of one server-held match resource. Clients never
// patch a Match in place; every tally replaces the whole snapshot.
type Match struct {
	ID        uuid.UUID    `json:"id"`
	FixtureID uuid.UUID    `json:"fixture_id"`
	Title     string       `json:"title"`
	Home      string       `json:"home"`
	Away      string       `json:"away"`
	KickoffTS int64        `json:"kickoff_ts"` // epoch milliseconds
	Timeline  []MatchEvent `json:"timeline"`   // append order, unique by event ID
	HomeScore int          `json:"home_score"`
	AwayScore int          `json:"away_score"`
	Closed    bool         `json:"closed"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Clone returns a deep copy of the match. Repositories hand out clones so a
// caller mutating its snapshot can never corrupt shared state.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	out := *m
	out.Timeline = make([]MatchEvent, len(m.Timeline))
	copy(out.Timeline, m.Timeline)
	for i := range out.Timeline {
		if m.Timeline[i].Minute != nil {
			minute := *m.Timeline[i].Minute
			out.Timeline[i].Minute = &minute
		}
		if m.Timeline[i].Payload != nil {
			out.Timeline[i].Payload = append([]byte(nil), m.Timeline[i].Payload...)
		}
	}
	return &out
}

// LastEvent returns the most recently appended timeline event, or nil when
// the timeline is empty. This is insertion order, not chronological order;
// the repository guarantees the two agree.
func (m *Match) LastEvent() *MatchEvent {
	if len(m.Timeline) == 0 {
		return nil
	}
	return &m.Timeline[len(m.Timeline)-1]
}
