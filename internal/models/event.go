package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventType defines the kind of a match event. The set is closed: the
// service rejects anything it does not recognize.
type EventType string

const (
	EventTypeGoal     EventType = "goal"
	EventTypeYellow   EventType = "yellow"
	EventTypeRed      EventType = "red"
	EventTypeSub      EventType = "sub"
	EventTypeHalfTime EventType = "halfTime"
	EventTypeFullTime EventType = "fullTime"
	EventTypeNote     EventType = "note"
)

// KnownEventType reports whether t is part of the closed event type set.
func KnownEventType(t EventType) bool {
	switch t {
	case EventTypeGoal, EventTypeYellow, EventTypeRed, EventTypeSub,
		EventTypeHalfTime, EventTypeFullTime, EventTypeNote:
		return true
	}
	return false
}

// Side identifies which team an event belongs to.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// MatchEvent is one immutable entry in a match timeline. Events are never
// edited or deleted after creation; IDs are assigned by the service.
type MatchEvent struct {
	ID      uuid.UUID       `json:"id"`
	TS      int64           `json:"ts"` // epoch milliseconds at recording time
	Type    EventType       `json:"type"`
	Minute  *int            `json:"minute,omitempty"` // match minute, may exceed 45/90 for added time
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GoalPayload is the payload for goal events.
type GoalPayload struct {
	Side   Side   `json:"side"`
	Scorer string `json:"scorer"`
}

// CardPayload is the payload for yellow and red card events.
type CardPayload struct {
	Player string `json:"player"`
	Side   Side   `json:"side"`
}

// SubPayload is the payload for substitution events.
type SubPayload struct {
	Player string `json:"player"`
	Side   Side   `json:"side"`
}

// NotePayload is the payload for free-text note events.
type NotePayload struct {
	Text string `json:"text"`
}

// ParseEventPayload decodes an event's raw payload into the struct matching
// its type. halfTime and fullTime events carry no payload and return nil.
func ParseEventPayload(ev *MatchEvent) (interface{}, error) {
	switch ev.Type {
	case EventTypeGoal:
		var payload GoalPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeYellow, EventTypeRed:
		var payload CardPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSub:
		var payload SubPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeNote:
		var payload NotePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeHalfTime, EventTypeFullTime:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", ev.Type)
	}
}

// ValidatePayload enforces the per-type required fields before an event is
// accepted: goal needs scorer+side, cards and subs need player+side, notes
// need text, half/full time carry nothing.
func ValidatePayload(t EventType, raw json.RawMessage) error {
	switch t {
	case EventTypeGoal:
		var p GoalPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("invalid goal payload: %w", err)
		}
		if p.Scorer == "" {
			return fmt.Errorf("goal event requires a scorer")
		}
		if err := validSide(p.Side); err != nil {
			return err
		}
		return nil

	case EventTypeYellow, EventTypeRed:
		var p CardPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("invalid card payload: %w", err)
		}
		if p.Player == "" {
			return fmt.Errorf("%s event requires a player", t)
		}
		return validSide(p.Side)

	case EventTypeSub:
		var p SubPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("invalid sub payload: %w", err)
		}
		if p.Player == "" {
			return fmt.Errorf("sub event requires a player")
		}
		return validSide(p.Side)

	case EventTypeNote:
		var p NotePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("invalid note payload: %w", err)
		}
		if p.Text == "" {
			return fmt.Errorf("note event requires text")
		}
		return nil

	case EventTypeHalfTime, EventTypeFullTime:
		return nil

	default:
		return fmt.Errorf("unknown event type: %s", t)
	}
}

func validSide(s Side) error {
	if s != SideHome && s != SideAway {
		return fmt.Errorf("side must be %q or %q, got %q", SideHome, SideAway, s)
	}
	return nil
}

// MustMarshalPayload marshals a payload struct, panicking on failure. The
// payload structs above cannot fail to marshal; this keeps event construction
// in tests and seeds terse.
func MustMarshalPayload(p interface{}) json.RawMessage {
	data, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return data
}
