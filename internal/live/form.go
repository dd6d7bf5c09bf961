package live

import (
	"fmt"

	"github.com/pitchside/matchday/clients/matchapi"
	"github.com/pitchside/matchday/internal/models"
)

// FormState is the entry form's position in its lifecycle.
type FormState string

const (
	FormIdle         FormState = "idle"
	FormTypeSelected FormState = "typeSelected"
	FormSubmitting   FormState = "submitting"
	FormError        FormState = "error"
)

// FieldError is a validation failure tied to one form field. It blocks
// submission but never clears what the scorer has already typed.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// EntryForm is the scorer's per-event input form. Selecting a type preloads
// the minute from the match clock; the scorer can override it. The form is
// not safe for concurrent use; it belongs to one input session.
type EntryForm struct {
	state     FormState
	eventType models.EventType

	minute int
	side   models.Side
	player string
	scorer string
	text   string
}

// NewEntryForm returns a form in the idle state.
func NewEntryForm() *EntryForm {
	return &EntryForm{state: FormIdle}
}

// State returns the current form state.
func (f *EntryForm) State() FormState { return f.state }

// EventType returns the selected event type, empty while idle.
func (f *EntryForm) EventType() models.EventType { return f.eventType }

// Minute returns the minute field value.
func (f *EntryForm) Minute() int { return f.minute }

// SelectType picks the event type and preloads the minute field with the
// clock's current value.
func (f *EntryForm) SelectType(t models.EventType, currentMinute int) error {
	if !models.KnownEventType(t) {
		return &FieldError{Field: "type", Message: fmt.Sprintf("unknown event type %q", t)}
	}
	f.state = FormTypeSelected
	f.eventType = t
	f.minute = currentMinute
	return nil
}

// SetMinute overrides the preloaded minute.
func (f *EntryForm) SetMinute(minute int) { f.minute = minute }

// SetSide sets the team side for goal/card/sub events.
func (f *EntryForm) SetSide(side models.Side) { f.side = side }

// SetPlayer sets the player name for card/sub events.
func (f *EntryForm) SetPlayer(player string) { f.player = player }

// SetScorer sets the scorer name for goal events.
func (f *EntryForm) SetScorer(scorer string) { f.scorer = scorer }

// SetText sets the free text for note events.
func (f *EntryForm) SetText(text string) { f.text = text }

// Validate checks the per-type required fields. On failure it returns a
// *FieldError naming the offending field and leaves all entered data intact.
func (f *EntryForm) Validate() error {
	if f.state == FormIdle {
		return &FieldError{Field: "type", Message: "select an event type first"}
	}
	switch f.eventType {
	case models.EventTypeGoal:
		if f.scorer == "" {
			return &FieldError{Field: "scorer", Message: "scorer is required for a goal"}
		}
		if f.side != models.SideHome && f.side != models.SideAway {
			return &FieldError{Field: "side", Message: "pick home or away"}
		}
	case models.EventTypeYellow, models.EventTypeRed, models.EventTypeSub:
		if f.player == "" {
			return &FieldError{Field: "player", Message: fmt.Sprintf("player is required for a %s", f.eventType)}
		}
		if f.side != models.SideHome && f.side != models.SideAway {
			return &FieldError{Field: "side", Message: "pick home or away"}
		}
	case models.EventTypeNote:
		if f.text == "" {
			return &FieldError{Field: "text", Message: "note text is required"}
		}
	case models.EventTypeHalfTime, models.EventTypeFullTime:
		// No extra fields.
	}
	if f.minute < 0 {
		return &FieldError{Field: "minute", Message: "minute cannot be negative"}
	}
	return nil
}

// Params validates the form and builds the record-event request. The form
// state is untouched; the session moves it to submitting/idle around the
// network call.
func (f *EntryForm) Params() (matchapi.RecordEventParams, error) {
	if err := f.Validate(); err != nil {
		return matchapi.RecordEventParams{}, err
	}

	minute := f.minute
	params := matchapi.RecordEventParams{
		Type:   f.eventType,
		Minute: &minute,
	}

	switch f.eventType {
	case models.EventTypeGoal:
		params.Payload = models.MustMarshalPayload(models.GoalPayload{Side: f.side, Scorer: f.scorer})
	case models.EventTypeYellow, models.EventTypeRed:
		params.Payload = models.MustMarshalPayload(models.CardPayload{Player: f.player, Side: f.side})
	case models.EventTypeSub:
		params.Payload = models.MustMarshalPayload(models.SubPayload{Player: f.player, Side: f.side})
	case models.EventTypeNote:
		params.Payload = models.MustMarshalPayload(models.NotePayload{Text: f.text})
	}
	return params, nil
}

// Reset returns the form to idle and clears all fields.
func (f *EntryForm) Reset() {
	*f = EntryForm{state: FormIdle}
}

// beginSubmit and finishSubmit are the submitting-state transitions used by
// the session around the network call.
func (f *EntryForm) beginSubmit() { f.state = FormSubmitting }

func (f *EntryForm) finishSubmit(err error) {
	if err != nil {
		// Keep everything the scorer entered; they fix and resubmit.
		f.state = FormError
		return
	}
	f.Reset()
}
