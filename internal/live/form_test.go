package live

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pitchside/matchday/internal/models"
)

func TestEntryFormLifecycle(t *testing.T) {
	f := NewEntryForm()
	if f.State() != FormIdle {
		t.Fatalf("new form state = %q, want idle", f.State())
	}

	if err := f.SelectType(models.EventTypeGoal, 23); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if f.State() != FormTypeSelected {
		t.Errorf("state after SelectType = %q, want typeSelected", f.State())
	}
	if f.Minute() != 23 {
		t.Errorf("minute not preloaded from the clock: got %d, want 23", f.Minute())
	}

	f.SetScorer("Mills")
	f.SetSide(models.SideHome)

	params, err := f.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if params.Type != models.EventTypeGoal {
		t.Errorf("params type = %q", params.Type)
	}
	if params.Minute == nil || *params.Minute != 23 {
		t.Errorf("params minute = %v, want 23", params.Minute)
	}
	var payload models.GoalPayload
	if err := json.Unmarshal(params.Payload, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.Scorer != "Mills" || payload.Side != models.SideHome {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEntryFormSelectUnknownType(t *testing.T) {
	f := NewEntryForm()
	err := f.SelectType(models.EventType("ownGoal"), 10)
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "type" {
		t.Fatalf("SelectType(unknown) err = %v, want FieldError on type", err)
	}
	if f.State() != FormIdle {
		t.Errorf("state after rejected type = %q, want idle", f.State())
	}
}

func TestEntryFormValidation(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *EntryForm)
		wantField string
	}{
		{
			"idle form",
			func(f *EntryForm) {},
			"type",
		},
		{
			"goal without scorer",
			func(f *EntryForm) {
				f.SelectType(models.EventTypeGoal, 10)
				f.SetSide(models.SideHome)
			},
			"scorer",
		},
		{
			"goal without side",
			func(f *EntryForm) {
				f.SelectType(models.EventTypeGoal, 10)
				f.SetScorer("Mills")
			},
			"side",
		},
		{
			"yellow without player",
			func(f *EntryForm) {
				f.SelectType(models.EventTypeYellow, 30)
				f.SetSide(models.SideAway)
			},
			"player",
		},
		{
			"sub without side",
			func(f *EntryForm) {
				f.SelectType(models.EventTypeSub, 60)
				f.SetPlayer("Ray")
			},
			"side",
		},
		{
			"note without text",
			func(f *EntryForm) {
				f.SelectType(models.EventTypeNote, 15)
			},
			"text",
		},
		{
			"negative minute",
			func(f *EntryForm) {
				f.SelectType(models.EventTypeHalfTime, 45)
				f.SetMinute(-1)
			},
			"minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewEntryForm()
			tt.setup(f)
			err := f.Validate()
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("Validate() = %v, want a *FieldError", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", fieldErr.Field, tt.wantField)
			}
		})
	}
}

func TestEntryFormHalfTimeNeedsNoFields(t *testing.T) {
	f := NewEntryForm()
	if err := f.SelectType(models.EventTypeHalfTime, 46); err != nil {
		t.Fatal(err)
	}
	params, err := f.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if params.Payload != nil {
		t.Errorf("halfTime payload = %s, want none", params.Payload)
	}
}

func TestEntryFormValidationKeepsEnteredData(t *testing.T) {
	f := NewEntryForm()
	f.SelectType(models.EventTypeGoal, 33)
	f.SetScorer("Mills")
	// Missing side: validation fails but the scorer stays put.
	if _, err := f.Params(); err == nil {
		t.Fatal("expected validation error")
	}
	f.SetSide(models.SideAway)
	if _, err := f.Params(); err != nil {
		t.Fatalf("Params after fixing side: %v", err)
	}
}

func TestEntryFormSubmitTransitions(t *testing.T) {
	f := NewEntryForm()
	f.SelectType(models.EventTypeNote, 10)
	f.SetText("strong wind")

	f.beginSubmit()
	if f.State() != FormSubmitting {
		t.Errorf("state during submit = %q", f.State())
	}

	// A failed submit keeps the data for a retry.
	f.finishSubmit(errors.New("503"))
	if f.State() != FormError {
		t.Errorf("state after failed submit = %q, want error", f.State())
	}
	if f.EventType() != models.EventTypeNote || f.Minute() != 10 {
		t.Error("failed submit cleared the form")
	}

	// A successful submit resets to idle.
	f.beginSubmit()
	f.finishSubmit(nil)
	if f.State() != FormIdle {
		t.Errorf("state after successful submit = %q, want idle", f.State())
	}
	if f.EventType() != models.EventType("") {
		t.Error("successful submit did not clear the event type")
	}
}

func TestEntryFormMinuteOverride(t *testing.T) {
	f := NewEntryForm()
	f.SelectType(models.EventTypeRed, 70)
	f.SetPlayer("Ash")
	f.SetSide(models.SideHome)
	f.SetMinute(68) // scorer corrects the preloaded minute

	params, err := f.Params()
	if err != nil {
		t.Fatal(err)
	}
	if *params.Minute != 68 {
		t.Errorf("minute = %d, want 68", *params.Minute)
	}
}
