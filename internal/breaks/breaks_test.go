package breaks

import (
	"errors"
	"testing"
	"time"

	"qvuew/internal/models"
)

func TestStartValidation(t *testing.T) {
	now := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		reason  string
		minutes int
		fields  int
	}{
		{"empty reason", "", 15, 1},
		{"blank reason", "   ", 15, 1},
		{"zero minutes", "Tea Break", 0, 1},
		{"both", "", -1, 2},
	}
	for _, tt := range cases {
		c := New()
		_, err := c.Start(tt.reason, tt.minutes, now)
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
		if len(verr.Fields) != tt.fields {
			t.Fatalf("%s: expected %d field errors, got %+v", tt.name, tt.fields, verr.Fields)
		}
		if c.Active() {
			t.Fatalf("%s: rejected start must not activate", tt.name)
		}
	}
}

func TestCountdownAutoResume(t *testing.T) {
	now := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	c := New()
	state, err := c.Start("Tea Break", 15, now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !state.Active || state.RemainingSeconds != 900 {
		t.Fatalf("unexpected state %+v", state)
	}
	if !state.EndTime.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected end time %v", state.EndTime)
	}

	for i := 1; i < 900; i++ {
		if ended := c.Tick(now.Add(time.Duration(i) * time.Second)); ended {
			t.Fatalf("break ended early at second %d", i)
		}
		if got := c.State().RemainingSeconds; got != 900-i {
			t.Fatalf("second %d: remaining %d, want %d", i, got, 900-i)
		}
	}
	if ended := c.Tick(now.Add(900 * time.Second)); !ended {
		t.Fatalf("expected break to end at zero")
	}
	if c.Active() || c.State().Reason != "" {
		t.Fatalf("expected idle controller, got %+v", c.State())
	}
	if c.Tick(now.Add(901 * time.Second)) {
		t.Fatalf("idle controller must not report another resume")
	}
}

func TestResumeClears(t *testing.T) {
	now := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	c := New()
	if _, err := c.Start("Lunch Break", 30, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Resume()
	state := c.State()
	if state.Active || state.EndTime != nil || state.RemainingSeconds != 0 {
		t.Fatalf("expected cleared state, got %+v", state)
	}
}

func TestParseMinutes(t *testing.T) {
	if got, err := ParseMinutes(" 20 "); err != nil || got != 20 {
		t.Fatalf("ParseMinutes(20)=(%d,%v)", got, err)
	}
	for _, raw := range []string{"", "0", "-5", "abc", "1.5"} {
		if _, err := ParseMinutes(raw); err == nil {
			t.Fatalf("ParseMinutes(%q) should fail", raw)
		}
	}
}

func TestStartWhileActiveKeepsRunningBreak(t *testing.T) {
	now := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	c := New()
	if _, err := c.Start("Tea Break", 15, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	later := now.Add(10 * time.Minute)
	c.Tick(later)
	state, err := c.Start("Lunch Break", 60, later)
	if !errors.Is(err, ErrBreakActive) {
		t.Fatalf("expected ErrBreakActive, got %v", err)
	}
	if state.Reason != "Tea Break" || state.RemainingSeconds != 300 {
		t.Fatalf("running break must be unchanged, got %+v", state)
	}
	c.Resume()
	if _, err := c.Start("Lunch Break", 60, later); err != nil {
		t.Fatalf("start after resume: %v", err)
	}
}
