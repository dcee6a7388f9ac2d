package breaks

import (
	"strconv"
	"strings"
	"time"

	"qvuew/internal/models"
)

var Presets = []string{"Tea Break", "Lunch Break", "Staff Meeting", "Emergency"}

// Controller is the Idle -> OnBreak -> Idle state machine. It does not gate
// the queue itself; callers check Active before mutating.
type Controller struct {
	active    bool
	reason    string
	startedAt time.Time
	endTime   time.Time
	remaining int
}

func New() *Controller {
	return &Controller{}
}

// ParseMinutes parses a custom duration entered by staff.
func ParseMinutes(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		verr := &models.ValidationError{}
		verr.Add("duration_minutes", "duration must be a positive whole number of minutes")
		return 0, verr
	}
	return value, nil
}

// Start moves Idle to OnBreak. A running break must be resumed first.
func (c *Controller) Start(reason string, minutes int, now time.Time) (models.BreakState, error) {
	if c.active {
		return c.State(), ErrBreakActive
	}
	reason = strings.TrimSpace(reason)
	verr := &models.ValidationError{}
	if reason == "" {
		verr.Add("reason", "reason is required")
	}
	if minutes <= 0 {
		verr.Add("duration_minutes", "duration must be a positive whole number of minutes")
	}
	if err := verr.OrNil(); err != nil {
		return models.BreakState{}, err
	}
	c.active = true
	c.reason = reason
	c.startedAt = now
	c.endTime = now.Add(time.Duration(minutes) * time.Minute)
	c.remaining = minutes * 60
	return c.State(), nil
}

// Tick recomputes the countdown. It reports true when the break ran out on
// this tick and the controller resumed.
func (c *Controller) Tick(now time.Time) bool {
	if !c.active {
		return false
	}
	c.remaining = remainingSeconds(c.endTime, now)
	if c.remaining == 0 {
		c.Resume()
		return true
	}
	return false
}

func (c *Controller) Resume() {
	c.active = false
	c.reason = ""
	c.startedAt = time.Time{}
	c.endTime = time.Time{}
	c.remaining = 0
}

func (c *Controller) Active() bool { return c.active }

func (c *Controller) State() models.BreakState {
	if !c.active {
		return models.BreakState{}
	}
	started := c.startedAt
	end := c.endTime
	return models.BreakState{
		Active:           true,
		Reason:           c.reason,
		StartedAt:        &started,
		EndTime:          &end,
		RemainingSeconds: c.remaining,
	}
}

func remainingSeconds(end, now time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}
