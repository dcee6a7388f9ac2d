package models

import (
	"strconv"
	"strings"
	"time"
)

type Customer struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Gender      string    `json:"gender"`
	Service     string    `json:"service,omitempty"`
	ServiceRate *int64    `json:"service_rate,omitempty"`
	WaitTime    int       `json:"wait_time"`
	JoinTime    time.Time `json:"join_time"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

const (
	StatusCurrent = "current"
	StatusWaiting = "waiting"
	StatusOnHold  = "on_hold"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const MinWaitTime = 1

// DisplayName falls back to a guest label for customers who gave no name.
func (c Customer) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return "Guest " + strconv.Itoa(c.Number)
}

func (c Customer) OnHold() bool {
	return c.Status == StatusOnHold
}

// Clone returns a copy that shares no pointers with c.
func (c Customer) Clone() Customer {
	out := c
	if c.ServiceRate != nil {
		rate := *c.ServiceRate
		out.ServiceRate = &rate
	}
	return out
}

func ValidGender(value string) bool {
	switch value {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// NormalizePhone keeps digits (and a leading plus) and reports the digit count.
// Ten digit numbers are rendered as XXX-XXX-XXXX.
func NormalizePhone(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	out := b.String()
	if digits == 10 && !strings.HasPrefix(out, "+") {
		return out[0:3] + "-" + out[3:6] + "-" + out[6:], digits
	}
	return out, digits
}
