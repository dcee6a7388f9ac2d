package models

import "time"

type BreakState struct {
	Active           bool       `json:"active"`
	Reason           string     `json:"reason,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
}
