package models

import "time"

type HistoryEntry struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	CustomerID  string    `json:"customer_id"`
	Name        string    `json:"name"`
	ArrivalTime time.Time `json:"arrival_time"`
	WaitTime    int       `json:"wait_time"`
	Status      string    `json:"status"`
	Gender      string    `json:"gender"`
	Phone       string    `json:"phone"`
	Timestamp   time.Time `json:"timestamp"`
	Position    int       `json:"position"`
	TotalServed int       `json:"total_served"`
	Notes       string    `json:"notes,omitempty"`
	Service     string    `json:"service,omitempty"`
	ServiceRate *int64    `json:"service_rate,omitempty"`
}

const (
	HistoryServed  = "served"
	HistorySkipped = "skipped"
)
