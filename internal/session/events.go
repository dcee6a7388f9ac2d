package session

import "time"

const (
	EventQueueUpdated       = "queue.updated"
	EventBreakStarted       = "break.started"
	EventBreakEnded         = "break.ended"
	EventInactivityReminder = "inactivity.reminder"
)

type Event struct {
	Type       string      `json:"type"`
	BusinessID string      `json:"business_id"`
	Payload    interface{} `json:"payload"`
	CreatedAt  time.Time   `json:"created_at"`
}

type Publisher interface {
	Publish(event Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
