package hub

import (
	"encoding/json"
	"testing"
	"time"

	"qvuew/internal/session"
)

func TestPublishMatchesBusiness(t *testing.T) {
	h := New()
	a := &Client{ID: "a", Send: make(chan []byte, 1)}
	b := &Client{ID: "b", Send: make(chan []byte, 1)}
	idle := &Client{ID: "idle", Send: make(chan []byte, 1)}
	h.Register(a)
	h.Register(b)
	h.Register(idle)
	h.Subscribe(a, "biz-1")
	h.Subscribe(b, "biz-2")

	h.Publish(session.Event{Type: session.EventQueueUpdated, BusinessID: "biz-1", CreatedAt: time.Now()})

	select {
	case msg := <-a.Send:
		var event session.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if event.Type != session.EventQueueUpdated || event.BusinessID != "biz-1" {
			t.Fatalf("unexpected event %+v", event)
		}
	default:
		t.Fatalf("expected message for subscribed client")
	}
	if len(b.Send) != 0 || len(idle.Send) != 0 {
		t.Fatalf("other clients must not receive the event")
	}
}

func TestPublishDropsForSlowClient(t *testing.T) {
	h := New()
	c := &Client{ID: "slow", Send: make(chan []byte, 1), BusinessID: "biz-1"}
	h.Register(c)
	h.Publish(session.Event{Type: "x", BusinessID: "biz-1"})
	h.Publish(session.Event{Type: "y", BusinessID: "biz-1"})
	if len(c.Send) != 1 {
		t.Fatalf("expected one buffered message, got %d", len(c.Send))
	}
}

func TestUnregisterTwice(t *testing.T) {
	h := New()
	c := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)
	if h.Len() != 0 {
		t.Fatalf("expected no clients")
	}
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","business_id":"biz-1"}`))
	if !ok || msg.BusinessID != "biz-1" {
		t.Fatalf("unexpected parse result %+v %v", msg, ok)
	}
	if _, ok := ParseSubscribe([]byte(`{"action":"dance"}`)); ok {
		t.Fatalf("unknown action must be rejected")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatalf("invalid json must be rejected")
	}
}
