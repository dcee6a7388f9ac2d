package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"qvuew/internal/hub"
	"qvuew/internal/session"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// RealtimeHandler serves the SockJS endpoint under prefix. Displays send
// {"action":"subscribe","business_id":"..."} and then receive every session
// event for that business, starting with the current queue snapshot.
func RealtimeHandler(prefix string, h *hub.Hub, sessions *session.Manager) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(conn sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = conn.Send(string(msg))
			}
		}()

		for {
			msg, err := conn.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.Subscribe(client, "")
				continue
			}
			if !isValidUUID(parsed.BusinessID) {
				_ = conn.Close(4001, "invalid business_id")
				return
			}
			h.Subscribe(client, parsed.BusinessID)
			sendSnapshot(client, sessions.Snapshot(parsed.BusinessID))
		}
	})
}

func sendSnapshot(client *hub.Client, snap session.Snapshot) {
	payload, err := json.Marshal(session.Event{
		Type:       session.EventQueueUpdated,
		BusinessID: snap.BusinessID,
		Payload:    snap,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("snapshot encode error business=%s: %v", snap.BusinessID, err)
		return
	}
	select {
	case client.Send <- payload:
	default:
		log.Printf("drop snapshot for client %s", client.ID)
	}
}
