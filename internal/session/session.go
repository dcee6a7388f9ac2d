package session

import (
	"context"
	"log"
	"sync"
	"time"

	"qvuew/internal/breaks"
	"qvuew/internal/clock"
	"qvuew/internal/models"
	"qvuew/internal/queue"
	"qvuew/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultInactivityTimeout = 5 * time.Minute

var tracer = otel.Tracer("qvuew/session")

type Options struct {
	UndoLimit         int
	ServiceOptional   bool
	InactivityTimeout time.Duration
	Clock             clock.Clock
}

type UndoState struct {
	Entries   []queue.LedgerEntry `json:"entries"`
	Used      int                 `json:"used"`
	Limit     int                 `json:"limit"`
	Remaining int                 `json:"remaining"`
}

type Snapshot struct {
	BusinessID   string            `json:"business_id"`
	Customers    []models.Customer `json:"customers"`
	Break        models.BreakState `json:"break"`
	Undo         UndoState         `json:"undo"`
	Served       int               `json:"served"`
	LastActionAt time.Time         `json:"last_action_at"`
}

// Session serializes every operation on one business's queue, undo ledger
// and break controller.
type Session struct {
	mu                sync.Mutex
	businessID        string
	queue             *queue.Queue
	brk               *breaks.Controller
	publisher         Publisher
	clock             clock.Clock
	inactivityTimeout time.Duration
	remindedFor       time.Time
}

func New(businessID string, history store.HistoryRepository, rates store.RateCard, publisher Publisher, options Options) *Session {
	c := options.Clock
	if c == nil {
		c = clock.Real{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Session{
		businessID: businessID,
		queue: queue.New(businessID, history, rates, queue.Options{
			UndoLimit:       options.UndoLimit,
			ServiceOptional: options.ServiceOptional,
			Clock:           c,
		}),
		brk:               breaks.New(),
		publisher:         publisher,
		clock:             c,
		inactivityTimeout: options.InactivityTimeout,
	}
}

func (s *Session) BusinessID() string { return s.businessID }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Add(ctx context.Context, input queue.AddCustomerInput) (models.Customer, error) {
	var out models.Customer
	err := s.mutate(ctx, "add", func(ctx context.Context) error {
		var err error
		out, err = s.queue.Add(ctx, input)
		return err
	})
	return out, err
}

func (s *Session) Advance(ctx context.Context) (models.Customer, error) {
	var out models.Customer
	err := s.mutate(ctx, "advance", func(ctx context.Context) error {
		var err error
		out, err = s.queue.Advance(ctx)
		return err
	})
	return out, err
}

func (s *Session) Skip(ctx context.Context, id string) (models.Customer, bool, error) {
	var out models.Customer
	var moved bool
	err := s.mutate(ctx, "skip", func(ctx context.Context) error {
		var err error
		out, moved, err = s.queue.Skip(ctx, id)
		return err
	})
	return out, moved, err
}

func (s *Session) Hold(ctx context.Context, id string) (models.Customer, error) {
	var out models.Customer
	err := s.mutate(ctx, "hold", func(ctx context.Context) error {
		var err error
		out, err = s.queue.Hold(ctx, id)
		return err
	})
	return out, err
}

func (s *Session) Unhold(ctx context.Context, id string) (models.Customer, error) {
	var out models.Customer
	err := s.mutate(ctx, "unhold", func(ctx context.Context) error {
		var err error
		out, err = s.queue.Unhold(ctx, id)
		return err
	})
	return out, err
}

func (s *Session) Remove(ctx context.Context, id string) (models.Customer, error) {
	var out models.Customer
	err := s.mutate(ctx, "remove", func(ctx context.Context) error {
		var err error
		out, err = s.queue.Remove(ctx, id)
		return err
	})
	return out, err
}

func (s *Session) AdjustTime(ctx context.Context, id string, deltaMinutes int) (models.Customer, error) {
	var out models.Customer
	err := s.mutate(ctx, "adjust_time", func(ctx context.Context) error {
		var err error
		out, err = s.queue.AdjustTime(ctx, id, deltaMinutes)
		return err
	})
	return out, err
}

func (s *Session) Undo(ctx context.Context, index int) (queue.LedgerEntry, error) {
	var out queue.LedgerEntry
	err := s.mutate(ctx, "undo", func(ctx context.Context) error {
		var err error
		out, err = s.queue.Undo(ctx, index)
		return err
	})
	return out, err
}

func (s *Session) StartBreak(reason string, minutes int) (models.BreakState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.brk.Start(reason, minutes, s.clock.Now())
	if err != nil {
		return state, err
	}
	log.Printf("break started business=%s reason=%q minutes=%d", s.businessID, state.Reason, minutes)
	s.publish(EventBreakStarted, state)
	return state, nil
}

func (s *Session) ResumeBreak() models.BreakState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.brk.Active() {
		s.endBreakLocked("resumed")
	}
	return s.brk.State()
}

func (s *Session) DismissReminder() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.queue.TouchAt(now)
	return now
}

func (s *Session) LastActionAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.LastActionAt()
}

// Tick advances the break countdown and checks for staff inactivity.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.brk.Tick(now) {
		s.endBreakLocked("elapsed")
		return
	}
	if s.brk.Active() || s.inactivityTimeout <= 0 {
		return
	}
	last := s.queue.LastActionAt()
	if s.queue.Len() == 0 || last.Equal(s.remindedFor) {
		return
	}
	if now.Sub(last) >= s.inactivityTimeout {
		s.remindedFor = last
		idle := int(now.Sub(last) / time.Second)
		log.Printf("inactivity reminder business=%s idle_seconds=%d", s.businessID, idle)
		s.publish(EventInactivityReminder, map[string]interface{}{
			"last_action_at": last,
			"idle_seconds":   idle,
		})
	}
}

func (s *Session) endBreakLocked(why string) {
	s.brk.Resume()
	s.queue.TouchAt(s.clock.Now())
	log.Printf("break ended business=%s cause=%s", s.businessID, why)
	s.publish(EventBreakEnded, s.brk.State())
	s.publish(EventQueueUpdated, s.snapshotLocked())
}

func (s *Session) mutate(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "session."+action)
	defer span.End()
	span.SetAttributes(attribute.String("business_id", s.businessID))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.brk.Active() {
		span.SetStatus(codes.Error, ErrOnBreak.Error())
		return ErrOnBreak
	}
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.publish(EventQueueUpdated, s.snapshotLocked())
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	ledger := s.queue.Ledger()
	return Snapshot{
		BusinessID: s.businessID,
		Customers:  s.queue.Snapshot(),
		Break:      s.brk.State(),
		Undo: UndoState{
			Entries:   ledger.Entries(),
			Used:      ledger.Used(),
			Limit:     ledger.Limit(),
			Remaining: ledger.Remaining(),
		},
		Served:       s.queue.Served(),
		LastActionAt: s.queue.LastActionAt(),
	}
}

func (s *Session) publish(eventType string, payload interface{}) {
	s.publisher.Publish(Event{
		Type:       eventType,
		BusinessID: s.businessID,
		Payload:    payload,
		CreatedAt:  s.clock.Now(),
	})
}
