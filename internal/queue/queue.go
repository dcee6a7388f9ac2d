package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qvuew/internal/clock"
	"qvuew/internal/models"
	"qvuew/internal/store"

	"github.com/google/uuid"
)

const defaultWaitStep = 5

type AddCustomerInput struct {
	ID       string
	Name     string
	Phone    string
	Gender   string
	Service  string
	WaitTime int
	Notes    string
}

type Options struct {
	UndoLimit       int
	ServiceOptional bool
	Clock           clock.Clock
}

// Queue is one business's live line. Index 0 is the current customer and
// on-hold customers always sit at the tail. Queue is not safe for concurrent
// use; callers serialize access.
type Queue struct {
	businessID      string
	history         store.HistoryRepository
	rates           store.RateCard
	clock           clock.Clock
	serviceOptional bool

	customers  []models.Customer
	ledger     *Ledger
	served     int
	nextNumber int
	lastAction time.Time
}

func New(businessID string, history store.HistoryRepository, rates store.RateCard, options Options) *Queue {
	c := options.Clock
	if c == nil {
		c = clock.Real{}
	}
	return &Queue{
		businessID:      businessID,
		history:         history,
		rates:           rates,
		clock:           c,
		serviceOptional: options.ServiceOptional,
		ledger:          NewLedger(LedgerCapacity, options.UndoLimit),
		nextNumber:      1,
		lastAction:      c.Now(),
	}
}

func (q *Queue) Add(ctx context.Context, input AddCustomerInput) (models.Customer, error) {
	customer, err := q.buildCustomer(ctx, input)
	if err != nil {
		return models.Customer{}, err
	}
	for _, existing := range q.customers {
		if existing.ID == customer.ID {
			return models.Customer{}, fmt.Errorf("customer %s already queued: %w", customer.ID, ErrInvalidState)
		}
	}
	q.nextNumber++
	q.customers = append(q.customers, customer)
	q.normalize()
	added, _ := q.find(customer.ID)
	return q.customers[added].Clone(), nil
}

func (q *Queue) buildCustomer(ctx context.Context, input AddCustomerInput) (models.Customer, error) {
	verr := &models.ValidationError{}

	phone, digits := models.NormalizePhone(input.Phone)
	switch {
	case digits == 0:
		verr.Add("phone", "phone is required")
	case digits < 7 || digits > 15:
		verr.Add("phone", "phone must be 7-15 digits")
	}

	gender := strings.ToLower(strings.TrimSpace(input.Gender))
	if gender == "" {
		gender = models.GenderOther
	}
	if !models.ValidGender(gender) {
		verr.Add("gender", "gender must be male, female, or other")
	}

	if input.WaitTime < 0 {
		verr.Add("wait_time", "wait_time must not be negative")
	}

	service := strings.TrimSpace(input.Service)
	var rate *int64
	if service == "" && !q.serviceOptional {
		verr.Add("service", "service is required")
	}
	if service != "" && q.rates != nil {
		item, found, err := q.rates.Lookup(ctx, q.businessID, service)
		if err != nil {
			return models.Customer{}, fmt.Errorf("rate lookup: %w", err)
		}
		if found {
			value := item.Rate
			rate = &value
			service = item.Name
		} else {
			listed, err := q.rates.ListRates(ctx, q.businessID)
			if err != nil {
				return models.Customer{}, fmt.Errorf("rate list: %w", err)
			}
			if len(listed) > 0 {
				verr.Add("service", "service is not on the rate card")
			}
		}
	}

	if err := verr.OrNil(); err != nil {
		return models.Customer{}, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	wait := input.WaitTime
	if wait == 0 {
		wait = q.estimateWait()
	}

	return models.Customer{
		ID:          id,
		Number:      q.nextNumber,
		Name:        strings.TrimSpace(input.Name),
		Phone:       phone,
		Gender:      gender,
		Service:     service,
		ServiceRate: rate,
		WaitTime:    wait,
		JoinTime:    q.clock.Now(),
		Status:      models.StatusWaiting,
		Notes:       strings.TrimSpace(input.Notes),
	}, nil
}

// estimateWait places a new customer one step behind the last active one.
func (q *Queue) estimateWait() int {
	last := 0
	for _, c := range q.customers {
		if c.Status != models.StatusOnHold {
			last = c.WaitTime
		}
	}
	return last + defaultWaitStep
}

// Advance serves the current customer and promotes the next one.
func (q *Queue) Advance(ctx context.Context) (models.Customer, error) {
	if len(q.customers) == 0 || q.customers[0].Status != models.StatusCurrent {
		return models.Customer{}, ErrQueueEmpty
	}
	served := q.customers[0].Clone()
	now := q.clock.Now()

	entry := q.historyEntry(served, models.HistoryServed, 0, q.served+1, now)
	if err := q.history.Append(ctx, entry); err != nil {
		return models.Customer{}, fmt.Errorf("append history: %w", err)
	}

	q.ledger.Push(LedgerEntry{
		ID:        uuid.NewString(),
		Kind:      ActionAdvance,
		Customer:  served,
		HistoryID: entry.ID,
		Timestamp: now,
	})
	q.customers = q.customers[1:]
	q.served++
	q.lastAction = now
	q.normalize()
	return served, nil
}

// Skip moves a waiting customer to just behind the current one. Skipping the
// current customer keeps the order but is still logged. The bool reports
// whether the customer moved.
func (q *Queue) Skip(ctx context.Context, id string) (models.Customer, bool, error) {
	idx, ok := q.find(id)
	if !ok {
		return models.Customer{}, false, ErrCustomerNotFound
	}
	if !ValidTransition(ActionSkip, q.customers[idx].Status) {
		return models.Customer{}, false, ErrInvalidState
	}
	snapshot := q.customers[idx].Clone()
	now := q.clock.Now()

	entry := q.historyEntry(snapshot, models.HistorySkipped, idx, q.served, now)
	if err := q.history.Append(ctx, entry); err != nil {
		return models.Customer{}, false, fmt.Errorf("append history: %w", err)
	}

	q.ledger.Push(LedgerEntry{
		ID:            uuid.NewString(),
		Kind:          ActionSkip,
		Customer:      snapshot,
		OriginalIndex: idx,
		HistoryID:     entry.ID,
		Timestamp:     now,
	})

	moved := false
	if idx > 1 {
		customer := q.customers[idx]
		q.customers = removeAt(q.customers, idx)
		q.customers = insertAt(q.customers, 1, customer)
		moved = true
	}
	q.normalize()
	newIdx, _ := q.find(id)
	return q.customers[newIdx].Clone(), moved, nil
}

func (q *Queue) Hold(ctx context.Context, id string) (models.Customer, error) {
	idx, ok := q.find(id)
	if !ok {
		return models.Customer{}, ErrCustomerNotFound
	}
	if !ValidTransition(ActionHold, q.customers[idx].Status) {
		return models.Customer{}, ErrInvalidState
	}
	customer := q.customers[idx]
	customer.Status = models.StatusOnHold
	q.customers = append(removeAt(q.customers, idx), customer)
	q.normalize()
	return customer.Clone(), nil
}

// Unhold puts a held customer right behind the current one, or makes them
// current when nobody else is waiting.
func (q *Queue) Unhold(ctx context.Context, id string) (models.Customer, error) {
	idx, ok := q.find(id)
	if !ok {
		return models.Customer{}, ErrCustomerNotFound
	}
	if !ValidTransition(ActionUnhold, q.customers[idx].Status) {
		return models.Customer{}, ErrInvalidState
	}
	customer := q.customers[idx]
	customer.Status = models.StatusWaiting
	rest := removeAt(q.customers, idx)
	pos := 0
	if len(rest) > 0 {
		pos = 1
	}
	q.customers = insertAt(rest, pos, customer)
	q.normalize()
	newIdx, _ := q.find(id)
	return q.customers[newIdx].Clone(), nil
}

func (q *Queue) Remove(ctx context.Context, id string) (models.Customer, error) {
	idx, ok := q.find(id)
	if !ok {
		return models.Customer{}, ErrCustomerNotFound
	}
	removed := q.customers[idx].Clone()
	q.customers = removeAt(q.customers, idx)
	q.normalize()
	return removed, nil
}

// AdjustTime changes a customer's wait and pushes the same change onto every
// waiting customer behind them. Each wait is floored at one minute and the
// cascaded delta is the one actually applied after flooring.
func (q *Queue) AdjustTime(ctx context.Context, id string, deltaMinutes int) (models.Customer, error) {
	idx, ok := q.find(id)
	if !ok {
		return models.Customer{}, ErrCustomerNotFound
	}
	before := q.customers[idx].WaitTime
	after := clampWait(before + deltaMinutes)
	q.customers[idx].WaitTime = after
	applied := after - before
	for i := idx + 1; i < len(q.customers); i++ {
		if q.customers[i].Status != models.StatusWaiting {
			continue
		}
		q.customers[i].WaitTime = clampWait(q.customers[i].WaitTime + applied)
	}
	return q.customers[idx].Clone(), nil
}

// Undo reverses the ledger entry at index (0 is the most recent).
func (q *Queue) Undo(ctx context.Context, index int) (LedgerEntry, error) {
	entry, err := q.ledger.Entry(index)
	if err != nil {
		return LedgerEntry{}, err
	}

	// A reused id belongs to a different walk-in; queue numbers are never reused.
	idx, live := q.find(entry.Customer.ID)
	if live && q.customers[idx].Number != entry.Customer.Number {
		return LedgerEntry{}, fmt.Errorf("customer %s was re-queued: %w", entry.Customer.ID, ErrInvalidState)
	}

	if entry.HistoryID != "" {
		if err := q.history.Delete(ctx, q.businessID, entry.HistoryID); err != nil && !errors.Is(err, store.ErrHistoryNotFound) {
			return LedgerEntry{}, fmt.Errorf("delete history: %w", err)
		}
	}

	switch entry.Kind {
	case ActionAdvance:
		if live {
			q.customers = removeAt(q.customers, idx)
		}
		restored := entry.Customer.Clone()
		restored.Status = models.StatusCurrent
		q.customers = insertAt(q.customers, 0, restored)
		if q.served > 0 {
			q.served--
		}
	case ActionSkip:
		// A customer who left the queue since the skip is not brought back.
		if live {
			customer := q.customers[idx]
			rest := removeAt(q.customers, idx)
			pos := entry.OriginalIndex
			if pos > len(rest) {
				pos = len(rest)
			}
			if customer.Status != models.StatusOnHold {
				customer.Status = models.StatusWaiting
			}
			q.customers = insertAt(rest, pos, customer)
		}
	default:
		return LedgerEntry{}, fmt.Errorf("unknown ledger kind %q: %w", entry.Kind, ErrInvalidState)
	}

	q.ledger.consume(index)
	q.normalize()
	return entry, nil
}

func (q *Queue) Snapshot() []models.Customer {
	out := make([]models.Customer, len(q.customers))
	for i, c := range q.customers {
		out[i] = c.Clone()
	}
	return out
}

func (q *Queue) Get(id string) (models.Customer, bool) {
	idx, ok := q.find(id)
	if !ok {
		return models.Customer{}, false
	}
	return q.customers[idx].Clone(), true
}

func (q *Queue) Len() int { return len(q.customers) }

func (q *Queue) Served() int { return q.served }

func (q *Queue) Ledger() *Ledger { return q.ledger }

func (q *Queue) LastActionAt() time.Time { return q.lastAction }

// TouchAt moves the inactivity reference forward, e.g. after staff dismiss a
// reminder.
func (q *Queue) TouchAt(now time.Time) { q.lastAction = now }

func (q *Queue) historyEntry(c models.Customer, status string, idx, totalServed int, now time.Time) models.HistoryEntry {
	return models.HistoryEntry{
		ID:          uuid.NewString(),
		BusinessID:  q.businessID,
		CustomerID:  c.ID,
		Name:        c.DisplayName(),
		ArrivalTime: c.JoinTime,
		WaitTime:    c.WaitTime,
		Status:      status,
		Gender:      c.Gender,
		Phone:       c.Phone,
		Timestamp:   now,
		Position:    idx + 1,
		TotalServed: totalServed,
		Notes:       c.Notes,
		Service:     c.Service,
		ServiceRate: c.Clone().ServiceRate,
	}
}

// normalize restores the ordering invariants: held customers form the tail in
// their existing order, the first active customer is current and every other
// active customer is waiting.
func (q *Queue) normalize() {
	active := make([]models.Customer, 0, len(q.customers))
	var held []models.Customer
	for _, c := range q.customers {
		if c.Status == models.StatusOnHold {
			held = append(held, c)
			continue
		}
		active = append(active, c)
	}
	for i := range active {
		if i == 0 {
			active[i].Status = models.StatusCurrent
		} else {
			active[i].Status = models.StatusWaiting
		}
	}
	q.customers = append(active, held...)
}

func (q *Queue) find(id string) (int, bool) {
	for i, c := range q.customers {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

func clampWait(value int) int {
	if value < models.MinWaitTime {
		return models.MinWaitTime
	}
	return value
}

func removeAt(list []models.Customer, idx int) []models.Customer {
	out := make([]models.Customer, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

func insertAt(list []models.Customer, idx int, c models.Customer) []models.Customer {
	out := make([]models.Customer, 0, len(list)+1)
	out = append(out, list[:idx]...)
	out = append(out, c)
	return append(out, list[idx:]...)
}
