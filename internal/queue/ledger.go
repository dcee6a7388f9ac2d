package queue

import (
	"time"

	"qvuew/internal/models"
)

const (
	LedgerCapacity   = 3
	DefaultUndoLimit = 3
)

// LedgerEntry records one reversible action. Customer is a snapshot taken when
// the action happened; HistoryID is the history entry the action created.
type LedgerEntry struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Customer      models.Customer `json:"customer"`
	OriginalIndex int             `json:"original_index"`
	HistoryID     string          `json:"history_id"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Ledger keeps the most recent reversible actions, newest first. Undos are
// budgeted per episode: an episode starts with the first action logged while
// none is running and ends when the budget is spent or the ledger runs dry.
type Ledger struct {
	entries   []LedgerEntry
	capacity  int
	limit     int
	used      int
	inEpisode bool
}

func NewLedger(capacity, limit int) *Ledger {
	if capacity <= 0 {
		capacity = LedgerCapacity
	}
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	return &Ledger{capacity: capacity, limit: limit}
}

func (l *Ledger) Push(entry LedgerEntry) {
	if !l.inEpisode {
		l.inEpisode = true
		l.used = 0
	}
	entry.Customer = entry.Customer.Clone()
	l.entries = append([]LedgerEntry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

func (l *Ledger) Entry(index int) (LedgerEntry, error) {
	if len(l.entries) == 0 {
		return LedgerEntry{}, ErrNothingToUndo
	}
	if index < 0 || index >= len(l.entries) {
		return LedgerEntry{}, ErrUndoEntryNotFound
	}
	entry := l.entries[index]
	entry.Customer = entry.Customer.Clone()
	return entry, nil
}

// consume drops the entry at index after a successful reversal and closes the
// episode when the budget or the ledger is exhausted.
func (l *Ledger) consume(index int) {
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	l.used++
	if l.used >= l.limit || len(l.entries) == 0 {
		l.Reset()
	}
}

func (l *Ledger) Reset() {
	l.entries = nil
	l.used = 0
	l.inEpisode = false
}

func (l *Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(l.entries))
	for i, entry := range l.entries {
		entry.Customer = entry.Customer.Clone()
		out[i] = entry
	}
	return out
}

func (l *Ledger) Len() int { return len(l.entries) }

func (l *Ledger) Used() int { return l.used }

func (l *Ledger) Limit() int { return l.limit }

func (l *Ledger) Remaining() int {
	if len(l.entries) == 0 {
		return 0
	}
	left := l.limit - l.used
	if left > len(l.entries) {
		left = len(l.entries)
	}
	return left
}
