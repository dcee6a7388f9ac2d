package queue

import (
	"errors"
	"testing"

	"qvuew/internal/models"
)

func TestLedgerEvictsOldest(t *testing.T) {
	l := NewLedger(LedgerCapacity, DefaultUndoLimit)
	for _, id := range []string{"a", "b", "c", "d"} {
		l.Push(LedgerEntry{ID: id, Kind: ActionAdvance})
	}
	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"d", "c", "b"}
	for i, id := range want {
		if entries[i].ID != id {
			t.Fatalf("entry %d = %s, want %s", i, entries[i].ID, id)
		}
	}
}

func TestLedgerEpisodeEndsOnBudget(t *testing.T) {
	l := NewLedger(3, 2)
	for _, id := range []string{"a", "b", "c"} {
		l.Push(LedgerEntry{ID: id})
	}
	l.consume(0)
	if l.Used() != 1 || l.Len() != 2 {
		t.Fatalf("unexpected ledger after one undo: used=%d len=%d", l.Used(), l.Len())
	}
	l.consume(0)
	if l.Len() != 0 || l.Used() != 0 {
		t.Fatalf("expected episode reset, used=%d len=%d", l.Used(), l.Len())
	}
	if _, err := l.Entry(0); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestLedgerEntryOutOfRange(t *testing.T) {
	l := NewLedger(0, 0)
	l.Push(LedgerEntry{ID: "a"})
	if _, err := l.Entry(2); !errors.Is(err, ErrUndoEntryNotFound) {
		t.Fatalf("expected ErrUndoEntryNotFound, got %v", err)
	}
}

func TestLedgerSnapshotIsolated(t *testing.T) {
	rate := int64(100)
	customer := models.Customer{ID: "c1", WaitTime: 5, ServiceRate: &rate}
	l := NewLedger(0, 0)
	l.Push(LedgerEntry{ID: "a", Customer: customer})
	customer.WaitTime = 50
	*customer.ServiceRate = 9
	entry, err := l.Entry(0)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.Customer.WaitTime != 5 || *entry.Customer.ServiceRate != 100 {
		t.Fatalf("snapshot mutated: %+v", entry.Customer)
	}
}

func TestLedgerRemaining(t *testing.T) {
	l := NewLedger(3, 3)
	if l.Remaining() != 0 {
		t.Fatalf("expected nothing remaining on empty ledger")
	}
	l.Push(LedgerEntry{ID: "a"})
	l.Push(LedgerEntry{ID: "b"})
	if l.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", l.Remaining())
	}
}
