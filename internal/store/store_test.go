package store

import (
	"testing"
	"time"

	"qvuew/internal/models"
)

func TestStats(t *testing.T) {
	rate := int64(1500)
	entries := []models.HistoryEntry{
		{Status: models.HistoryServed, WaitTime: 10, ServiceRate: &rate},
		{Status: models.HistoryServed, WaitTime: 20},
		{Status: models.HistorySkipped, WaitTime: 99},
	}
	got := Stats(entries)
	if got.Served != 2 || got.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.AvgWaitMinutes != 15 {
		t.Fatalf("expected avg 15, got %v", got.AvgWaitMinutes)
	}
	if got.Revenue != 1500 {
		t.Fatalf("expected revenue 1500, got %d", got.Revenue)
	}
	if empty := Stats(nil); empty.AvgWaitMinutes != 0 {
		t.Fatalf("expected zero avg for empty history")
	}
}

func TestHistoryFilterMatches(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := models.HistoryEntry{BusinessID: "b1", Status: models.HistoryServed, Timestamp: base}
	cases := []struct {
		name   string
		filter HistoryFilter
		want   bool
	}{
		{"empty", HistoryFilter{}, true},
		{"business", HistoryFilter{BusinessID: "b2"}, false},
		{"status", HistoryFilter{Status: models.HistorySkipped}, false},
		{"from inclusive", HistoryFilter{From: base}, true},
		{"to exclusive", HistoryFilter{To: base}, false},
		{"window", HistoryFilter{From: base.Add(-time.Hour), To: base.Add(time.Hour)}, true},
	}
	for _, tt := range cases {
		if got := tt.filter.Matches(entry); got != tt.want {
			t.Fatalf("%s: Matches=%v, want %v", tt.name, got, tt.want)
		}
	}
}
