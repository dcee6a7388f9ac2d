package store

import (
	"context"
	"time"

	"qvuew/internal/models"
)

type HistoryFilter struct {
	BusinessID string
	Status     string
	From       time.Time
	To         time.Time
	Limit      int
}

// HistoryRepository is the history sink the queue writes served and skipped
// customers to. Query returns newest entries first.
type HistoryRepository interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	Delete(ctx context.Context, businessID, entryID string) error
	Query(ctx context.Context, filter HistoryFilter) ([]models.HistoryEntry, error)
}

type RateCard interface {
	Lookup(ctx context.Context, businessID, name string) (models.RateCardItem, bool, error)
	ListRates(ctx context.Context, businessID string) ([]models.RateCardItem, error)
	UpsertRate(ctx context.Context, item models.RateCardItem) (models.RateCardItem, error)
	DeleteRate(ctx context.Context, businessID, name string) error
}

type HistoryStats struct {
	Served         int     `json:"served"`
	Skipped        int     `json:"skipped"`
	AvgWaitMinutes float64 `json:"avg_wait_minutes"`
	Revenue        int64   `json:"revenue"`
}

// Stats summarises entries for the stats view. Average wait covers served
// customers only.
func Stats(entries []models.HistoryEntry) HistoryStats {
	var stats HistoryStats
	waitTotal := 0
	for _, entry := range entries {
		switch entry.Status {
		case models.HistoryServed:
			stats.Served++
			waitTotal += entry.WaitTime
			if entry.ServiceRate != nil {
				stats.Revenue += *entry.ServiceRate
			}
		case models.HistorySkipped:
			stats.Skipped++
		}
	}
	if stats.Served > 0 {
		stats.AvgWaitMinutes = float64(waitTotal) / float64(stats.Served)
	}
	return stats
}

// Matches reports whether entry passes filter. Shared by in-process repositories.
func (f HistoryFilter) Matches(entry models.HistoryEntry) bool {
	if f.BusinessID != "" && entry.BusinessID != f.BusinessID {
		return false
	}
	if f.Status != "" && entry.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && entry.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !entry.Timestamp.Before(f.To) {
		return false
	}
	return true
}
