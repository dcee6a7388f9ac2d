// Package filestore keeps history and rate cards in memory and, when given a
// path, rewrites the whole collection to a JSON file after every change.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"qvuew/internal/models"
	"qvuew/internal/store"
)

type Store struct {
	mu      sync.Mutex
	path    string
	history []models.HistoryEntry
	rates   []models.RateCardItem
}

type fileData struct {
	History []models.HistoryEntry `json:"history"`
	Rates   []models.RateCardItem `json:"rates"`
}

// Open loads path if it exists. An empty path gives a memory-only store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return s, nil
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s.history = data.History
	s.rates = data.Rates
	return s, nil
}

func (s *Store) Append(ctx context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.history
	s.history = append(append([]models.HistoryEntry(nil), prev...), entry)
	if err := s.persistLocked(); err != nil {
		s.history = prev
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, businessID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.history {
		if entry.ID != entryID || entry.BusinessID != businessID {
			continue
		}
		prev := s.history
		next := make([]models.HistoryEntry, 0, len(prev)-1)
		next = append(next, prev[:i]...)
		s.history = append(next, prev[i+1:]...)
		if err := s.persistLocked(); err != nil {
			s.history = prev
			return err
		}
		return nil
	}
	return store.ErrHistoryNotFound
}

func (s *Store) Query(ctx context.Context, filter store.HistoryFilter) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HistoryEntry
	for _, entry := range s.history {
		if filter.Matches(entry) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) Lookup(ctx context.Context, businessID, name string) (models.RateCardItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.rateIndexLocked(businessID, name); idx >= 0 {
		return s.rates[idx], true, nil
	}
	return models.RateCardItem{}, false, nil
}

func (s *Store) ListRates(ctx context.Context, businessID string) ([]models.RateCardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RateCardItem
	for _, item := range s.rates {
		if item.BusinessID == businessID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) UpsertRate(ctx context.Context, item models.RateCardItem) (models.RateCardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	prev := s.rates
	next := append([]models.RateCardItem(nil), prev...)
	if idx := s.rateIndexLocked(item.BusinessID, item.Name); idx >= 0 {
		next[idx] = item
	} else {
		next = append(next, item)
	}
	s.rates = next
	if err := s.persistLocked(); err != nil {
		s.rates = prev
		return models.RateCardItem{}, err
	}
	return item, nil
}

func (s *Store) DeleteRate(ctx context.Context, businessID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.rateIndexLocked(businessID, name)
	if idx < 0 {
		return store.ErrRateNotFound
	}
	prev := s.rates
	next := make([]models.RateCardItem, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	s.rates = append(next, prev[idx+1:]...)
	if err := s.persistLocked(); err != nil {
		s.rates = prev
		return err
	}
	return nil
}

func (s *Store) rateIndexLocked(businessID, name string) int {
	name = strings.TrimSpace(name)
	for i, item := range s.rates {
		if item.BusinessID == businessID && strings.EqualFold(item.Name, name) {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(fileData{History: s.history, Rates: s.rates}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".qvuew-*.json")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
