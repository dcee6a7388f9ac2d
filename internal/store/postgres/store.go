package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"qvuew/internal/models"
	"qvuew/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryLimit = 500

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, entry models.HistoryEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queue_history (
			entry_id, business_id, customer_id, name, arrival_time, wait_minutes, status,
			gender, phone, occurred_at, position, total_served, notes, service, service_rate
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, entry.ID, entry.BusinessID, entry.CustomerID, entry.Name, entry.ArrivalTime, entry.WaitTime, entry.Status,
		entry.Gender, entry.Phone, entry.Timestamp, entry.Position, entry.TotalServed, entry.Notes,
		nullIfEmpty(entry.Service), entry.ServiceRate)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, businessID, entryID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM queue_history WHERE entry_id = $1 AND business_id = $2
	`, entryID, businessID)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrHistoryNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter store.HistoryFilter) ([]models.HistoryEntry, error) {
	query := `
		SELECT entry_id, business_id, customer_id, name, arrival_time, wait_minutes, status,
			gender, phone, occurred_at, position, total_served, notes, service, service_rate
		FROM queue_history
		WHERE business_id = $1
	`
	args := []interface{}{filter.BusinessID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND occurred_at < $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var serviceNull sql.NullString
		var rateNull sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.BusinessID, &entry.CustomerID, &entry.Name, &entry.ArrivalTime, &entry.WaitTime, &entry.Status,
			&entry.Gender, &entry.Phone, &entry.Timestamp, &entry.Position, &entry.TotalServed, &entry.Notes, &serviceNull, &rateNull); err != nil {
			return nil, err
		}
		if serviceNull.Valid {
			entry.Service = serviceNull.String
		}
		entry.ServiceRate = nullInt64Ptr(rateNull)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) Lookup(ctx context.Context, businessID, name string) (models.RateCardItem, bool, error) {
	var item models.RateCardItem
	row := s.pool.QueryRow(ctx, `
		SELECT business_id, name, rate, currency, updated_at
		FROM rate_cards
		WHERE business_id = $1 AND name_key = $2
	`, businessID, nameKey(name))
	if err := row.Scan(&item.BusinessID, &item.Name, &item.Rate, &item.Currency, &item.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RateCardItem{}, false, nil
		}
		return models.RateCardItem{}, false, err
	}
	return item, true, nil
}

func (s *Store) ListRates(ctx context.Context, businessID string) ([]models.RateCardItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT business_id, name, rate, currency, updated_at
		FROM rate_cards
		WHERE business_id = $1
		ORDER BY name_key ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.RateCardItem
	for rows.Next() {
		var item models.RateCardItem
		if err := rows.Scan(&item.BusinessID, &item.Name, &item.Rate, &item.Currency, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertRate(ctx context.Context, item models.RateCardItem) (models.RateCardItem, error) {
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO rate_cards (business_id, name_key, name, rate, currency, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (business_id, name_key) DO UPDATE
		SET name = EXCLUDED.name, rate = EXCLUDED.rate, currency = EXCLUDED.currency, updated_at = EXCLUDED.updated_at
		RETURNING business_id, name, rate, currency, updated_at
	`, item.BusinessID, nameKey(item.Name), strings.TrimSpace(item.Name), item.Rate, item.Currency, item.UpdatedAt)
	var out models.RateCardItem
	if err := row.Scan(&out.BusinessID, &out.Name, &out.Rate, &out.Currency, &out.UpdatedAt); err != nil {
		return models.RateCardItem{}, fmt.Errorf("upsert rate: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteRate(ctx context.Context, businessID, name string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM rate_cards WHERE business_id = $1 AND name_key = $2
	`, businessID, nameKey(name))
	if err != nil {
		return fmt.Errorf("delete rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRateNotFound
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullInt64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}
