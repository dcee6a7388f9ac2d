package models

import "time"

type RateCardItem struct {
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Rate       int64     `json:"rate"`
	Currency   string    `json:"currency"`
	UpdatedAt  time.Time `json:"updated_at"`
}
