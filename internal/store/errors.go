package store

import "errors"

var (
	ErrHistoryNotFound = errors.New("history entry not found")
	ErrRateNotFound    = errors.New("rate not found")
)
