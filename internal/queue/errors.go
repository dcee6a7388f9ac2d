package queue

import "errors"

var (
	ErrQueueEmpty        = errors.New("queue is empty")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInvalidState      = errors.New("invalid customer state")
	ErrNothingToUndo     = errors.New("no more undo available")
	ErrUndoEntryNotFound = errors.New("undo entry not found")
)
