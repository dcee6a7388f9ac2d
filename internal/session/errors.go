package session

import "errors"

var ErrOnBreak = errors.New("queue is paused for a break")
