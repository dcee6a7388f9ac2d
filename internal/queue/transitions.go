package queue

import "qvuew/internal/models"

const (
	ActionAdvance    = "advance"
	ActionSkip       = "skip"
	ActionHold       = "hold"
	ActionUnhold     = "unhold"
	ActionRemove     = "remove"
	ActionAdjustTime = "adjust_time"
)

var anyStatus = []string{models.StatusCurrent, models.StatusWaiting, models.StatusOnHold}

var transitionMap = map[string][]string{
	ActionAdvance:    {models.StatusCurrent},
	ActionSkip:       {models.StatusCurrent, models.StatusWaiting},
	ActionHold:       {models.StatusCurrent, models.StatusWaiting},
	ActionUnhold:     {models.StatusOnHold},
	ActionRemove:     anyStatus,
	ActionAdjustTime: anyStatus,
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
