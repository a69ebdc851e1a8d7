package monitor

import "time"

// Status is the last observed health of every checked dependency.
type Status struct {
	Components    map[string]bool `json:"components"`
	AlarmsPending int             `json:"alarms_pending"`
	LastCheck     time.Time       `json:"last_check"`
}

// Healthy reports whether every component passed its last check.
func (s Status) Healthy() bool {
	for _, ok := range s.Components {
		if !ok {
			return false
		}
	}
	return !s.LastCheck.IsZero()
}
