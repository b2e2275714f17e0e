package planner

import "fmt"

// ErrInvalidAction is returned when an action cannot be applied to a draft.
// The draft is left unchanged.
type ErrInvalidAction struct {
	Action string
	Reason string
}

func (e *ErrInvalidAction) Error() string {
	return fmt.Sprintf("invalid %s action: %s", e.Action, e.Reason)
}

// ErrMissingCoordinates is returned when a stop cannot be routed because its
// place has no position
type ErrMissingCoordinates struct {
	Day        string
	ActivityID string
}

func (e *ErrMissingCoordinates) Error() string {
	return fmt.Sprintf("cannot optimize %s: activity %s has no coordinates", e.Day, e.ActivityID)
}
