package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not_found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("invalid_state")
	ErrAlreadyCancelled     = errors.New("already_cancelled")
	ErrCancelledAppointment = errors.New("cancelled_appointment")
	ErrPastSlot             = errors.New("past_slot")
	ErrConflict             = errors.New("appointment_conflict")
)

type ConflictReason string

const (
	ReasonSlotTaken          ConflictReason = "slot_taken"
	ReasonAdvisorUnavailable ConflictReason = "advisor_unavailable"
)

// ConflictError reports why a candidate interval cannot be booked.
type ConflictError struct {
	Reason ConflictReason
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("appointment conflict: %s", e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func conflict(reason ConflictReason) error {
	return &ConflictError{Reason: reason}
}

// ConflictReasonOf extracts the reason from err, or "" when err is not a conflict.
func ConflictReasonOf(err error) ConflictReason {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
