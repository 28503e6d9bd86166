package appointment

import (
	"context"
	"time"

	"advisorbooking/internal/pkg/interval"

	"github.com/google/uuid"
)

// ConflictResult is the outcome of a read-time conflict check.
type ConflictResult struct {
	Conflict bool           `json:"conflict"`
	Reason   ConflictReason `json:"reason,omitempty"`
}

// CheckConflict tests a candidate booking against the advisor's appointments
// and unavailability windows. The start is truncated to whole seconds, as on
// Create, and a start at or before now is ErrPastSlot.
func (s *Service) CheckConflict(ctx context.Context, advisorID int64, start time.Time, durationMinutes int) (ConflictResult, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.CheckConflict")
	defer span.End()

	if err := validateDuration(durationMinutes); err != nil {
		return ConflictResult{}, err
	}
	res, err := detectConflict(ctx, s.store, advisorID, normalize(start), durationMinutes, s.clock.Now())
	if err != nil {
		return ConflictResult{}, err
	}
	if res.Conflict {
		s.metrics.ObserveConflict(string(res.Reason))
	}
	return res, nil
}

func detectConflict(ctx context.Context, store Store, advisorID int64, start time.Time, durationMinutes int, now time.Time) (ConflictResult, error) {
	if !start.After(now) {
		return ConflictResult{}, ErrPastSlot
	}
	candidate := interval.New(start, time.Duration(durationMinutes)*time.Minute)

	appts, err := store.AppointmentsForAdvisor(ctx, advisorID, candidate.Start, candidate.End, true)
	if err != nil {
		return ConflictResult{}, err
	}
	if overlapsAppointments(candidate, appts, uuid.Nil) {
		return ConflictResult{Conflict: true, Reason: ReasonSlotTaken}, nil
	}

	windows, err := store.UnavailabilityForAdvisor(ctx, advisorID, candidate.Start, candidate.End)
	if err != nil {
		return ConflictResult{}, err
	}
	for i := range windows {
		if windows[i].Interval().Overlaps(candidate) {
			return ConflictResult{Conflict: true, Reason: ReasonAdvisorUnavailable}, nil
		}
	}
	return ConflictResult{}, nil
}

// overlapsAppointments ignores cancelled entries and the appointment with id skip.
func overlapsAppointments(candidate interval.Interval, appts []Appointment, skip uuid.UUID) bool {
	for i := range appts {
		a := &appts[i]
		if a.IsCancelled() || (skip != uuid.Nil && a.ID == skip) {
			continue
		}
		if a.Interval().Overlaps(candidate) {
			return true
		}
	}
	return false
}

func rangeOf(from, to time.Time) interval.Interval {
	return interval.Interval{Start: from, End: to}
}
