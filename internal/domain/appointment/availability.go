package appointment

import (
	"context"
	"time"

	"advisorbooking/internal/pkg/interval"
)

const (
	WorkdayStartHour = 9
	WorkdayEndHour   = 18
	SlotLength       = 30 * time.Minute
)

const dateLayout = "2006-01-02"

// FreeSlots lists the 30-minute slot starts of day's working window that are
// strictly after now and not inside any non-cancelled appointment.
// Unavailability is not consulted; the conflict check enforces it at booking time.
func FreeSlots(day time.Time, appts []Appointment, now time.Time) []time.Time {
	y, m, d := day.Date()
	loc := day.Location()
	first := time.Date(y, m, d, WorkdayStartHour, 0, 0, 0, loc)
	last := time.Date(y, m, d, WorkdayEndHour, 0, 0, 0, loc)

	busy := make([]interval.Interval, 0, len(appts))
	for i := range appts {
		if appts[i].IsCancelled() {
			continue
		}
		busy = append(busy, appts[i].Interval())
	}

	slots := make([]time.Time, 0, int(last.Sub(first)/SlotLength))
	for t := first; t.Before(last); t = t.Add(SlotLength) {
		if !t.After(now) || booked(t, busy) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

func booked(t time.Time, busy []interval.Interval) bool {
	for _, b := range busy {
		if b.Contains(t) {
			return true
		}
	}
	return false
}

// AvailableSlots returns the bookable slot starts for advisorID on day
// (interpreted in the service location). A day that is entirely in the past
// yields no slots.
func (s *Service) AvailableSlots(ctx context.Context, advisorID int64, day time.Time) ([]time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.AvailableSlots")
	defer span.End()

	y, m, d := day.In(s.loc).Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	now := s.clock.Now()
	if !dayEnd.After(now) {
		return []time.Time{}, nil
	}

	appts, err := s.store.AppointmentsForAdvisor(ctx, advisorID, dayStart, dayEnd, true)
	if err != nil {
		return nil, err
	}
	return FreeSlots(dayStart, appts, now), nil
}

// AvailableSlotsOn parses a YYYY-MM-DD date. Malformed input yields no slots.
func (s *Service) AvailableSlotsOn(ctx context.Context, advisorID int64, date string) ([]time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return []time.Time{}, nil
	}
	return s.AvailableSlots(ctx, advisorID, day)
}
