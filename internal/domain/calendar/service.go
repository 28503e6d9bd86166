package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"advisorbooking/internal/domain/appointment"
	"advisorbooking/internal/pkg/clock"
)

var ErrInvalidDate = errors.New("invalid date")

// Source is the read-only part of the appointment store used for calendars.
type Source interface {
	AppointmentsForAdvisor(ctx context.Context, advisorID int64, from, to time.Time, excludeCancelled bool) ([]appointment.Appointment, error)
	UnavailabilityForAdvisor(ctx context.Context, advisorID int64, from, to time.Time) ([]appointment.Unavailability, error)
}

type Service struct {
	source Source
	clock  clock.Clock
	loc    *time.Location
}

func NewService(source Source, c clock.Clock, loc *time.Location) *Service {
	if c == nil {
		c = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{source: source, clock: c, loc: loc}
}

// Week renders the seven days from weekStart's date. Cancelled appointments are omitted.
func (s *Service) Week(ctx context.Context, advisorID int64, weekStart time.Time) (*Week, error) {
	first := midnight(weekStart.In(s.loc))
	from := atHour(first, GridStartHour)
	to := atHour(first.AddDate(0, 0, DaysPerWeek-1), GridEndHour)

	appts, windows, err := s.load(ctx, advisorID, from, to)
	if err != nil {
		return nil, err
	}
	return BuildWeek(advisorID, first, appts, windows), nil
}

// WeekOn parses a YYYY-MM-DD start date; empty means today.
func (s *Service) WeekOn(ctx context.Context, advisorID int64, date string) (*Week, error) {
	if date == "" {
		return s.Week(ctx, advisorID, s.clock.Now())
	}
	start, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return s.Week(ctx, advisorID, start)
}

// Month renders the 6x7 grid for year/month. Out-of-range input falls back
// to the current month.
func (s *Service) Month(ctx context.Context, advisorID int64, year, month int) (*Month, error) {
	now := s.clock.Now().In(s.loc)
	if year < 1 || month < 1 || month > 12 {
		year, month = now.Year(), int(now.Month())
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	start := GridStart(first)
	end := start.AddDate(0, 0, MonthCells)

	appts, windows, err := s.load(ctx, advisorID, start, end)
	if err != nil {
		return nil, err
	}
	return BuildMonth(advisorID, first, now, appts, windows), nil
}

func (s *Service) load(ctx context.Context, advisorID int64, from, to time.Time) ([]appointment.Appointment, []appointment.Unavailability, error) {
	appts, err := s.source.AppointmentsForAdvisor(ctx, advisorID, from, to, true)
	if err != nil {
		return nil, nil, fmt.Errorf("calendar: appointments: %w", err)
	}
	windows, err := s.source.UnavailabilityForAdvisor(ctx, advisorID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("calendar: unavailability: %w", err)
	}
	return appts, windows, nil
}
