package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"advisorbooking/internal/domain/appointment"
	"advisorbooking/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func at(day time.Time, h, m int) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, time.UTC)
}

func TestBuildWeek_EmptyGrid(t *testing.T) {
	w := BuildWeek(1, monday, nil, nil)

	require.Len(t, w.Days, 7)
	for _, d := range w.Days {
		require.Len(t, d.Cells, 12)
		assert.Equal(t, 8, d.Cells[0].Hour)
		assert.Equal(t, 19, d.Cells[11].Hour)
		for _, c := range d.Cells {
			assert.Nil(t, c.Event)
		}
	}
	assert.True(t, w.Days[6].Date.Equal(monday.AddDate(0, 0, 6)))
}

func TestBuildWeek_AppointmentSpansCells(t *testing.T) {
	a := appointment.Appointment{ID: uuid.New(), ClientID: 9, Start: at(monday, 10, 30), DurationMinutes: 90, Status: appointment.StatusConfirmed}
	w := BuildWeek(1, monday, []appointment.Appointment{a}, nil)
	cells := w.Days[0].Cells

	assert.Nil(t, cells[1].Event)
	require.NotNil(t, cells[2].Event)
	assert.True(t, cells[2].Event.IsStart)
	assert.Equal(t, EventAppointment, cells[2].Event.Kind)
	require.NotNil(t, cells[3].Event)
	assert.False(t, cells[3].Event.IsStart)
	assert.Equal(t, a.ID, cells[3].Event.ID)
	assert.Nil(t, cells[4].Event)
}

func TestBuildWeek_TouchingAppointmentDoesNotBleed(t *testing.T) {
	a := appointment.Appointment{ID: uuid.New(), Start: at(monday, 9, 0), DurationMinutes: 60, Status: appointment.StatusPending}
	w := BuildWeek(1, monday, []appointment.Appointment{a}, nil)

	assert.NotNil(t, w.Days[0].Cells[1].Event)
	assert.Nil(t, w.Days[0].Cells[2].Event)
}

func TestBuildWeek_AppointmentWinsOverUnavailability(t *testing.T) {
	a := appointment.Appointment{ID: uuid.New(), Start: at(monday, 11, 0), DurationMinutes: 60, Status: appointment.StatusConfirmed}
	u := appointment.Unavailability{ID: uuid.New(), Start: at(monday, 9, 0), End: at(monday, 13, 0), Reason: appointment.ReasonTraining}
	w := BuildWeek(1, monday, []appointment.Appointment{a}, []appointment.Unavailability{u})
	cells := w.Days[0].Cells

	assert.Equal(t, EventUnavailability, cells[1].Event.Kind)
	assert.True(t, cells[1].Event.IsStart)
	assert.Equal(t, EventUnavailability, cells[2].Event.Kind)
	assert.False(t, cells[2].Event.IsStart)
	assert.Equal(t, EventAppointment, cells[3].Event.Kind)
	assert.Equal(t, EventUnavailability, cells[4].Event.Kind)
	assert.Equal(t, "training", cells[4].Event.Reason)
	assert.Nil(t, cells[5].Event)
}

func TestBuildWeek_SkipsCancelled(t *testing.T) {
	a := appointment.Appointment{ID: uuid.New(), Start: at(monday, 10, 0), DurationMinutes: 60, Status: appointment.StatusCancelled}
	w := BuildWeek(1, monday, []appointment.Appointment{a}, nil)
	assert.Nil(t, w.Days[0].Cells[2].Event)
}

func TestBuildWeek_MultiDayUnavailability(t *testing.T) {
	u := appointment.Unavailability{ID: uuid.New(), Start: at(monday, 18, 0), End: at(monday.AddDate(0, 0, 1), 9, 0)}
	w := BuildWeek(1, monday, nil, []appointment.Unavailability{u})

	assert.True(t, w.Days[0].Cells[10].Event.IsStart)
	assert.NotNil(t, w.Days[0].Cells[11].Event)
	assert.False(t, w.Days[1].Cells[0].Event.IsStart)
	assert.Nil(t, w.Days[1].Cells[1].Event)
}

func TestGridStart(t *testing.T) {
	assert.Equal(t, time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC), GridStart(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), GridStart(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC), GridStart(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBuildMonth_Layout(t *testing.T) {
	first := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	inJune := appointment.Appointment{ID: uuid.New(), Start: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC), DurationMinutes: 30, Status: appointment.StatusPending}
	overflow := appointment.Appointment{ID: uuid.New(), Start: time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC), DurationMinutes: 30, Status: appointment.StatusConfirmed}
	leave := appointment.Unavailability{ID: uuid.New(), Start: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 22, 0, 0, 0, 0, time.UTC)}

	m := BuildMonth(1, first, time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC), []appointment.Appointment{inJune, overflow}, []appointment.Unavailability{leave})

	require.Len(t, m.Cells, 42)
	assert.Equal(t, time.June, m.Month)
	assert.Equal(t, time.Monday, m.Cells[0].Date.Weekday())
	assert.False(t, m.Cells[0].InMonth)
	assert.True(t, m.Cells[5].InMonth)
	assert.Equal(t, 1, m.Cells[5].Date.Day())

	weeks := m.Weeks()
	require.Len(t, weeks, 6)
	for _, row := range weeks {
		assert.Len(t, row, 7)
	}

	june12 := m.Cells[16]
	assert.Equal(t, 12, june12.Date.Day())
	assert.True(t, june12.IsToday)
	require.Len(t, june12.Appointments, 1)
	assert.Equal(t, inJune.ID, june12.Appointments[0].ID)

	july2 := m.Cells[36]
	assert.Equal(t, 2, july2.Date.Day())
	assert.False(t, july2.InMonth)
	assert.Len(t, july2.Appointments, 1)

	assert.Len(t, m.Cells[24].Unavailability, 1)
	assert.Len(t, m.Cells[25].Unavailability, 1)
	assert.Empty(t, m.Cells[26].Unavailability)
	assert.NotNil(t, m.Cells[26].Appointments)
}

type stubSource struct {
	appts    []appointment.Appointment
	windows  []appointment.Unavailability
	err      error
	gotFrom  time.Time
	gotTo    time.Time
	excluded bool
}

func (s *stubSource) AppointmentsForAdvisor(ctx context.Context, advisorID int64, from, to time.Time, excludeCancelled bool) ([]appointment.Appointment, error) {
	s.gotFrom, s.gotTo, s.excluded = from, to, excludeCancelled
	return s.appts, s.err
}

func (s *stubSource) UnavailabilityForAdvisor(ctx context.Context, advisorID int64, from, to time.Time) ([]appointment.Unavailability, error) {
	return s.windows, nil
}

func TestService_WeekRange(t *testing.T) {
	src := &stubSource{}
	svc := NewService(src, clock.Fixed{T: monday.Add(30 * time.Hour)}, time.UTC)

	w, err := svc.WeekOn(context.Background(), 1, "2024-06-05")
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)))
	assert.True(t, src.gotFrom.Equal(time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)))
	assert.True(t, src.gotTo.Equal(time.Date(2024, 6, 11, 20, 0, 0, 0, time.UTC)))
	assert.True(t, src.excluded)

	w, err = svc.WeekOn(context.Background(), 1, "")
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)))

	_, err = svc.WeekOn(context.Background(), 1, "06/05/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestService_MonthFallsBackToCurrent(t *testing.T) {
	src := &stubSource{}
	svc := NewService(src, clock.Fixed{T: time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)}, nil)

	for _, tc := range []struct{ year, month int }{{0, 0}, {2024, 13}, {2024, 0}, {-1, 5}} {
		m, err := svc.Month(context.Background(), 1, tc.year, tc.month)
		require.NoError(t, err)
		assert.Equal(t, 2024, m.Year)
		assert.Equal(t, time.June, m.Month)
	}

	m, err := svc.Month(context.Background(), 1, 2025, 2)
	require.NoError(t, err)
	assert.Equal(t, time.February, m.Month)
	assert.True(t, src.gotFrom.Equal(time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)))
	assert.True(t, src.gotTo.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestService_SourceError(t *testing.T) {
	svc := NewService(&stubSource{err: errors.New("db gone")}, nil, nil)
	_, err := svc.Week(context.Background(), 1, monday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar: appointments")
}
