package calendar

import (
	"time"

	"advisorbooking/internal/domain/appointment"
	"advisorbooking/internal/pkg/interval"

	"github.com/google/uuid"
)

const (
	GridStartHour = 8
	GridEndHour   = 20
	DaysPerWeek   = 7
	MonthCells    = 42
)

type EventKind string

const (
	EventAppointment    EventKind = "appointment"
	EventUnavailability EventKind = "unavailability"
)

// Event is what a single grid cell displays.
type Event struct {
	Kind     EventKind `json:"kind"`
	ID       uuid.UUID `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	ClientID int64     `json:"client_id,omitempty"`
	Status   string    `json:"status,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	IsStart  bool      `json:"is_start"`
}

type Cell struct {
	Start time.Time `json:"start"`
	Hour  int       `json:"hour"`
	Event *Event    `json:"event"`
}

type Day struct {
	Date  time.Time `json:"date"`
	Cells []Cell    `json:"cells"`
}

type Week struct {
	AdvisorID int64     `json:"advisor_id"`
	Start     time.Time `json:"start"`
	Days      []Day     `json:"days"`
}

// BuildWeek lays appointments and unavailability over an hourly grid of
// seven days from weekStart. Appointments win over unavailability in a cell.
func BuildWeek(advisorID int64, weekStart time.Time, appts []appointment.Appointment, windows []appointment.Unavailability) *Week {
	first := midnight(weekStart)
	w := &Week{AdvisorID: advisorID, Start: first, Days: make([]Day, 0, DaysPerWeek)}

	for d := 0; d < DaysPerWeek; d++ {
		date := first.AddDate(0, 0, d)
		day := Day{Date: date, Cells: make([]Cell, 0, GridEndHour-GridStartHour)}
		for h := GridStartHour; h < GridEndHour; h++ {
			cellStart := atHour(date, h)
			cell := interval.New(cellStart, time.Hour)
			day.Cells = append(day.Cells, Cell{
				Start: cellStart,
				Hour:  h,
				Event: eventFor(cell, appts, windows),
			})
		}
		w.Days = append(w.Days, day)
	}
	return w
}

func eventFor(cell interval.Interval, appts []appointment.Appointment, windows []appointment.Unavailability) *Event {
	for i := range appts {
		a := &appts[i]
		if a.IsCancelled() || !a.Interval().Overlaps(cell) {
			continue
		}
		return &Event{
			Kind:     EventAppointment,
			ID:       a.ID,
			Start:    a.Start,
			End:      a.End(),
			ClientID: a.ClientID,
			Status:   string(a.Status),
			Notes:    a.Notes,
			IsStart:  cell.Contains(a.Start),
		}
	}
	for i := range windows {
		u := &windows[i]
		if !u.Interval().Overlaps(cell) {
			continue
		}
		return &Event{
			Kind:    EventUnavailability,
			ID:      u.ID,
			Start:   u.Start,
			End:     u.End,
			Reason:  string(u.Reason),
			Notes:   u.Notes,
			IsStart: cell.Contains(u.Start),
		}
	}
	return nil
}

type MonthCell struct {
	Date           time.Time                    `json:"date"`
	InMonth        bool                         `json:"in_month"`
	IsToday        bool                         `json:"is_today"`
	Appointments   []appointment.Appointment    `json:"appointments"`
	Unavailability []appointment.Unavailability `json:"unavailability"`
}

type Month struct {
	AdvisorID int64       `json:"advisor_id"`
	Year      int         `json:"year"`
	Month     time.Month  `json:"month"`
	First     time.Time   `json:"first"`
	Cells     []MonthCell `json:"-"`
}

// Weeks returns the grid as six rows of seven days.
func (m *Month) Weeks() [][]MonthCell {
	rows := make([][]MonthCell, 0, MonthCells/DaysPerWeek)
	for i := 0; i+DaysPerWeek <= len(m.Cells); i += DaysPerWeek {
		rows = append(rows, m.Cells[i:i+DaysPerWeek])
	}
	return rows
}

// GridStart is the Monday on or before first.
func GridStart(first time.Time) time.Time {
	offset := (int(first.Weekday()) + 6) % 7
	return midnight(first).AddDate(0, 0, -offset)
}

// BuildMonth returns a 42-cell grid starting on the Monday on or before the
// first of the month. Each cell lists the entries that intersect its day.
func BuildMonth(advisorID int64, first, today time.Time, appts []appointment.Appointment, windows []appointment.Unavailability) *Month {
	first = midnight(first)
	m := &Month{
		AdvisorID: advisorID,
		Year:      first.Year(),
		Month:     first.Month(),
		First:     first,
		Cells:     make([]MonthCell, 0, MonthCells),
	}
	todayDate := midnight(today.In(first.Location()))

	start := GridStart(first)
	for i := 0; i < MonthCells; i++ {
		date := start.AddDate(0, 0, i)
		day := interval.Interval{Start: date, End: date.AddDate(0, 0, 1)}
		cell := MonthCell{
			Date:           date,
			InMonth:        date.Month() == first.Month(),
			IsToday:        date.Equal(todayDate),
			Appointments:   []appointment.Appointment{},
			Unavailability: []appointment.Unavailability{},
		}
		for _, a := range appts {
			if !a.IsCancelled() && a.Interval().Overlaps(day) {
				cell.Appointments = append(cell.Appointments, a)
			}
		}
		for _, u := range windows {
			if u.Interval().Overlaps(day) {
				cell.Unavailability = append(cell.Unavailability, u)
			}
		}
		m.Cells = append(m.Cells, cell)
	}
	return m
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atHour(day time.Time, h int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, h, 0, 0, 0, day.Location())
}
