package appointment

import (
	"time"

	"advisorbooking/internal/pkg/interval"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 240
	DefaultDurationMinutes = 60
)

// Appointment is the aggregate root of a booking. It is never deleted;
// cancellation is a status change.
type Appointment struct {
	ID              uuid.UUID  `json:"id"`
	AdvisorID       int64      `json:"advisor_id"`
	ClientID        int64      `json:"client_id"`
	Start           time.Time  `json:"start"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           string     `json:"notes"`
	Status          Status     `json:"status"`
	ReminderSentAt  *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

func (a *Appointment) End() time.Time {
	return a.Start.Add(a.Duration())
}

func (a *Appointment) Interval() interval.Interval {
	return interval.New(a.Start, a.Duration())
}

func (a *Appointment) IsParticipant(userID int64) bool {
	return a.AdvisorID == userID || a.ClientID == userID
}

func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelled
}

type Reason string

const (
	ReasonVacation Reason = "vacation"
	ReasonSick     Reason = "sick"
	ReasonTraining Reason = "training"
	ReasonPersonal Reason = "personal"
	ReasonOther    Reason = "other"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonVacation, ReasonSick, ReasonTraining, ReasonPersonal, ReasonOther:
		return true
	}
	return false
}

// Unavailability is an advisor blackout window. Windows may overlap each
// other and are never edited in place.
type Unavailability struct {
	ID        uuid.UUID `json:"id"`
	AdvisorID int64     `json:"advisor_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    Reason    `json:"reason"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *Unavailability) Interval() interval.Interval {
	return interval.Interval{Start: u.Start, End: u.End}
}

// ListFilter narrows ListAppointments. Zero values mean "any".
type ListFilter struct {
	AdvisorID int64
	ClientID  int64
	Status    Status
	From      time.Time
	To        time.Time
	Limit     int
}
