package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names a committed appointment transition.
type Type string

const (
	TypeRequested   Type = "appointment.requested"
	TypeCreated     Type = "appointment.created"
	TypeAccepted    Type = "appointment.accepted"
	TypeRejected    Type = "appointment.rejected"
	TypeCancelled   Type = "appointment.cancelled"
	TypeRescheduled Type = "appointment.rescheduled"
	TypeReminder    Type = "appointment.reminder"
)

// Event is published once a transition has been committed to the store.
// RecipientID is the user who should be told about it.
type Event struct {
	ID              uuid.UUID `json:"id"`
	Type            Type      `json:"type"`
	AppointmentID   uuid.UUID `json:"appointment_id"`
	AdvisorID       int64     `json:"advisor_id"`
	ClientID        int64     `json:"client_id"`
	ActorID         int64     `json:"actor_id"`
	RecipientID     int64     `json:"recipient_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
