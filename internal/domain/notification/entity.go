package notification

import (
	"time"

	"advisorbooking/internal/events"

	"github.com/google/uuid"
)

// Kind is the fixed set of user-facing notification types.
type Kind string

const (
	KindRequest      Kind = "appointment_request"
	KindAccepted     Kind = "appointment_accepted"
	KindRejected     Kind = "appointment_rejected"
	KindCancelled    Kind = "appointment_cancelled"
	KindRescheduled  Kind = "appointment_rescheduled"
	KindReminder     Kind = "appointment_reminder"
	KindConfirmation Kind = "appointment_confirmation"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRequest, KindAccepted, KindRejected, KindCancelled, KindRescheduled, KindReminder, KindConfirmation:
		return true
	}
	return false
}

var eventKinds = map[events.Type]Kind{
	events.TypeRequested:   KindRequest,
	events.TypeCreated:     KindConfirmation,
	events.TypeAccepted:    KindAccepted,
	events.TypeRejected:    KindRejected,
	events.TypeCancelled:   KindCancelled,
	events.TypeRescheduled: KindRescheduled,
	events.TypeReminder:    KindReminder,
}

// KindForEvent maps a committed appointment event onto the notification it produces.
func KindForEvent(t events.Type) (Kind, bool) {
	k, ok := eventKinds[t]
	return k, ok
}

// Notification holds a weak link to its appointment: it outlives
// cancellation and is only ever mutated by marking it read.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	RecipientID   int64      `json:"recipient_id"`
	Kind          Kind       `json:"type"`
	Message       string     `json:"message"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	IsRead        bool       `json:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
