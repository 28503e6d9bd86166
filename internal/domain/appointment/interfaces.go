package appointment

import (
	"context"
	"time"

	"advisorbooking/internal/events"

	"github.com/google/uuid"
)

// Store is the query surface the scheduling core needs from persistence.
type Store interface {
	// AppointmentsForAdvisor returns appointments whose [start, end) intersects [from, to), ordered by start.
	AppointmentsForAdvisor(ctx context.Context, advisorID int64, from, to time.Time, excludeCancelled bool) ([]Appointment, error)
	UnavailabilityForAdvisor(ctx context.Context, advisorID int64, from, to time.Time) ([]Unavailability, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	SaveAppointment(ctx context.Context, a *Appointment) error
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	GetUnavailability(ctx context.Context, id uuid.UUID) (*Unavailability, error)
	SaveUnavailability(ctx context.Context, u *Unavailability) error
	DeleteUnavailability(ctx context.Context, advisorID int64, id uuid.UUID) error

	DueForReminder(ctx context.Context, from, to time.Time) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error

	// WithinAdvisorTx runs fn in a single transaction serialized per advisor.
	// fn must only use the Store it is given.
	WithinAdvisorTx(ctx context.Context, advisorID int64, fn func(tx Store) error) error
}

// Publisher receives events after the owning transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, evt events.Event)
}

// Locker serializes writers for one advisor across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Recorder collects operation outcomes. Nil-safe implementations are expected.
type Recorder interface {
	ObserveOperation(op, outcome string)
	ObserveConflict(reason string)
}
