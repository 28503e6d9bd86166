package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"advisorbooking/internal/events"
	"advisorbooking/internal/identity"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"
	"advisorbooking/internal/pkg/validator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const messageTimeLayout = "Monday 02 January 2006 at 15:04"

type Service struct {
	store     Store
	publisher Publisher
	locker    Locker
	clock     clock.Clock
	loc       *time.Location
	logger    *logging.Logger
	metrics   Recorder
	tracer    trace.Tracer
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocation sets the zone used for working hours and message formatting.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocker adds a cross-process per-advisor lock around every write.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithMetrics(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func NewService(store Store, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: publisher,
		clock:     clock.System{},
		loc:       time.UTC,
		logger:    logging.Default(),
		metrics:   noopRecorder{},
		tracer:    otel.Tracer("advisorbooking/appointment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

type CreateInput struct {
	AdvisorID          int64     `json:"advisor_id" validate:"required,gt=0"`
	ClientID           int64     `json:"client_id" validate:"required,gt=0,nefield=AdvisorID"`
	Start              time.Time `json:"start" validate:"required"`
	DurationMinutes    int       `json:"duration_minutes" validate:"min=15,max=240"`
	Notes              string    `json:"notes" validate:"max=2000"`
	InitiatedByAdvisor bool      `json:"-"`
}

// Create books a new appointment. Client requests start pending; advisor
// bookings are confirmed immediately.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Create", trace.WithAttributes(
		attribute.Int64("advisor.id", in.AdvisorID),
		attribute.Int64("client.id", in.ClientID),
		attribute.Bool("initiated_by_advisor", in.InitiatedByAdvisor),
	))
	defer span.End()

	if fields := validator.Validate(in); fields != nil {
		return nil, s.fail(span, "create", validationf("%s", validator.Summary(fields)))
	}

	now := s.clock.Now()
	status := StatusPending
	if in.InitiatedByAdvisor {
		status = StatusConfirmed
	}
	appt := &Appointment{
		AdvisorID:       in.AdvisorID,
		ClientID:        in.ClientID,
		Start:           normalize(in.Start),
		DurationMinutes: in.DurationMinutes,
		Notes:           in.Notes,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.withAdvisor(ctx, in.AdvisorID, func(tx Store) error {
		res, err := detectConflict(ctx, tx, appt.AdvisorID, appt.Start, appt.DurationMinutes, now)
		if err != nil {
			return err
		}
		if res.Conflict {
			return conflict(res.Reason)
		}
		return tx.SaveAppointment(ctx, appt)
	})
	if err != nil {
		return nil, s.fail(span, "create", err)
	}
	s.succeed(span, "create", appt)

	if in.InitiatedByAdvisor {
		s.publish(ctx, s.newEvent(events.TypeCreated, appt, appt.AdvisorID, appt.ClientID,
			fmt.Sprintf("An appointment has been scheduled for you on %s.", s.when(appt.Start)), ""))
	} else {
		s.publish(ctx, s.newEvent(events.TypeRequested, appt, appt.ClientID, appt.AdvisorID,
			fmt.Sprintf("New appointment request for %s.", s.when(appt.Start)), ""))
	}
	return appt, nil
}

// Accept confirms a pending appointment. Only its advisor may accept.
func (s *Service) Accept(ctx context.Context, id uuid.UUID, actor identity.UserRef) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Accept", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	appt, err := s.transition(ctx, id, func(_ Store, a *Appointment) error {
		if actor.ID != a.AdvisorID {
			return ErrForbidden
		}
		if a.Status != StatusPending {
			return ErrInvalidState
		}
		a.Status = StatusConfirmed
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "accept", err)
	}
	s.succeed(span, "accept", appt)

	s.publish(ctx, s.newEvent(events.TypeAccepted, appt, actor.ID, appt.ClientID,
		fmt.Sprintf("Your appointment on %s has been confirmed.", s.when(appt.Start)), ""))
	return appt, nil
}

// Reject declines a pending appointment. Only its advisor may reject.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor identity.UserRef, reason string) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Reject", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	appt, err := s.transition(ctx, id, func(_ Store, a *Appointment) error {
		if actor.ID != a.AdvisorID {
			return ErrForbidden
		}
		if a.Status != StatusPending {
			return ErrInvalidState
		}
		a.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "reject", err)
	}
	s.succeed(span, "reject", appt)

	msg := fmt.Sprintf("Your appointment request for %s was declined.", s.when(appt.Start))
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.publish(ctx, s.newEvent(events.TypeRejected, appt, actor.ID, appt.ClientID, msg, reason))
	return appt, nil
}

// Cancel moves a pending or confirmed appointment to cancelled. The client,
// the advisor or an admin may cancel; every participant other than the actor
// is notified.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor identity.UserRef) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Cancel", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	appt, err := s.transition(ctx, id, func(_ Store, a *Appointment) error {
		if a.IsCancelled() {
			return ErrAlreadyCancelled
		}
		if !canManage(a, actor) {
			return ErrForbidden
		}
		a.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "cancel", err)
	}
	s.succeed(span, "cancel", appt)

	msg := fmt.Sprintf("The appointment on %s has been cancelled by %s.", s.when(appt.Start), actor.DisplayName())
	for _, recipient := range Recipients(appt, actor.ID) {
		s.publish(ctx, s.newEvent(events.TypeCancelled, appt, actor.ID, recipient, msg, ""))
	}
	return appt, nil
}

type RescheduleInput struct {
	Start           time.Time `json:"start" validate:"required"`
	DurationMinutes *int      `json:"duration_minutes,omitempty" validate:"omitempty,min=15,max=240"`
	Notes           *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Reschedule moves an appointment in place, keeping its status. The new
// interval is checked against the advisor's other appointments only;
// unavailability windows are not consulted.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, actor identity.UserRef, in RescheduleInput) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Reschedule", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	now := s.clock.Now()
	appt, err := s.transition(ctx, id, func(tx Store, a *Appointment) error {
		if !canManage(a, actor) {
			return ErrForbidden
		}
		if a.IsCancelled() {
			return ErrCancelledAppointment
		}
		if fields := validator.Validate(in); fields != nil {
			return validationf("%s", validator.Summary(fields))
		}
		start := normalize(in.Start)
		if !start.After(now) {
			return ErrPastSlot
		}
		duration := a.DurationMinutes
		if in.DurationMinutes != nil {
			duration = *in.DurationMinutes
		}
		candidate := rangeOf(start, start.Add(time.Duration(duration)*time.Minute))
		others, err := tx.AppointmentsForAdvisor(ctx, a.AdvisorID, candidate.Start, candidate.End, true)
		if err != nil {
			return err
		}
		if overlapsAppointments(candidate, others, a.ID) {
			return conflict(ReasonSlotTaken)
		}

		a.Start = start
		a.DurationMinutes = duration
		if in.Notes != nil {
			a.Notes = *in.Notes
		}
		a.ReminderSentAt = nil
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "reschedule", err)
	}
	s.succeed(span, "reschedule", appt)

	msg := fmt.Sprintf("The appointment has been moved to %s.", s.when(appt.Start))
	for _, recipient := range Recipients(appt, actor.ID) {
		s.publish(ctx, s.newEvent(events.TypeRescheduled, appt, actor.ID, recipient, msg, ""))
	}
	return appt, nil
}

// Get returns an appointment visible to actor.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor identity.UserRef) (*Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(a, actor) {
		return nil, ErrForbidden
	}
	return a, nil
}

// ListForUser lists the client's bookings or the advisor's calendar entries.
// Admins see every appointment.
func (s *Service) ListForUser(ctx context.Context, actor identity.UserRef, status Status) ([]Appointment, error) {
	if status != "" && !status.Valid() {
		return nil, validationf("unknown status %q", status)
	}
	f := ListFilter{Status: status}
	switch actor.Role {
	case identity.RoleAdvisor:
		f.AdvisorID = actor.ID
	case identity.RoleAdmin:
	default:
		f.ClientID = actor.ID
	}
	return s.store.ListAppointments(ctx, f)
}

// SendDueReminders publishes a reminder for every confirmed appointment
// starting within lead of now that has not been reminded yet.
func (s *Service) SendDueReminders(ctx context.Context, lead time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.SendDueReminders")
	defer span.End()

	if lead <= 0 {
		return 0, validationf("lead time must be positive")
	}
	now := s.clock.Now()
	due, err := s.store.DueForReminder(ctx, now, now.Add(lead))
	if err != nil {
		return 0, s.fail(span, "remind", err)
	}

	sent := 0
	for i := range due {
		a := &due[i]
		if err := s.store.MarkReminderSent(ctx, a.ID, now); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return sent, s.fail(span, "remind", err)
		}
		sent++
		s.publish(ctx, s.newEvent(events.TypeReminder, a, 0, a.ClientID,
			fmt.Sprintf("Reminder: you have an appointment on %s.", s.when(a.Start)), ""))
	}
	span.SetAttributes(attribute.Int("reminders.sent", sent))
	s.metrics.ObserveOperation("remind", "ok")
	return sent, nil
}

// transition loads the appointment, then re-reads and mutates it inside the
// advisor transaction before saving.
func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(tx Store, a *Appointment) error) (*Appointment, error) {
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *Appointment
	err = s.withAdvisor(ctx, current.AdvisorID, func(tx Store) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(tx, a); err != nil {
			return err
		}
		a.UpdatedAt = s.clock.Now()
		if err := tx.SaveAppointment(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) withAdvisor(ctx context.Context, advisorID int64, fn func(tx Store) error) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, fmt.Sprintf("advisor:%d", advisorID))
		if err != nil {
			return fmt.Errorf("appointment: advisor lock: %w", err)
		}
		defer release()
	}
	return s.store.WithinAdvisorTx(ctx, advisorID, fn)
}

func (s *Service) newEvent(t events.Type, a *Appointment, actorID, recipientID int64, msg, reason string) events.Event {
	return events.Event{
		ID:              uuid.New(),
		Type:            t,
		AppointmentID:   a.ID,
		AdvisorID:       a.AdvisorID,
		ClientID:        a.ClientID,
		ActorID:         actorID,
		RecipientID:     recipientID,
		Start:           a.Start,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Message:         msg,
		Reason:          reason,
		OccurredAt:      s.clock.Now(),
	}
}

// publish runs after commit; subscribers cannot affect the outcome.
func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, evt)
}

func (s *Service) when(t time.Time) string {
	return t.In(s.loc).Format(messageTimeLayout)
}

func (s *Service) fail(span trace.Span, op string, err error) error {
	outcome := outcomeOf(err)
	span.SetStatus(codes.Error, outcome)
	span.RecordError(err)
	s.metrics.ObserveOperation(op, outcome)
	if reason := ConflictReasonOf(err); reason != "" {
		s.metrics.ObserveConflict(string(reason))
	}
	if outcome == "error" {
		s.logger.Error("appointment operation failed", "op", op, "error", err)
	} else {
		s.logger.Debug("appointment operation rejected", "op", op, "outcome", outcome)
	}
	return err
}

func (s *Service) succeed(span trace.Span, op string, a *Appointment) {
	span.SetAttributes(
		attribute.String("appointment.id", a.ID.String()),
		attribute.String("appointment.status", string(a.Status)),
	)
	s.metrics.ObserveOperation(op, "ok")
	s.logger.Info("appointment "+op,
		"appointment_id", a.ID.String(),
		"advisor_id", a.AdvisorID,
		"client_id", a.ClientID,
		"status", string(a.Status),
	)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPastSlot):
		return "past_slot"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrCancelledAppointment):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func canManage(a *Appointment, actor identity.UserRef) bool {
	return actor.IsAdmin() || a.IsParticipant(actor.ID)
}

func validateDuration(minutes int) error {
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return validationf("duration_minutes must be between %d and %d", MinDurationMinutes, MaxDurationMinutes)
	}
	return nil
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, string) {}
func (noopRecorder) ObserveConflict(string)          {}
