package appointment

import (
	"context"
	"time"

	"advisorbooking/internal/identity"
	"advisorbooking/internal/pkg/validator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type UnavailabilityInput struct {
	AdvisorID int64     `json:"advisor_id" validate:"required,gt=0"`
	Start     time.Time `json:"start" validate:"required"`
	End       time.Time `json:"end" validate:"required,gtfield=Start"`
	Reason    Reason    `json:"reason" validate:"omitempty,oneof=vacation sick training personal other"`
	Notes     string    `json:"notes" validate:"max=2000"`
}

// AddUnavailability records a blackout window for an advisor. Only the
// advisor or an admin may do this. Existing appointments are left untouched.
func (s *Service) AddUnavailability(ctx context.Context, actor identity.UserRef, in UnavailabilityInput) (*Unavailability, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.AddUnavailability", trace.WithAttributes(attribute.Int64("advisor.id", in.AdvisorID)))
	defer span.End()

	if actor.ID != in.AdvisorID && !actor.IsAdmin() {
		return nil, s.fail(span, "add_unavailability", ErrForbidden)
	}
	if fields := validator.Validate(in); fields != nil {
		return nil, s.fail(span, "add_unavailability", validationf("%s", validator.Summary(fields)))
	}
	start, end := normalize(in.Start), normalize(in.End)
	if !end.After(start) {
		return nil, s.fail(span, "add_unavailability", validationf("end must be after start"))
	}
	reason := in.Reason
	if reason == "" {
		reason = ReasonOther
	}

	u := &Unavailability{
		AdvisorID: in.AdvisorID,
		Start:     start,
		End:       end,
		Reason:    reason,
		Notes:     in.Notes,
		CreatedAt: s.clock.Now(),
	}
	err := s.withAdvisor(ctx, in.AdvisorID, func(tx Store) error {
		return tx.SaveUnavailability(ctx, u)
	})
	if err != nil {
		return nil, s.fail(span, "add_unavailability", err)
	}
	s.metrics.ObserveOperation("add_unavailability", "ok")
	s.logger.Info("unavailability added", "advisor_id", u.AdvisorID, "unavailability_id", u.ID.String(), "reason", string(u.Reason))
	return u, nil
}

func (s *Service) DeleteUnavailability(ctx context.Context, actor identity.UserRef, advisorID int64, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "appointment.DeleteUnavailability", trace.WithAttributes(attribute.Int64("advisor.id", advisorID)))
	defer span.End()

	if actor.ID != advisorID && !actor.IsAdmin() {
		return s.fail(span, "delete_unavailability", ErrForbidden)
	}
	err := s.withAdvisor(ctx, advisorID, func(tx Store) error {
		return tx.DeleteUnavailability(ctx, advisorID, id)
	})
	if err != nil {
		return s.fail(span, "delete_unavailability", err)
	}
	s.metrics.ObserveOperation("delete_unavailability", "ok")
	return nil
}

// ListUnavailability returns the windows intersecting [from, to). A zero range
// means the next 90 days.
func (s *Service) ListUnavailability(ctx context.Context, advisorID int64, from, to time.Time) ([]Unavailability, error) {
	if from.IsZero() {
		from = s.clock.Now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 90)
	}
	if !to.After(from) {
		return nil, validationf("range end must be after start")
	}
	return s.store.UnavailabilityForAdvisor(ctx, advisorID, from, to)
}
