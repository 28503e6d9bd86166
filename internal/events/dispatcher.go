package events

import (
	"context"
	"fmt"
	"sync"

	"advisorbooking/internal/pkg/logging"
)

// Handler consumes committed events. Returned errors are logged, never propagated.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt Event) error { return f(ctx, evt) }

// FailureRecorder is told about every handler that failed.
type FailureRecorder interface {
	ObserveHandlerFailure(handler string)
}

type subscription struct {
	name    string
	handler Handler
}

// Dispatcher fans events out to subscribers synchronously. A failing or
// panicking subscriber never affects the publisher or the other subscribers.
type Dispatcher struct {
	mu       sync.RWMutex
	subs     []subscription
	logger   *logging.Logger
	failures FailureRecorder
}

func NewDispatcher(logger *logging.Logger, failures FailureRecorder) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{logger: logger, failures: failures}
}

func (d *Dispatcher) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, subscription{name: name, handler: h})
}

// Publish delivers evt to every subscriber in registration order.
func (d *Dispatcher) Publish(ctx context.Context, evt Event) {
	d.mu.RLock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, s := range subs {
		if err := d.deliver(ctx, s, evt); err != nil {
			d.logger.Warn("notification delivery failed",
				"handler", s.name,
				"event", string(evt.Type),
				"appointment_id", evt.AppointmentID.String(),
				"recipient_id", evt.RecipientID,
				"error", err,
			)
			if d.failures != nil {
				d.failures.ObserveHandlerFailure(s.name)
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s subscription, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler.Handle(ctx, evt)
}
