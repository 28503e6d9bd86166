package metrics

import (
	"context"

	"advisorbooking/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters for appointment operations and event fan-out.
type BookingMetrics struct {
	operationsTotal      *prometheus.CounterVec
	conflictsTotal       *prometheus.CounterVec
	handlerFailuresTotal *prometheus.CounterVec
	eventsTotal          *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorbooking",
			Subsystem: "appointments",
			Name:      "operations_total",
			Help:      "Appointment operations by outcome",
		}, []string{"operation", "outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorbooking",
			Subsystem: "appointments",
			Name:      "conflicts_total",
			Help:      "Detected scheduling conflicts by reason",
		}, []string{"reason"}),
		handlerFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorbooking",
			Subsystem: "events",
			Name:      "handler_failures_total",
			Help:      "Event handler failures, including recovered panics",
		}, []string{"handler"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorbooking",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published after commit",
		}, []string{"type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.conflictsTotal, m.handlerFailuresTotal, m.eventsTotal)
	return m
}

func (m *BookingMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *BookingMetrics) ObserveConflict(reason string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveHandlerFailure(handler string) {
	if m == nil {
		return
	}
	m.handlerFailuresTotal.WithLabelValues(handler).Inc()
}

// Handle counts every published event. It never fails.
func (m *BookingMetrics) Handle(_ context.Context, evt events.Event) error {
	if m == nil {
		return nil
	}
	m.eventsTotal.WithLabelValues(string(evt.Type)).Inc()
	return nil
}
