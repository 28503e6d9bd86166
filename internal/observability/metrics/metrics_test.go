package metrics

import (
	"context"
	"testing"

	"advisorbooking/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveOperation("create", "ok")
	m.ObserveOperation("create", "ok")
	m.ObserveOperation("create", "conflict")
	m.ObserveConflict("slot_taken")
	m.ObserveHandlerFailure("notifications")
	require.NoError(t, m.Handle(context.Background(), events.Event{Type: events.TypeCreated}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflictsTotal.WithLabelValues("slot_taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerFailuresTotal.WithLabelValues("notifications")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues(string(events.TypeCreated))))
}

func TestBookingMetrics_NilSafe(t *testing.T) {
	var m *BookingMetrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("create", "ok")
		m.ObserveConflict("slot_taken")
		m.ObserveHandlerFailure("x")
		_ = m.Handle(context.Background(), events.Event{})
	})
}
