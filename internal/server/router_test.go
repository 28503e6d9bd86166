package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"advisorbooking/internal/database"
	"advisorbooking/internal/middleware"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorDetail    `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type caller struct {
	id   int64
	role string
	name string
}

var (
	advisor = caller{id: 100, role: "advisor", name: "Ada Advisor"}
	client1 = caller{id: 1, role: "client", name: "Carol Client"}
	client2 = caller{id: 2, role: "client", name: "Dan Client"}
)

type testSuite struct {
	router *gin.Engine
	svc    *Services
}

func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.Discard()
	db, err := database.Connect(database.MemoryDSN(t.Name()), logger)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc := NewServices(Deps{
		DB:       db,
		Logger:   logger,
		Clock:    clock.Fixed{T: now},
		Location: time.UTC,
	})
	require.NoError(t, svc.AutoMigrate())
	t.Cleanup(svc.Close)

	return &testSuite{
		router: NewRouter(svc, RouterConfig{Logger: logger}),
		svc:    svc,
	}
}

func (s *testSuite) do(t *testing.T, who *caller, method, path string, body any) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(middleware.HeaderUserID, fmt.Sprint(who.id))
		req.Header.Set(middleware.HeaderUserRole, who.role)
		req.Header.Set(middleware.HeaderUserName, who.name)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp testResponse
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

type appointmentEnvelope struct {
	Appointment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"appointment"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthz(t *testing.T) {
	s := setupTestSuite(t)
	w, _ := s.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_RequiresIdentity(t *testing.T) {
	s := setupTestSuite(t)
	w, resp := s.do(t, nil, http.MethodGet, "/api/v1/appointments", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestAPI_BookingFlow(t *testing.T) {
	s := setupTestSuite(t)
	start := "2024-06-03T10:00:00Z"

	// Client requests, advisor accepts.
	w, resp := s.do(t, &client1, http.MethodPost, "/api/v1/appointments", gin.H{
		"advisor_id": advisor.id,
		"start":      start,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[appointmentEnvelope](t, resp.Data)
	assert.Equal(t, "pending", created.Appointment.Status)
	id := created.Appointment.ID

	w, resp = s.do(t, &advisor, http.MethodPost, "/api/v1/appointments/"+id+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode[appointmentEnvelope](t, resp.Data).Appointment.Status)

	// Same slot for someone else is a conflict.
	w, resp = s.do(t, &client2, http.MethodPost, "/api/v1/appointments", gin.H{
		"advisor_id": advisor.id,
		"start":      "2024-06-03T10:30:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "APPOINTMENT_CONFLICT", resp.Error.Code)
	assert.Equal(t, "slot_taken", resp.Error.Details["reason"])

	// Slots: the booked hour removes 10:00 and 10:30.
	w, resp = s.do(t, &client2, http.MethodGet, "/api/v1/advisors/100/slots?date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode[struct {
		Slots []time.Time `json:"slots"`
	}](t, resp.Data)
	assert.Len(t, slots.Slots, 16)

	// Notifications: advisor got the request, client got the acceptance.
	w, resp = s.do(t, &advisor, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"unread_count":1`)

	w, resp = s.do(t, &client1, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "appointment_accepted")

	// Client cancels; the slot frees up again.
	w, _ = s.do(t, &client1, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = s.do(t, &client1, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CANCELLED", resp.Error.Code)

	w, resp = s.do(t, &client2, http.MethodGet, "/api/v1/advisors/100/slots?date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots = decode[struct {
		Slots []time.Time `json:"slots"`
	}](t, resp.Data)
	assert.Len(t, slots.Slots, 18)
}

func TestAPI_ErrorMapping(t *testing.T) {
	s := setupTestSuite(t)

	w, resp := s.do(t, &client1, http.MethodPost, "/api/v1/appointments", gin.H{
		"advisor_id": advisor.id,
		"start":      "2024-05-31T10:00:00Z",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "PAST_SLOT", resp.Error.Code)

	w, resp = s.do(t, &client1, http.MethodPost, "/api/v1/appointments", gin.H{
		"advisor_id":       advisor.id,
		"start":            "2024-06-03T10:00:00Z",
		"duration_minutes": 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	w, resp = s.do(t, &client1, http.MethodGet, "/api/v1/appointments/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	w, resp = s.do(t, &client1, http.MethodPost, "/api/v1/appointments", gin.H{
		"advisor_id": advisor.id,
		"start":      "2024-06-04T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[appointmentEnvelope](t, resp.Data).Appointment.ID

	w, resp = s.do(t, &client2, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	w, resp = s.do(t, &client1, http.MethodPost, "/api/v1/appointments/"+id+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, &advisor, http.MethodPost, "/api/v1/appointments/"+id+"/reject", gin.H{"reason": "Fully booked"})
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = s.do(t, &advisor, http.MethodPost, "/api/v1/appointments/"+id+"/accept", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)
}

func TestAPI_UnavailabilityAndCalendar(t *testing.T) {
	s := setupTestSuite(t)

	w, resp := s.do(t, &advisor, http.MethodPost, "/api/v1/advisors/100/unavailability", gin.H{
		"start":  "2024-06-05T09:00:00Z",
		"end":    "2024-06-05T12:00:00Z",
		"reason": "training",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = s.do(t, &client1, http.MethodPost, "/api/v1/advisors/100/conflicts", gin.H{
		"start": "2024-06-05T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "advisor_unavailable")

	w, resp = s.do(t, &client1, http.MethodPost, "/api/v1/advisors/100/unavailability", gin.H{
		"start": "2024-06-06T09:00:00Z",
		"end":   "2024-06-06T12:00:00Z",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, &advisor, http.MethodGet, "/api/v1/advisors/100/calendar/week?start=2024-06-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "training")

	w, resp = s.do(t, &advisor, http.MethodGet, "/api/v1/advisors/100/calendar/week?start=03-06-2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = s.do(t, &advisor, http.MethodGet, "/api/v1/advisors/100/calendar/month?year=2024&month=6", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"weeks"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestSuite(t)
	_, _ = s.do(t, &client1, http.MethodPost, "/api/v1/appointments", gin.H{
		"advisor_id": advisor.id,
		"start":      "2024-06-03T10:00:00Z",
	})

	w, _ := s.do(t, nil, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "advisorbooking_appointments_operations_total")
	assert.Contains(t, body, "advisorbooking_events_published_total")
}
