package appointment

import (
	"time"

	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	AdvisorID       int64     `json:"advisor_id"`
	ClientID        int64     `json:"client_id"`
	Start           time.Time `json:"start" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
}

type CheckConflictRequest struct {
	Start           time.Time `json:"start" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type RescheduleRequest struct {
	Start           time.Time `json:"start" binding:"required"`
	DurationMinutes *int      `json:"duration_minutes"`
	Notes           *string   `json:"notes"`
}

type CreateUnavailabilityRequest struct {
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
	Reason Reason    `json:"reason"`
	Notes  string    `json:"notes"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	AdvisorID       int64     `json:"advisor_id"`
	ClientID        int64     `json:"client_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(a *Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		AdvisorID:       a.AdvisorID,
		ClientID:        a.ClientID,
		Start:           a.Start,
		End:             a.End(),
		DurationMinutes: a.DurationMinutes,
		Notes:           a.Notes,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toResponses(list []Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	return out
}
