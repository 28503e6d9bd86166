package appointment

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"advisorbooking/internal/identity"
	"advisorbooking/internal/middleware"
	"advisorbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	advisors := rg.Group("/advisors/:id")
	{
		advisors.GET("/slots", h.AvailableSlots)
		advisors.POST("/conflicts", h.CheckConflict)
		advisors.GET("/unavailability", h.ListUnavailability)
		advisors.POST("/unavailability", h.CreateUnavailability)
		advisors.DELETE("/unavailability/:uid", h.DeleteUnavailability)
	}

	appts := rg.Group("/appointments")
	{
		appts.POST("", h.Create)
		appts.GET("", h.List)
		appts.GET("/:id", h.Get)
		appts.POST("/:id/accept", h.Accept)
		appts.POST("/:id/reject", h.Reject)
		appts.POST("/:id/cancel", h.Cancel)
		appts.POST("/:id/reschedule", h.Reschedule)
	}
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	advisorID, ok := advisorParam(c)
	if !ok {
		return
	}
	slots, err := h.service.AvailableSlotsOn(c.Request.Context(), advisorID, c.Query("date"))
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}

func (h *Handler) CheckConflict(c *gin.Context) {
	advisorID, ok := advisorParam(c)
	if !ok {
		return
	}
	var req CheckConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}
	res, err := h.service.CheckConflict(c.Request.Context(), advisorID, req.Start, req.DurationMinutes)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Create books on behalf of the caller: advisors book directly for a client,
// everyone else files a request with the given advisor.
func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}

	in := CreateInput{
		AdvisorID:       req.AdvisorID,
		ClientID:        req.ClientID,
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	}
	switch actor.Role {
	case identity.RoleAdvisor:
		in.AdvisorID = actor.ID
		in.InitiatedByAdvisor = true
	case identity.RoleClient:
		in.ClientID = actor.ID
	}

	appt, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"appointment": toResponse(appt)})
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	list, err := h.service.ListForUser(c.Request.Context(), actor, Status(c.Query("status")))
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointments": toResponses(list)})
}

func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	appt, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": toResponse(appt)})
}

func (h *Handler) Accept(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	appt, err := h.service.Accept(c.Request.Context(), id, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": toResponse(appt)})
}

func (h *Handler) Reject(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
			return
		}
	}
	appt, err := h.service.Reject(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": toResponse(appt)})
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	appt, err := h.service.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": toResponse(appt)})
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	appt, err := h.service.Reschedule(c.Request.Context(), id, actor, RescheduleInput{
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": toResponse(appt)})
}

func (h *Handler) ListUnavailability(c *gin.Context) {
	advisorID, ok := advisorParam(c)
	if !ok {
		return
	}
	from, err1 := optionalTime(c.Query("from"))
	to, err2 := optionalTime(c.Query("to"))
	if err1 != nil || err2 != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "from/to must be RFC3339 timestamps")
		return
	}
	list, err := h.service.ListUnavailability(c.Request.Context(), advisorID, from, to)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unavailability": list})
}

func (h *Handler) CreateUnavailability(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	advisorID, ok := advisorParam(c)
	if !ok {
		return
	}
	var req CreateUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	u, err := h.service.AddUnavailability(c.Request.Context(), actor, UnavailabilityInput{
		AdvisorID: advisorID,
		Start:     req.Start,
		End:       req.End,
		Reason:    req.Reason,
		Notes:     req.Notes,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"unavailability": u})
}

func (h *Handler) DeleteUnavailability(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	advisorID, ok := advisorParam(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid unavailability ID")
		return
	}
	if err := h.service.DeleteUnavailability(c.Request.Context(), actor, advisorID, id); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WriteError maps domain errors onto the JSON error envelope.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Appointment not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to act on this appointment")
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", "Appointment is not pending")
	case errors.Is(err, ErrAlreadyCancelled):
		response.Error(c, http.StatusConflict, "ALREADY_CANCELLED", "Appointment is already cancelled")
	case errors.Is(err, ErrCancelledAppointment):
		response.Error(c, http.StatusConflict, "CANCELLED_APPOINTMENT", "A cancelled appointment cannot be rescheduled")
	case errors.Is(err, ErrConflict):
		response.ErrorWithDetails(c, http.StatusConflict, "APPOINTMENT_CONFLICT", "The requested time is not available",
			gin.H{"reason": ConflictReasonOf(err)})
	case errors.Is(err, ErrPastSlot):
		response.Error(c, http.StatusUnprocessableEntity, "PAST_SLOT", "You cannot book a time slot in the past")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}

func advisorParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid advisor ID")
		return 0, false
	}
	return id, true
}

func actorAndID(c *gin.Context) (identity.UserRef, uuid.UUID, bool) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return identity.UserRef{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid appointment ID")
		return identity.UserRef{}, uuid.Nil, false
	}
	return actor, id, true
}

func optionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
