package calendar

import (
	"errors"
	"net/http"
	"strconv"

	"advisorbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/advisors/:id/calendar/week", h.Week)
	rg.GET("/advisors/:id/calendar/month", h.Month)
}

func (h *Handler) Week(c *gin.Context) {
	advisorID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || advisorID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid advisor ID")
		return
	}
	week, err := h.service.WeekOn(c.Request.Context(), advisorID, c.Query("start"))
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "start must be YYYY-MM-DD")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build calendar")
		return
	}
	response.Success(c, http.StatusOK, week)
}

func (h *Handler) Month(c *gin.Context) {
	advisorID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || advisorID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid advisor ID")
		return
	}
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	m, err := h.service.Month(c.Request.Context(), advisorID, year, month)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build calendar")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"month": m,
		"weeks": m.Weeks(),
	})
}
