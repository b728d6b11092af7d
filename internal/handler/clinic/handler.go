package clinic

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	clinicService "github.com/jwalitptl/practice-api/internal/service/clinic"
	"github.com/jwalitptl/practice-api/internal/service/dashboard"
)

type DashboardService interface {
	Overview(ctx context.Context, clinic *model.Clinic) (*dashboard.Overview, error)
}

type Handler struct {
	service   clinicService.ClinicServicer
	dashboard DashboardService
}

func NewHandler(service clinicService.ClinicServicer, dashboard DashboardService) *Handler {
	return &Handler{service: service, dashboard: dashboard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me/practice", h.GetMyPractice)
	r.GET("/clinics/:id/overview", h.GetOverview)
}

// GetMyPractice returns the practice the signed in dentist registered.
func (h *Handler) GetMyPractice(c *gin.Context) {
	user, err := handler.CurrentUser(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	profile, err := h.service.GetMyPractice(c.Request.Context(), user)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) GetOverview(c *gin.Context) {
	user, err := handler.CurrentUser(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	clinicID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	clinic, err := h.service.GetOwnedClinic(c.Request.Context(), user, clinicID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	overview, err := h.dashboard.Overview(c.Request.Context(), clinic)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(overview))
}
