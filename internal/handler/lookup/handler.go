package lookup

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
)

type CatalogService interface {
	ListStates(ctx context.Context) ([]*model.State, error)
	ListCities(ctx context.Context, stateID uuid.UUID) ([]*model.City, error)
	ListTreatments(ctx context.Context) ([]*model.Treatment, error)
}

type Handler struct {
	service CatalogService
}

func NewHandler(service CatalogService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/states", h.ListStates)
	r.GET("/states/:id/cities", h.ListCities)
	r.GET("/treatments", h.ListTreatments)
}

func (h *Handler) ListStates(c *gin.Context) {
	states, err := h.service.ListStates(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(states))
}

func (h *Handler) ListCities(c *gin.Context) {
	stateID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	cities, err := h.service.ListCities(c.Request.Context(), stateID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if cities == nil {
		cities = []*model.City{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cities))
}

func (h *Handler) ListTreatments(c *gin.Context) {
	treatments, err := h.service.ListTreatments(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(treatments))
}
