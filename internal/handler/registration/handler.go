package registration

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	regService "github.com/jwalitptl/practice-api/internal/service/registration"
	"github.com/jwalitptl/practice-api/internal/wizard"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type DraftServicer interface {
	Create(ctx context.Context, user model.CurrentUser) (*regService.Draft, error)
	Get(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, error)
	Edit(ctx context.Context, user model.CurrentUser, id uuid.UUID, edits []regService.Edit) (*regService.Draft, error)
	ToggleService(ctx context.Context, user model.CurrentUser, id uuid.UUID, treatmentID uuid.UUID) (*regService.Draft, error)
	Next(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, error)
	Back(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, error)
	Submit(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, *regService.Result, error)
	Delete(ctx context.Context, user model.CurrentUser, id uuid.UUID) error
}

type Handler struct {
	drafts   DraftServicer
	workflow regService.Submitter
}

func NewHandler(drafts DraftServicer, workflow regService.Submitter) *Handler {
	return &Handler{drafts: drafts, workflow: workflow}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/practices", h.RegisterPractice)

	drafts := r.Group("/practice-registrations")
	{
		drafts.POST("", h.CreateDraft)
		drafts.GET("/:id", h.GetDraft)
		drafts.PATCH("/:id", h.EditDraft)
		drafts.DELETE("/:id", h.DeleteDraft)
		drafts.POST("/:id/services/:treatmentId/toggle", h.ToggleService)
		drafts.POST("/:id/next", h.Next)
		drafts.POST("/:id/back", h.Back)
		drafts.POST("/:id/submit", h.Submit)
	}
}

type registerPracticeRequest struct {
	wizard.Form
	Services []string `json:"services"`
}

type submitResponse struct {
	Draft  *regService.Draft  `json:"registration,omitempty"`
	Result *regService.Result `json:"practice"`
}

// RegisterPractice runs the whole workflow from one request body.
func (h *Handler) RegisterPractice(c *gin.Context) {
	user, err := handler.CurrentUser(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req registerPracticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	result, err := h.workflow.Submit(c.Request.Context(), user, regService.Request{
		Form:     req.Form,
		Services: req.Services,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(submitResponse{Result: result}))
}

func (h *Handler) CreateDraft(c *gin.Context) {
	user, err := handler.CurrentUser(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	draft, err := h.drafts.Create(c.Request.Context(), user)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(draft))
}

func (h *Handler) GetDraft(c *gin.Context) {
	h.withDraft(c, h.drafts.Get)
}

func (h *Handler) Next(c *gin.Context) {
	h.withDraft(c, h.drafts.Next)
}

func (h *Handler) Back(c *gin.Context) {
	h.withDraft(c, h.drafts.Back)
}

// EditDraft takes a JSON object of field name to value. Text fields take
// strings and agreeTerms takes a boolean.
func (h *Handler) EditDraft(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		handler.RespondError(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}
	edits := make([]regService.Edit, 0, len(body))
	for field, value := range body {
		edits = append(edits, regService.Edit{Field: wizard.Field(field), Value: value})
	}

	h.withDraft(c, func(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, error) {
		return h.drafts.Edit(ctx, user, id, edits)
	})
}

func (h *Handler) ToggleService(c *gin.Context) {
	treatmentID, err := handler.UUIDParam(c, "treatmentId")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	h.withDraft(c, func(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, error) {
		return h.drafts.ToggleService(ctx, user, id, treatmentID)
	})
}

func (h *Handler) Submit(c *gin.Context) {
	user, id, ok := h.draftTarget(c)
	if !ok {
		return
	}
	draft, result, err := h.drafts.Submit(c.Request.Context(), user, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(submitResponse{Draft: draft, Result: result}))
}

func (h *Handler) DeleteDraft(c *gin.Context) {
	user, id, ok := h.draftTarget(c)
	if !ok {
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), user, id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) withDraft(c *gin.Context, op func(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*regService.Draft, error)) {
	user, id, ok := h.draftTarget(c)
	if !ok {
		return
	}
	draft, err := op(c.Request.Context(), user, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(draft))
}

func (h *Handler) draftTarget(c *gin.Context) (model.CurrentUser, uuid.UUID, bool) {
	user, err := handler.CurrentUser(c)
	if err != nil {
		handler.RespondError(c, err)
		return model.CurrentUser{}, uuid.Nil, false
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return model.CurrentUser{}, uuid.Nil, false
	}
	return user, id, true
}
