package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	clinicService "github.com/jwalitptl/practice-api/internal/service/clinic"
	"github.com/jwalitptl/practice-api/internal/service/patient"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/httputil"
)

const templateFilename = "patients_template.csv"

type Handler struct {
	service   patient.PatientService
	clinics   clinicService.ClinicServicer
	maxUpload int64
}

func NewHandler(service patient.PatientService, clinics clinicService.ClinicServicer, maxUpload int64) *Handler {
	return &Handler{service: service, clinics: clinics, maxUpload: maxUpload}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/import-template", h.DownloadTemplate)

	clinics := r.Group("/clinics/:id/patients")
	{
		clinics.GET("", h.ListPatients)
		clinics.POST("/import", middleware.SizeLimit(h.maxUpload), h.ImportPatients)
	}
}

// ownedClinic resolves the :id clinic and checks the caller manages it.
func (h *Handler) ownedClinic(c *gin.Context) (*model.Clinic, bool) {
	user, err := handler.CurrentUser(c)
	if err != nil {
		handler.RespondError(c, err)
		return nil, false
	}
	clinicID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return nil, false
	}
	clinic, err := h.clinics.GetOwnedClinic(c.Request.Context(), user, clinicID)
	if err != nil {
		handler.RespondError(c, err)
		return nil, false
	}
	return clinic, true
}

func (h *Handler) ListPatients(c *gin.Context) {
	clinic, ok := h.ownedClinic(c)
	if !ok {
		return
	}

	var filters model.PatientFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondError(c, apperrors.NewBadRequest("invalid query parameters", err))
		return
	}
	filters.ClinicID = clinic.ID

	patients, total, err := h.service.ListPatients(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if patients == nil {
		patients = []*model.Patient{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(
		httputil.NewPage(patients, len(patients), total, filters.Limit, filters.Offset)))
}

// ImportPatients reads the multipart "file" field as CSV.
func (h *Handler) ImportPatients(c *gin.Context) {
	clinic, ok := h.ownedClinic(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		handler.RespondError(c, apperrors.NewBadRequest("a CSV file is required in the \"file\" field", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		handler.RespondError(c, apperrors.NewBadRequest("could not read the uploaded file", err))
		return
	}
	defer file.Close()

	result, err := h.service.ImportCSV(c.Request.Context(), clinic.ID, file)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) DownloadTemplate(c *gin.Context) {
	httputil.Attachment(c, templateFilename, "text/csv", []byte(patient.Template))
}
