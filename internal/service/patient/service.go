package patient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Template is the CSV offered for download next to the import button.
const Template = "name,phone,email\n\"John Doe\",\"+1234567890\",\"john@example.com\"\n"

type PatientService interface {
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
	ImportCSV(ctx context.Context, clinicID uuid.UUID, r io.Reader) (*model.PatientImportResult, error)
}

type Service struct {
	repo    repository.PatientRepository
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.PatientRepository, m *metrics.Metrics, log *logger.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  log,
	}
}

func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	filters.Search = strings.TrimSpace(filters.Search)

	patients, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

// ImportCSV adds the patients in r to a clinic. Rows without a name or phone
// are skipped, as are rows whose phone digits match an existing patient of
// the clinic or an earlier row of the same file.
func (s *Service) ImportCSV(ctx context.Context, clinicID uuid.UUID, r io.Reader) (*model.PatientImportResult, error) {
	rows, err := parseCSV(r)
	if err != nil {
		var perr *parseError
		if errors.As(err, &perr) {
			return nil, apperrors.NewBadRequest(perr.msg, err)
		}
		return nil, apperrors.NewBadRequest("Could not read CSV file", err)
	}

	existing, err := s.repo.ListPhones(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing phones: %w", err)
	}
	seen := make(map[string]bool, len(existing)+len(rows))
	for _, phone := range existing {
		if key := phoneKey(phone); key != "" {
			seen[key] = true
		}
	}

	result := &model.PatientImportResult{}
	patients := make([]*model.Patient, 0, len(rows))
	for _, row := range rows {
		if row.name == "" || row.phone == "" {
			result.SkippedInvalid++
			continue
		}
		key := phoneKey(row.phone)
		if key != "" && seen[key] {
			result.SkippedDuplicates++
			continue
		}
		seen[key] = true

		p := &model.Patient{
			ClinicID:          clinicID,
			Name:              row.name,
			Phone:             row.phone,
			Source:            model.PatientSourceCSVImport,
			IsOptedInSMS:      true,
			IsOptedInWhatsApp: true,
		}
		if row.email != "" {
			email := row.email
			p.Email = &email
		}
		patients = append(patients, p)
	}

	s.metrics.PatientsSkipped.WithLabelValues("invalid").Add(float64(result.SkippedInvalid))
	s.metrics.PatientsSkipped.WithLabelValues("duplicate").Add(float64(result.SkippedDuplicates))

	if len(patients) == 0 {
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrBadRequest,
			Message: "No valid patients",
			Fields: map[string]string{
				"skipped_duplicates": fmt.Sprint(result.SkippedDuplicates),
				"skipped_invalid":    fmt.Sprint(result.SkippedInvalid),
			},
		}
	}

	if err := s.repo.CreateBatch(ctx, patients); err != nil {
		return nil, fmt.Errorf("failed to import patients: %w", err)
	}
	result.Imported = len(patients)
	s.metrics.PatientsImported.Add(float64(result.Imported))

	logger.FromContext(ctx, s.logger).Info("patients imported",
		"clinic_id", clinicID.String(),
		"imported", result.Imported,
		"skipped_duplicates", result.SkippedDuplicates,
		"skipped_invalid", result.SkippedInvalid,
	)
	return result, nil
}

// phoneKey keeps only the digits, so "+971 50 123 4567" and "971501234567"
// are the same patient.
func phoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
