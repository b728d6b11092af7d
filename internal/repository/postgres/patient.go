package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const defaultPatientPageSize = 50

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

// activePatients matches rows the dentist has not hidden.
func (r *patientRepository) activePatients(clinicID uuid.UUID) *goqu.SelectDataset {
	return r.dialect.From("patients").Where(
		goqu.C("clinic_id").Eq(clinicID),
		goqu.C("is_deleted_by_dentist").IsNotTrue(),
	)
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	ds := r.activePatients(filters.ClinicID)

	if filters.Search != "" {
		pattern := "%" + escapeLike(filters.Search) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("phone").ILike(pattern),
			goqu.C("email").ILike(pattern),
		))
	}
	if filters.OptedIn != nil {
		var opt exp.Expression = goqu.Or(
			goqu.C("is_opted_in_sms").IsTrue(),
			goqu.C("is_opted_in_whatsapp").IsTrue(),
		)
		if !*filters.OptedIn {
			opt = goqu.And(
				goqu.C("is_opted_in_sms").IsNotTrue(),
				goqu.C("is_opted_in_whatsapp").IsNotTrue(),
			)
		}
		ds = ds.Where(opt)
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build patient count: %w", err)
	}
	var total int
	if err := r.conn(ctx).GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultPatientPageSize
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	listSQL, listArgs, err := ds.Select(
		"id", "clinic_id", "name", "phone", "email", "source",
		"is_opted_in_sms", "is_opted_in_whatsapp",
		goqu.COALESCE(goqu.C("is_deleted_by_dentist"), false).As("is_deleted_by_dentist"),
		"created_at", "updated_at",
	).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build patient list: %w", err)
	}

	var patients []*model.Patient
	if err := r.conn(ctx).SelectContext(ctx, &patients, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) CreateBatch(ctx context.Context, patients []*model.Patient) error {
	if len(patients) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]interface{}, 0, len(patients))
	for _, p := range patients {
		p.ID = uuid.New()
		p.CreatedAt = now
		p.UpdatedAt = now
		rows = append(rows, goqu.Record{
			"id":                    p.ID,
			"clinic_id":             p.ClinicID,
			"name":                  p.Name,
			"phone":                 p.Phone,
			"email":                 deref(p.Email),
			"source":                p.Source,
			"is_opted_in_sms":       p.IsOptedInSMS,
			"is_opted_in_whatsapp":  p.IsOptedInWhatsApp,
			"is_deleted_by_dentist": false,
			"created_at":            p.CreatedAt,
			"updated_at":            p.UpdatedAt,
		})
	}

	query, args, err := r.dialect.Insert("patients").Rows(rows...).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build patients insert: %w", err)
	}
	if _, err := r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create patients: %w", err)
	}
	return nil
}

// ListPhones includes hidden patients so a re-import does not resurrect them.
func (r *patientRepository) ListPhones(ctx context.Context, clinicID uuid.UUID) ([]string, error) {
	var phones []string
	if err := r.conn(ctx).SelectContext(ctx, &phones, `SELECT phone FROM patients WHERE clinic_id = $1`, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list patient phones: %w", err)
	}
	return phones, nil
}

func (r *patientRepository) CountActive(ctx context.Context, clinicID uuid.UUID) (int, error) {
	query, args, err := r.activePatients(clinicID).Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build patient count: %w", err)
	}

	var count int
	if err := r.conn(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}

func (r *patientRepository) CountCreatedSince(ctx context.Context, clinicID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM patients WHERE clinic_id = $1 AND created_at >= $2`

	var count int
	if err := r.conn(ctx).GetContext(ctx, &count, query, clinicID, since); err != nil {
		return 0, fmt.Errorf("failed to count new patients: %w", err)
	}
	return count, nil
}
