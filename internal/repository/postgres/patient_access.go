package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

type patientAccessRepository struct {
	BaseRepository
}

func NewPatientAccessRepository(base BaseRepository) repository.PatientAccessRepository {
	return &patientAccessRepository{base}
}

func (r *patientAccessRepository) Create(ctx context.Context, access *model.PatientAccess) error {
	query := `
		INSERT INTO patient_access (
			id, patient_id, test_result_id, access_code, expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	access.ID = uuid.New()
	access.CreatedAt = time.Now()
	access.UpdatedAt = access.CreatedAt

	_, err := r.ext(ctx).ExecContext(ctx, query,
		access.ID, access.PatientID, access.TestResultID, access.AccessCode,
		access.ExpiresAt, access.CreatedAt, access.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient access: %w", err)
	}
	return nil
}

func (r *patientAccessRepository) GetActive(ctx context.Context, resultID, patientID uuid.UUID, now time.Time) (*model.PatientAccess, error) {
	var access model.PatientAccess
	err := sqlx.GetContext(ctx, r.ext(ctx), &access, `
		SELECT * FROM patient_access
		WHERE test_result_id = $1 AND patient_id = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`, resultID, patientID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("access grant", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient access: %w", err)
	}
	return &access, nil
}

func (r *patientAccessRepository) CountByResult(ctx context.Context, resultID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext(ctx), &count,
		`SELECT COUNT(*) FROM patient_access WHERE test_result_id = $1`, resultID)
	if err != nil {
		return 0, fmt.Errorf("failed to count patient access: %w", err)
	}
	return count, nil
}
