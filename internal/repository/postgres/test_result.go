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

type testResultRepository struct {
	BaseRepository
}

func NewTestResultRepository(base BaseRepository) repository.TestResultRepository {
	return &testResultRepository{base}
}

func (r *testResultRepository) Create(ctx context.Context, result *model.TestResult) error {
	query := `
		INSERT INTO test_results (
			id, test_request_id, result_type, results, result_file_path,
			interpretation, methodology, comments, quality_control,
			result_hash, status, lab_technician_id, lab_technician_name,
			lab_tech_signature, submitted_at, doctor_remarks, doctor_signature,
			doctor_name, approved_by, approved_at, artifact_path,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`
	result.ID = uuid.New()
	result.CreatedAt = time.Now()
	result.UpdatedAt = result.CreatedAt

	_, err := r.ext(ctx).ExecContext(ctx, query,
		result.ID, result.TestRequestID, result.ResultType, result.ResultsJSON,
		result.ResultFilePath, result.Interpretation, result.Methodology,
		result.Comments, result.QualityControl, result.ResultHash, result.Status,
		result.LabTechnicianID, result.LabTechnicianName, result.LabTechSignature,
		result.SubmittedAt, result.DoctorRemarks, result.DoctorSignature,
		result.DoctorName, result.ApprovedBy, result.ApprovedAt,
		result.ArtifactPath, result.CreatedAt, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test result: %w", err)
	}
	return nil
}

func (r *testResultRepository) Get(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	return r.get(ctx, id, false)
}

func (r *testResultRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	return r.get(ctx, id, true)
}

func (r *testResultRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*model.TestResult, error) {
	query := `SELECT * FROM test_results WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var result model.TestResult
	err := sqlx.GetContext(ctx, r.ext(ctx), &result, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("test result", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}
	return &result, nil
}

func (r *testResultRepository) GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.TestResult, error) {
	var result model.TestResult
	err := sqlx.GetContext(ctx, r.ext(ctx), &result,
		`SELECT * FROM test_results WHERE test_request_id = $1 ORDER BY created_at DESC LIMIT 1`,
		requestID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("test result", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result by request: %w", err)
	}
	return &result, nil
}

func (r *testResultRepository) List(ctx context.Context, filters *model.ResultFilters) ([]*model.TestResult, error) {
	query := `
		SELECT tr.* FROM test_results tr
		JOIN test_requests req ON req.id = tr.test_request_id
		WHERE 1=1
	`
	args := []interface{}{}
	idx := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND tr.status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND req.patient_id = $%d", idx)
		args = append(args, filters.PatientID)
		idx++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND req.doctor_id = $%d", idx)
		args = append(args, filters.DoctorID)
		idx++
	}
	if filters.LabTechnicianID != uuid.Nil {
		query += fmt.Sprintf(" AND tr.lab_technician_id = $%d", idx)
		args = append(args, filters.LabTechnicianID)
		idx++
	}
	if !filters.DateFrom.IsZero() {
		query += fmt.Sprintf(" AND tr.submitted_at >= $%d", idx)
		args = append(args, filters.DateFrom)
		idx++
	}
	if !filters.DateTo.IsZero() {
		query += fmt.Sprintf(" AND tr.submitted_at <= $%d", idx)
		args = append(args, filters.DateTo)
		idx++
	}

	filters.Normalize()
	query += fmt.Sprintf(" ORDER BY tr.submitted_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filters.PageSize, filters.Offset())

	var results []*model.TestResult
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}
	return results, nil
}

func (r *testResultRepository) Update(ctx context.Context, result *model.TestResult) error {
	result.UpdatedAt = time.Now()
	query := `
		UPDATE test_results
		SET results = $1, result_file_path = $2, interpretation = $3,
			methodology = $4, comments = $5, quality_control = $6,
			result_hash = $7, status = $8, lab_tech_signature = $9,
			submitted_at = $10, doctor_remarks = $11, doctor_signature = $12,
			doctor_name = $13, approved_by = $14, approved_at = $15,
			artifact_path = $16, updated_at = $17
		WHERE id = $18
	`
	res, err := r.ext(ctx).ExecContext(ctx, query,
		result.ResultsJSON, result.ResultFilePath, result.Interpretation,
		result.Methodology, result.Comments, result.QualityControl,
		result.ResultHash, result.Status, result.LabTechSignature,
		result.SubmittedAt, result.DoctorRemarks, result.DoctorSignature,
		result.DoctorName, result.ApprovedBy, result.ApprovedAt,
		result.ArtifactPath, result.UpdatedAt, result.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("test result", nil)
	}
	return nil
}
