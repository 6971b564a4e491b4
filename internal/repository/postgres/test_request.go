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

type testRequestRepository struct {
	BaseRepository
}

func NewTestRequestRepository(base BaseRepository) repository.TestRequestRepository {
	return &testRequestRepository{base}
}

func (r *testRequestRepository) Create(ctx context.Context, req *model.TestRequest) error {
	query := `
		INSERT INTO test_requests (
			id, request_number, patient_id, test_id, doctor_id,
			lab_technician_id, priority, status, doctor_remarks,
			assigned_at, started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	_, err := r.ext(ctx).ExecContext(ctx, query,
		req.ID, req.RequestNumber, req.PatientID, req.TestID, req.DoctorID,
		req.LabTechnicianID, req.Priority, req.Status, req.DoctorRemarks,
		req.AssignedAt, req.StartedAt, req.CompletedAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test request: %w", err)
	}
	return nil
}

func (r *testRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.TestRequest, error) {
	return r.get(ctx, id, false)
}

func (r *testRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TestRequest, error) {
	return r.get(ctx, id, true)
}

func (r *testRequestRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*model.TestRequest, error) {
	query := `SELECT * FROM test_requests WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var req model.TestRequest
	err := sqlx.GetContext(ctx, r.ext(ctx), &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("test request", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test request: %w", err)
	}
	return &req, nil
}

func (r *testRequestRepository) List(ctx context.Context, filters *model.TestRequestFilters) ([]*model.TestRequest, error) {
	query := `SELECT * FROM test_requests WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, filters.PatientID)
		idx++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", idx)
		args = append(args, filters.DoctorID)
		idx++
	}
	if filters.LabTechnicianID != uuid.Nil {
		query += fmt.Sprintf(" AND lab_technician_id = $%d", idx)
		args = append(args, filters.LabTechnicianID)
		idx++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}
	if filters.Priority != "" {
		query += fmt.Sprintf(" AND priority = $%d", idx)
		args = append(args, filters.Priority)
		idx++
	}

	filters.Normalize()
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filters.PageSize, filters.Offset())

	var reqs []*model.TestRequest
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list test requests: %w", err)
	}
	return reqs, nil
}

func (r *testRequestRepository) Update(ctx context.Context, req *model.TestRequest) error {
	req.UpdatedAt = time.Now()
	query := `
		UPDATE test_requests
		SET lab_technician_id = $1, priority = $2, status = $3,
			doctor_remarks = $4, assigned_at = $5, started_at = $6,
			completed_at = $7, updated_at = $8
		WHERE id = $9
	`
	res, err := r.ext(ctx).ExecContext(ctx, query,
		req.LabTechnicianID, req.Priority, req.Status, req.DoctorRemarks,
		req.AssignedAt, req.StartedAt, req.CompletedAt, req.UpdatedAt, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("test request", nil)
	}
	return nil
}
