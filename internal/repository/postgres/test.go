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

type testRepository struct {
	BaseRepository
}

func NewTestRepository(base BaseRepository) repository.TestRepository {
	return &testRepository{base}
}

func (r *testRepository) Create(ctx context.Context, test *model.Test) error {
	query := `
		INSERT INTO tests (
			id, name, code, category, normal_range, units, methodology,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	test.ID = uuid.New()
	test.CreatedAt = time.Now()
	test.UpdatedAt = test.CreatedAt
	test.Active = true

	_, err := r.ext(ctx).ExecContext(ctx, query,
		test.ID, test.Name, test.Code, test.Category, test.NormalRange,
		test.Units, test.Methodology, test.Active, test.CreatedAt, test.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	return nil
}

func (r *testRepository) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	var test model.Test
	err := sqlx.GetContext(ctx, r.ext(ctx), &test, `SELECT * FROM tests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("test", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return &test, nil
}

func (r *testRepository) GetByCode(ctx context.Context, code string) (*model.Test, error) {
	var test model.Test
	err := sqlx.GetContext(ctx, r.ext(ctx), &test, `SELECT * FROM tests WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("test", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test by code: %w", err)
	}
	return &test, nil
}

func (r *testRepository) List(ctx context.Context, filters *model.TestFilters) ([]*model.Test, error) {
	query := `SELECT * FROM tests WHERE active = true`
	args := []interface{}{}
	idx := 1

	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", idx)
		args = append(args, filters.Category)
		idx++
	}
	if filters.SearchTerm != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", idx, idx)
		args = append(args, "%"+filters.SearchTerm+"%")
		idx++
	}

	filters.Normalize()
	query += fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filters.PageSize, filters.Offset())

	var tests []*model.Test
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &tests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

func (r *testRepository) Update(ctx context.Context, test *model.Test) error {
	test.UpdatedAt = time.Now()
	query := `
		UPDATE tests
		SET name = $1, category = $2, normal_range = $3, units = $4,
			methodology = $5, active = $6, updated_at = $7
		WHERE id = $8
	`
	res, err := r.ext(ctx).ExecContext(ctx, query,
		test.Name, test.Category, test.NormalRange, test.Units,
		test.Methodology, test.Active, test.UpdatedAt, test.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("test", nil)
	}
	return nil
}

func (r *testRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.ext(ctx).ExecContext(ctx,
		`UPDATE tests SET active = false, updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("test", nil)
	}
	return nil
}
