// Package catalog manages the diagnostic test type catalog. Reads go
// through a short-lived cache since the catalog changes rarely and is on
// the hot path of every order.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

const cacheTTL = 5 * time.Minute

type Service struct {
	repo  repository.TestRepository
	cache *gocache.Cache
}

func NewService(repo repository.TestRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(cacheTTL, 10*time.Minute),
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	if existing, err := s.repo.GetByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("test code %s already exists", req.Code), nil)
	}

	test := &model.Test{
		Name:        req.Name,
		Code:        req.Code,
		Category:    req.Category,
		NormalRange: req.NormalRange,
		Units:       req.Units,
		Methodology: req.Methodology,
	}
	if err := s.repo.Create(ctx, test); err != nil {
		return nil, err
	}
	s.cache.Flush()
	return test, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	key := "test:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Test), nil
	}
	test, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, test, cacheTTL)
	return test, nil
}

func (s *Service) List(ctx context.Context, filters *model.TestFilters) ([]*model.Test, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	test, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		test.Name = *req.Name
	}
	if req.Category != nil {
		test.Category = *req.Category
	}
	if req.NormalRange != nil {
		test.NormalRange = *req.NormalRange
	}
	if req.Units != nil {
		test.Units = *req.Units
	}
	if req.Methodology != nil {
		test.Methodology = *req.Methodology
	}
	if req.Active != nil {
		test.Active = *req.Active
	}

	if err := s.repo.Update(ctx, test); err != nil {
		return nil, err
	}
	s.cache.Delete("test:" + id.String())
	return test, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.cache.Delete("test:" + id.String())
	return nil
}
