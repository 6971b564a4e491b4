// Package request implements the diagnostic test order workflow: creation,
// assignment to a lab technician, start of processing and cancellation.
package request

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

type Service struct {
	tx       repository.TxRunner
	requests repository.TestRequestRepository
	patients repository.PatientRepository
	tests    repository.TestRepository
	users    repository.UserRepository
	audit    repository.AuditRepository
	outbox   repository.OutboxRepository
	now      func() time.Time
}

func NewService(
	tx repository.TxRunner,
	requests repository.TestRequestRepository,
	patients repository.PatientRepository,
	tests repository.TestRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	outbox repository.OutboxRepository,
) *Service {
	return &Service{
		tx:       tx,
		requests: requests,
		patients: patients,
		tests:    tests,
		users:    users,
		audit:    audit,
		outbox:   outbox,
		now:      time.Now,
	}
}

// Create opens a new test order in pending state.
func (s *Service) Create(ctx context.Context, caller *model.Caller, req *model.CreateTestOrderRequest) (*model.TestRequest, error) {
	priority := model.Priority(req.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}

	var order *model.TestRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
			return err
		}
		if _, err := s.tests.Get(ctx, req.TestID); err != nil {
			return err
		}
		doctor, err := s.users.Get(ctx, req.DoctorID)
		if err != nil {
			return err
		}
		if doctor.Role != model.RoleDoctor {
			return apperrors.BadRequest("assigned user is not a doctor", nil)
		}

		order = &model.TestRequest{
			RequestNumber: generateRequestNumber(s.now()),
			PatientID:     req.PatientID,
			TestID:        req.TestID,
			DoctorID:      req.DoctorID,
			Priority:      priority,
			Status:        model.RequestStatusPending,
			DoctorRemarks: req.Remarks,
		}
		if err := s.requests.Create(ctx, order); err != nil {
			return err
		}

		if err := s.audit.Create(ctx, &model.AuditLog{
			UserID:     caller.UserID,
			Action:     "CREATE_TEST_REQUEST",
			EntityType: "TestRequest",
			EntityID:   order.ID,
			Details:    fmt.Sprintf("test request %s created", order.RequestNumber),
		}); err != nil {
			return err
		}

		return s.emitEvent(ctx, model.EventRequestCreated, model.ChannelDoctor, map[string]any{
			"testRequestId": order.ID,
			"patientId":     order.PatientID,
			"priority":      order.Priority,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Assign hands a pending request to a lab technician.
func (s *Service) Assign(ctx context.Context, caller *model.Caller, requestID uuid.UUID, techID uuid.UUID) (*model.TestRequest, error) {
	var order *model.TestRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if caller.Role == model.RoleDoctor && order.DoctorID != caller.UserID {
			return apperrors.NotFound("test request", nil)
		}

		tech, err := s.users.Get(ctx, techID)
		if err != nil {
			return err
		}
		if tech.Role != model.RoleLabTechnician {
			return apperrors.BadRequest("assigned user is not a lab technician", nil)
		}

		if !order.Status.CanTransition(model.RequestStatusAssignedToLab) {
			return apperrors.Precondition(
				fmt.Sprintf("cannot assign request in state %s", order.Status))
		}

		now := s.now()
		order.Status = model.RequestStatusAssignedToLab
		order.LabTechnicianID = &techID
		order.AssignedAt = &now
		if err := s.requests.Update(ctx, order); err != nil {
			return err
		}

		if err := s.audit.Create(ctx, &model.AuditLog{
			UserID:     caller.UserID,
			Action:     "ASSIGN_TEST_REQUEST",
			EntityType: "TestRequest",
			EntityID:   order.ID,
			Details:    fmt.Sprintf("request assigned to technician %s", techID),
		}); err != nil {
			return err
		}

		return s.emitEvent(ctx, model.EventRequestAssigned, model.ChannelLabTechnician, map[string]any{
			"testRequestId":   order.ID,
			"labTechnicianId": techID,
			"priority":        order.Priority,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Start marks an assigned request as in progress. Only the assigned
// technician may start it.
func (s *Service) Start(ctx context.Context, caller *model.Caller, requestID uuid.UUID) (*model.TestRequest, error) {
	var order *model.TestRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if order.LabTechnicianID == nil || *order.LabTechnicianID != caller.UserID {
			return apperrors.NotFound("test request", nil)
		}
		if !order.Status.CanTransition(model.RequestStatusInProgress) {
			return apperrors.Precondition(
				fmt.Sprintf("cannot start request in state %s", order.Status))
		}

		now := s.now()
		order.Status = model.RequestStatusInProgress
		order.StartedAt = &now
		if err := s.requests.Update(ctx, order); err != nil {
			return err
		}

		if err := s.audit.Create(ctx, &model.AuditLog{
			UserID:     caller.UserID,
			Action:     "START_TEST_REQUEST",
			EntityType: "TestRequest",
			EntityID:   order.ID,
			Details:    "technician started processing",
		}); err != nil {
			return err
		}

		return s.emitEvent(ctx, model.EventRequestStarted, model.ChannelDoctor, map[string]any{
			"testRequestId": order.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel terminates a request from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, caller *model.Caller, requestID uuid.UUID, reason string) (*model.TestRequest, error) {
	var order *model.TestRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apperrors.Precondition(
				fmt.Sprintf("cannot cancel request in state %s", order.Status))
		}

		order.Status = model.RequestStatusCancelled
		order.DoctorRemarks = reason
		if err := s.requests.Update(ctx, order); err != nil {
			return err
		}

		if err := s.audit.Create(ctx, &model.AuditLog{
			UserID:     caller.UserID,
			Action:     "CANCEL_TEST_REQUEST",
			EntityType: "TestRequest",
			EntityID:   order.ID,
			Details:    fmt.Sprintf("cancelled: %s", reason),
		}); err != nil {
			return err
		}

		return s.emitEvent(ctx, model.EventRequestCancelled, model.ChannelLabTechnician, map[string]any{
			"testRequestId": order.ID,
			"reason":        reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List returns requests visible to the caller.
func (s *Service) List(ctx context.Context, caller *model.Caller, filters *model.TestRequestFilters) ([]*model.TestRequest, error) {
	switch caller.Role {
	case model.RoleDoctor:
		filters.DoctorID = caller.UserID
	case model.RoleLabTechnician:
		filters.LabTechnicianID = caller.UserID
	case model.RolePatient:
		if caller.PatientID == nil {
			return nil, apperrors.Forbidden("access denied")
		}
		filters.PatientID = *caller.PatientID
	}
	return s.requests.List(ctx, filters)
}

// Get returns one request subject to role scoping.
func (s *Service) Get(ctx context.Context, caller *model.Caller, id uuid.UUID) (*model.TestRequest, error) {
	order, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch caller.Role {
	case model.RoleDoctor:
		if order.DoctorID != caller.UserID {
			return nil, apperrors.NotFound("test request", nil)
		}
	case model.RoleLabTechnician:
		if order.LabTechnicianID == nil || *order.LabTechnicianID != caller.UserID {
			return nil, apperrors.NotFound("test request", nil)
		}
	case model.RolePatient:
		if caller.PatientID == nil || order.PatientID != *caller.PatientID {
			return nil, apperrors.NotFound("test request", nil)
		}
	}
	return order, nil
}

func (s *Service) emitEvent(ctx context.Context, eventType, channel string, payload map[string]any) error {
	event, err := model.NewOutboxEvent(eventType, channel, payload)
	if err != nil {
		return apperrors.Internal(err)
	}
	return s.outbox.Create(ctx, event)
}

func generateRequestNumber(now time.Time) string {
	return fmt.Sprintf("TR-%s-%s", now.Format("20060102"), uuid.New().String()[:8])
}
