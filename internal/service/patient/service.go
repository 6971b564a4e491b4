package patient

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/email"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	"github.com/meditrack/hospital-api/internal/service/auth"
	"github.com/meditrack/hospital-api/pkg/logger"
)

type Service struct {
	tx       repository.TxRunner
	patients repository.PatientRepository
	users    repository.UserRepository
	mailer   email.Service
	logger   *logger.Logger
}

func NewService(tx repository.TxRunner, patients repository.PatientRepository, users repository.UserRepository, mailer email.Service, log *logger.Logger) *Service {
	return &Service{
		tx:       tx,
		patients: patients,
		users:    users,
		mailer:   mailer,
		logger:   log,
	}
}

// Register creates the patient record plus a portal login with a generated
// temporary password, delivered by email after the transaction commits.
func (s *Service) Register(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	tempPassword, err := generatePassword()
	if err != nil {
		return nil, err
	}
	passwordHash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	var patient *model.Patient
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		patient = &model.Patient{
			MRN:         generateMRN(),
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			Phone:       req.Phone,
			DateOfBirth: req.DateOfBirth,
			Gender:      req.Gender,
			Address:     req.Address,
			Status:      "active",
		}
		if err := s.patients.Create(ctx, patient); err != nil {
			return err
		}

		user := &model.User{
			Email:        req.Email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         model.RolePatient,
			PatientID:    &patient.ID,
			Active:       true,
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.SendCredentials(ctx, patient.Email, patient.FullName(), tempPassword); err != nil {
			s.logger.Error(err, "failed to send credentials email", "patient_id", patient.ID.String())
		}
	}()

	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.patients.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return s.patients.List(ctx, filters)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Status != nil {
		patient.Status = *req.Status
	}
	if req.DOB != nil {
		patient.DateOfBirth = *req.DOB
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func generateMRN() string {
	return fmt.Sprintf("MRN-%s", uuid.New().String()[:8])
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
