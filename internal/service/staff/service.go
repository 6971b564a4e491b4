package staff

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/meditrack/hospital-api/internal/email"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	"github.com/meditrack/hospital-api/internal/service/auth"
	"github.com/meditrack/hospital-api/pkg/logger"
)

type Service struct {
	users  repository.UserRepository
	mailer email.Service
	logger *logger.Logger
}

func NewService(users repository.UserRepository, mailer email.Service, log *logger.Logger) *Service {
	return &Service{users: users, mailer: mailer, logger: log}
}

// Create registers a staff account with a generated temporary password,
// emailed after the row is written.
func (s *Service) Create(ctx context.Context, req *model.CreateStaffRequest) (*model.User, error) {
	tempPassword, err := generatePassword()
	if err != nil {
		return nil, err
	}
	passwordHash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.Role(req.Role),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.SendCredentials(ctx, user.Email, user.FullName(), tempPassword); err != nil {
			s.logger.Error(err, "failed to send credentials email", "user_id", user.ID.String())
		}
	}()

	return user, nil
}

func (s *Service) List(ctx context.Context, filters *model.StaffFilters) ([]*model.User, error) {
	return s.users.List(ctx, filters)
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
