package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meditrack/hospital-api/internal/config"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

type Claims struct {
	jwt.RegisteredClaims
	Role      string     `json:"role"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

type Service struct {
	users repository.UserRepository
	cfg   config.JWTConfig
}

func NewService(users repository.UserRepository, cfg config.JWTConfig) *Service {
	return &Service{users: users, cfg: cfg}
}

// Login verifies credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}
	if !user.Active {
		return nil, apperrors.Unauthorized(fmt.Errorf("account disabled"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.LoginResponse{
		Token:     token,
		ExpiresIn: s.cfg.ExpiryHours * 3600,
		User:      user,
	}, nil
}

func (s *Service) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.ExpiryHours) * time.Hour)),
		},
		Role:      string(user.Role),
		Name:      user.FullName(),
		Email:     user.Email,
		PatientID: user.PatientID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

// ValidateToken parses a session token and returns the caller identity.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.Caller, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized(err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	return &model.Caller{
		UserID:    userID,
		Role:      model.Role(claims.Role),
		Name:      claims.Name,
		Email:     claims.Email,
		PatientID: claims.PatientID,
	}, nil
}

// HashPassword returns a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
