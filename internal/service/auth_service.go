package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/remediation-review/internal/auth"
	"github.com/spec-kit/remediation-review/internal/config"
	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/repository"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// AuthService coordinates reviewer login and account provisioning.
type AuthService struct {
	reviewers  repository.ReviewerRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, reviewers repository.ReviewerRepository) *AuthService {
	return &AuthService{
		reviewers:  reviewers,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Reviewer, string, time.Time, error) {
	reviewer, err := s.reviewers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewDatabaseError(err)
	}
	if !reviewer.IsActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(reviewer.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(reviewer.ID, reviewer.Name, reviewer.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnknownError(err)
	}
	return reviewer, token, expiresAt, nil
}

// RegisterReviewer provisions a reviewer account. Emails are unique; the role
// must be a known one.
func (s *AuthService) RegisterReviewer(ctx context.Context, name, email, password string, role domain.ReviewerRole) (*domain.Reviewer, error) {
	switch role {
	case domain.RoleReviewer, domain.RoleWorker, domain.RoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	existing, err := s.reviewers.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewDatabaseError(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflict("an account already exists for this email", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewUnknownError(err)
	}

	reviewer := &domain.Reviewer{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.reviewers.Insert(ctx, reviewer); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return reviewer, nil
}
