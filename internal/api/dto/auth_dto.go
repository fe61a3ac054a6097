package dto

import (
	"time"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse payload.
type LoginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Reviewer  ReviewerSummary     `json:"reviewer"`
	Role      domain.ReviewerRole `json:"role"`
}

// CreateReviewerRequest provisions a reviewer account.
type CreateReviewerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ReviewerSummary exposes non-sensitive reviewer fields.
type ReviewerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
