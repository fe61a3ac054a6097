package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/remediation-review/internal/api/dto"
	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/service"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// AuthHandler exposes reviewer login.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	reviewer, token, expiresAt, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Reviewer: dto.ReviewerSummary{
			ID:    reviewer.ID,
			Name:  reviewer.Name,
			Email: reviewer.Email,
		},
		Role: reviewer.Role,
	}})
}

// CreateReviewer POST /reviewers (admin only).
func (h *AuthHandler) CreateReviewer(c *fiber.Ctx) error {
	var req dto.CreateReviewerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reviewer, err := h.service.RegisterReviewer(c.UserContext(),
		req.Name, req.Email, req.Password, domain.ReviewerRole(strings.ToUpper(req.Role)))
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ReviewerSummary{
		ID:    reviewer.ID,
		Name:  reviewer.Name,
		Email: reviewer.Email,
	}})
}
