package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/remediation-review/internal/api/dto"
	"github.com/spec-kit/remediation-review/internal/auth"
	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/repository"
	"github.com/spec-kit/remediation-review/internal/service"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// TicketsHandler exposes the approval workflow operations.
type TicketsHandler struct {
	service *service.ApprovalService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(approvalService *service.ApprovalService) *TicketsHandler {
	return &TicketsHandler{service: approvalService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	draft := service.TicketDraft{
		SecurityAlertID:    req.SecurityAlertID,
		IssueID:            req.IssueID,
		Category:           domain.IssueCategory(req.Category),
		Severity:           domain.Severity(req.Severity),
		Description:        req.Description,
		AffectedComponent:  req.AffectedComponent,
		AffectedResources:  req.AffectedResources,
		StackTrace:         req.StackTrace,
		DetectionContext:   req.DetectionContext,
		ActionID:           req.ActionID,
		HealingStrategy:    domain.HealingStrategy(req.HealingStrategy),
		HealingDescription: req.HealingDescription,
		HealingSteps:       req.HealingSteps,
		RollbackSteps:      req.RollbackSteps,
		ExpectedOutcome:    req.ExpectedOutcome,
		SandboxTested:      req.SandboxTested,
		SandboxResult:      req.SandboxResult,
		SandboxPassed:      req.SandboxPassed,
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), draft)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.GetTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(tickets)})
}

// GetPending GET /tickets/pending.
func (h *TicketsHandler) GetPending(c *fiber.Ctx) error {
	tickets, err := h.service.GetPendingTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(tickets)})
}

// GetApproved GET /tickets/approved.
func (h *TicketsHandler) GetApproved(c *fiber.Ctx) error {
	tickets, err := h.service.GetApprovedTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(tickets)})
}

// GetStats GET /tickets/stats.
func (h *TicketsHandler) GetStats(c *fiber.Ctx) error {
	snapshot, err := h.service.GetTicketStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snapshot})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicketByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// GetTicketByAlert GET /tickets/by-alert/:alertID.
func (h *TicketsHandler) GetTicketByAlert(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicketByAlertID(c.UserContext(), c.Params("alertID"))
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// MarkInReview POST /tickets/:id/review.
func (h *TicketsHandler) MarkInReview(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("reviewer required")
	}
	claimed, err := h.service.MarkInReview(c.UserContext(), c.Params("id"), principal.Reviewer.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"claimed": claimed}})
}

// ApproveTicket POST /tickets/:id/approve.
func (h *TicketsHandler) ApproveTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("reviewer required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ApproveTicket(c.UserContext(), c.Params("id"), service.ReviewInput{
		ReviewerID:   principal.Reviewer.ID,
		ReviewerName: principal.Reviewer.Name,
		Checklist:    req.Checklist,
		Notes:        req.Notes,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// RejectTicket POST /tickets/:id/reject.
func (h *TicketsHandler) RejectTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("reviewer required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.RejectTicket(c.UserContext(), c.Params("id"), service.ReviewInput{
		ReviewerID:   principal.Reviewer.ID,
		ReviewerName: principal.Reviewer.Name,
		Checklist:    req.Checklist,
		Notes:        req.Notes,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// MarkApplied POST /tickets/:id/apply.
func (h *TicketsHandler) MarkApplied(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("worker required")
	}
	var req dto.ApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	applied, err := h.service.MarkApplied(c.UserContext(), c.Params("id"), service.ApplyReport{
		AppliedBy: principal.Reviewer.ID,
		Result:    req.Result,
		Error:     req.Error,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"recorded": applied}})
}

// RollbackTicket POST /tickets/:id/rollback.
func (h *TicketsHandler) RollbackTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("reviewer required")
	}
	var req dto.RollbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.RollbackTicket(c.UserContext(), c.Params("id"), principal.Reviewer.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

func summaries(tickets []domain.ReviewTicket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return items
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	var filter repository.TicketFilter

	for _, raw := range splitCSV(c.Query("status")) {
		status := domain.TicketStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, apperrors.NewValidationError("unknown status filter", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitCSV(c.Query("severity")) {
		filter.Severities = append(filter.Severities, domain.Severity(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(c.Query("strategy")) {
		filter.Strategies = append(filter.Strategies, domain.HealingStrategy(strings.ToUpper(raw)))
	}

	if from := c.Query("created_from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid created_from", nil)
		}
		filter.CreatedFrom = &ts
	}
	if to := c.Query("created_to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid created_to", nil)
		}
		filter.CreatedTo = &ts
	}
	if q := c.Query("q"); q != "" {
		filter.SearchTerm = &q
	}
	if limit := c.Query("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid limit", nil)
		}
		filter.Limit = parsed
	}
	return filter, nil
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
