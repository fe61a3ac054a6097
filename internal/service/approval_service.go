package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/remediation-review/internal/audit"
	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/events"
	"github.com/spec-kit/remediation-review/internal/repository"
	"github.com/spec-kit/remediation-review/internal/stats"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// Failure-path audit event names. Success names live in the audit package.
const (
	auditCreateFailed   = "TICKET_CREATE_FAILED"
	auditReviewFailed   = "TICKET_REVIEW_FAILED"
	auditApproveFailed  = "TICKET_APPROVE_FAILED"
	auditRejectFailed   = "TICKET_REJECT_FAILED"
	auditApplyFailed    = "TICKET_APPLY_FAILED"
	auditRollbackFailed = "TICKET_ROLLBACK_FAILED"
)

// ApprovalService owns every write to the ticket store and guards all status
// transitions. It is safe for concurrent use by multiple reviewer sessions,
// dashboards and apply workers: transitions are conditional writes keyed on the
// expected prior status, so racing callers resolve to one winner and benign no-ops.
type ApprovalService struct {
	tickets    repository.TicketRepository
	audit      audit.Recorder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	TicketRepo repository.TicketRepository
	Audit      audit.Recorder
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := deps.Audit
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &ApprovalService{
		tickets:    deps.TicketRepo,
		audit:      recorder,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// TicketDraft describes a machine-proposed fix submitted for review.
type TicketDraft struct {
	SecurityAlertID   *string
	IssueID           string
	Category          domain.IssueCategory
	Severity          domain.Severity
	Description       string
	AffectedComponent string
	AffectedResources []string
	StackTrace        *string
	DetectionContext  map[string]any

	ActionID           string
	HealingStrategy    domain.HealingStrategy
	HealingDescription string
	HealingSteps       []domain.HealingStep
	RollbackSteps      []domain.HealingStep
	ExpectedOutcome    string

	SandboxTested bool
	SandboxResult *domain.SandboxResult
	SandboxPassed bool
}

// ReviewInput carries reviewer identity and sign-off data.
type ReviewInput struct {
	ReviewerID   string
	ReviewerName string
	Checklist    domain.ReviewChecklist
	Notes        string
	Metadata     map[string]any
}

// ApplyReport is the externally reported outcome of applying a fix.
type ApplyReport struct {
	AppliedBy string
	Result    domain.ApplicationResult
	Error     *string
}

// CreateTicket persists a new ticket in PENDING status. At most one active
// (non-terminal) ticket may exist per originating security alert.
func (s *ApprovalService) CreateTicket(ctx context.Context, draft TicketDraft) (*domain.ReviewTicket, error) {
	if draft.SecurityAlertID != nil {
		existing, err := s.tickets.GetByAlertID(ctx, *draft.SecurityAlertID)
		if err != nil {
			return nil, s.failStore(ctx, auditCreateFailed, "", err)
		}
		if existing != nil {
			conflict := apperrors.NewConflict("an active ticket already exists for this alert",
				map[string]any{"existing_ticket_id": existing.ID})
			s.audit.Record(ctx, auditCreateFailed, audit.SeverityWarning, existing.ID, map[string]any{
				"error_code":        apperrors.CodeConflict,
				"security_alert_id": *draft.SecurityAlertID,
			})
			return nil, conflict
		}
	}

	ticket := &domain.ReviewTicket{
		ID:                 uuid.NewString(),
		SecurityAlertID:    draft.SecurityAlertID,
		IssueID:            draft.IssueID,
		Category:           draft.Category,
		Severity:           draft.Severity,
		Description:        strings.TrimSpace(draft.Description),
		AffectedComponent:  draft.AffectedComponent,
		AffectedResources:  draft.AffectedResources,
		StackTrace:         draft.StackTrace,
		DetectionContext:   draft.DetectionContext,
		ActionID:           draft.ActionID,
		HealingStrategy:    draft.HealingStrategy,
		HealingDescription: strings.TrimSpace(draft.HealingDescription),
		HealingSteps:       draft.HealingSteps,
		RollbackSteps:      draft.RollbackSteps,
		ExpectedOutcome:    draft.ExpectedOutcome,
		SandboxTested:      draft.SandboxTested,
		SandboxResult:      draft.SandboxResult,
		SandboxPassed:      draft.SandboxPassed,
		Status:             domain.TicketStatusPending,
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, s.failStore(ctx, auditCreateFailed, ticket.ID, err)
	}

	s.audit.Record(ctx, audit.EventTicketCreated, audit.SeverityInfo, ticket.ID, map[string]any{
		"issue_id":       ticket.IssueID,
		"category":       ticket.Category,
		"severity":       ticket.Severity,
		"strategy":       ticket.HealingStrategy,
		"risk":           ticket.HealingStrategy.Risk(),
		"sandbox_passed": ticket.SandboxPassed,
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    "producer",
		Ticket:   ticket,
	})
	return ticket, nil
}

// GetTicketByID fetches a single ticket.
func (s *ApprovalService) GetTicketByID(ctx context.Context, id string) (*domain.ReviewTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, storeError(err)
	}
	return ticket, nil
}

// GetTicketByAlertID returns the active ticket for an alert, or nil when none exists.
func (s *ApprovalService) GetTicketByAlertID(ctx context.Context, alertID string) (*domain.ReviewTicket, error) {
	ticket, err := s.tickets.GetByAlertID(ctx, alertID)
	if err != nil {
		return nil, storeError(err)
	}
	return ticket, nil
}

// GetTickets returns the filtered ticket list, newest first, capped at 100 rows.
func (s *ApprovalService) GetTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.ReviewTicket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	if tickets == nil {
		tickets = []domain.ReviewTicket{}
	}
	return tickets, nil
}

// GetPendingTickets returns all tickets awaiting review.
func (s *ApprovalService) GetPendingTickets(ctx context.Context) ([]domain.ReviewTicket, error) {
	return s.GetTickets(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusPending},
	})
}

// GetApprovedTickets returns approved tickets oldest-reviewed-first, forming the
// FIFO queue the apply worker drains.
func (s *ApprovalService) GetApprovedTickets(ctx context.Context) ([]domain.ReviewTicket, error) {
	tickets, err := s.tickets.ListApproved(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if tickets == nil {
		tickets = []domain.ReviewTicket{}
	}
	return tickets, nil
}

// GetTicketStats computes current queue depths and same-day outcome counts.
func (s *ApprovalService) GetTicketStats(ctx context.Context) (stats.Snapshot, error) {
	rows, err := s.tickets.ListStatusTimes(ctx)
	if err != nil {
		return stats.Snapshot{}, storeError(err)
	}
	return stats.Aggregate(rows, s.now()), nil
}

// MarkInReview claims a pending ticket for review. When two reviewers open the
// same ticket simultaneously exactly one call returns true; the loser observes a
// benign no-op (false, nil).
func (s *ApprovalService) MarkInReview(ctx context.Context, id, actor string) (bool, error) {
	ok, err := s.tickets.UpdateStatusIf(ctx, id, domain.TicketStatusPending, repository.StatusUpdate{
		Status: domain.TicketStatusInReview,
	})
	if err != nil {
		return false, s.failStore(ctx, auditReviewFailed, id, err)
	}
	if !ok {
		if _, err := s.GetTicketByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	s.audit.Record(ctx, audit.EventTicketInReview, audit.SeverityInfo, id, map[string]any{
		"actor": actor,
	})
	s.publishStatusChange(ctx, id, actor, domain.TicketStatusPending, domain.TicketStatusInReview)
	return true, nil
}

// ApproveTicket transitions IN_REVIEW -> APPROVED. The full three-part checklist
// is required; the sandbox verdict is advisory and travels in the audit context.
func (s *ApprovalService) ApproveTicket(ctx context.Context, id string, input ReviewInput) (*domain.ReviewTicket, error) {
	if !input.Checklist.Complete() {
		return nil, s.failValidation(ctx, auditApproveFailed, id, "review checklist incomplete",
			map[string]any{"checklist": input.Checklist})
	}

	ticket, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusApproved) {
		return nil, s.failValidation(ctx, auditApproveFailed, id, "ticket already processed",
			map[string]any{"current_status": ticket.Status})
	}

	now := s.now()
	update := repository.StatusUpdate{
		Status:         domain.TicketStatusApproved,
		ReviewedBy:     &input.ReviewerID,
		ReviewerName:   &input.ReviewerName,
		ReviewedAt:     &now,
		Checklist:      &input.Checklist,
		ReviewNotes:    &input.Notes,
		ReviewMetadata: input.Metadata,
	}
	ok, err := s.tickets.UpdateStatusIf(ctx, id, domain.TicketStatusInReview, update)
	if err != nil {
		return nil, s.failStore(ctx, auditApproveFailed, id, err)
	}
	if !ok {
		// Lost the race: another reviewer already resolved this ticket.
		return nil, s.failValidation(ctx, auditApproveFailed, id, "ticket already processed", nil)
	}

	updated, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.EventTicketApproved, audit.SeverityInfo, id, map[string]any{
		"reviewer_id":    input.ReviewerID,
		"strategy":       updated.HealingStrategy,
		"risk":           updated.HealingStrategy.Risk(),
		"sandbox_passed": updated.SandboxPassed,
	})
	s.publishStatusChange(ctx, id, input.ReviewerID, domain.TicketStatusInReview, domain.TicketStatusApproved)
	return updated, nil
}

// RejectTicket transitions IN_REVIEW -> REJECTED. Non-empty notes are required.
func (s *ApprovalService) RejectTicket(ctx context.Context, id string, input ReviewInput) (*domain.ReviewTicket, error) {
	if strings.TrimSpace(input.Notes) == "" {
		return nil, s.failValidation(ctx, auditRejectFailed, id, "rejection notes are required", nil)
	}

	ticket, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusRejected) {
		return nil, s.failValidation(ctx, auditRejectFailed, id, "ticket already processed",
			map[string]any{"current_status": ticket.Status})
	}

	now := s.now()
	update := repository.StatusUpdate{
		Status:         domain.TicketStatusRejected,
		ReviewedBy:     &input.ReviewerID,
		ReviewerName:   &input.ReviewerName,
		ReviewedAt:     &now,
		Checklist:      &input.Checklist,
		ReviewNotes:    &input.Notes,
		ReviewMetadata: input.Metadata,
	}
	ok, err := s.tickets.UpdateStatusIf(ctx, id, domain.TicketStatusInReview, update)
	if err != nil {
		return nil, s.failStore(ctx, auditRejectFailed, id, err)
	}
	if !ok {
		return nil, s.failValidation(ctx, auditRejectFailed, id, "ticket already processed", nil)
	}

	updated, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.EventTicketRejected, audit.SeverityInfo, id, map[string]any{
		"reviewer_id": input.ReviewerID,
	})
	s.publishStatusChange(ctx, id, input.ReviewerID, domain.TicketStatusInReview, domain.TicketStatusRejected)
	return updated, nil
}

// MarkApplied records the externally reported apply outcome, transitioning
// APPROVED -> APPLIED on success or APPROVED -> FAILED otherwise. Reporting an
// outcome for a ticket that already reached APPLIED or FAILED is an idempotent
// no-op: the call succeeds without a second write or audit event.
func (s *ApprovalService) MarkApplied(ctx context.Context, id string, report ApplyReport) (bool, error) {
	ticket, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return false, err
	}
	if ticket.Status == domain.TicketStatusApplied || ticket.Status == domain.TicketStatusFailed {
		return true, nil
	}
	if ticket.Status != domain.TicketStatusApproved {
		return false, s.failValidation(ctx, auditApplyFailed, id, "ticket not approved",
			map[string]any{"current_status": ticket.Status})
	}

	newStatus := domain.TicketStatusApplied
	if !report.Result.Success {
		newStatus = domain.TicketStatusFailed
	}
	now := s.now()
	update := repository.StatusUpdate{
		Status:            newStatus,
		AppliedAt:         &now,
		AppliedBy:         &report.AppliedBy,
		ApplicationResult: &report.Result,
		ApplicationError:  report.Error,
	}
	ok, err := s.tickets.UpdateStatusIf(ctx, id, domain.TicketStatusApproved, update)
	if err != nil {
		return false, s.failStore(ctx, auditApplyFailed, id, err)
	}
	if !ok {
		// Another reporter won; treat a now-terminal ticket as an idempotent success.
		current, err := s.GetTicketByID(ctx, id)
		if err != nil {
			return false, err
		}
		if current.Status == domain.TicketStatusApplied || current.Status == domain.TicketStatusFailed {
			return true, nil
		}
		return false, s.failValidation(ctx, auditApplyFailed, id, "ticket not approved",
			map[string]any{"current_status": current.Status})
	}

	s.audit.Record(ctx, audit.EventTicketApplied, audit.SeverityInfo, id, map[string]any{
		"success":         report.Result.Success,
		"steps_completed": report.Result.StepsCompleted,
		"steps_total":     report.Result.StepsTotal,
		"applied_by":      report.AppliedBy,
	})
	s.publishStatusChange(ctx, id, report.AppliedBy, domain.TicketStatusApproved, newStatus)
	return true, nil
}

// RollbackTicket transitions APPLIED -> ROLLED_BACK. A rollback reason is required.
func (s *ApprovalService) RollbackTicket(ctx context.Context, id, actor, reason string) (*domain.ReviewTicket, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, s.failValidation(ctx, auditRollbackFailed, id, "rollback reason is required", nil)
	}

	ticket, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusRolledBack) {
		return nil, s.failValidation(ctx, auditRollbackFailed, id, "only applied tickets can be rolled back",
			map[string]any{"current_status": ticket.Status})
	}

	now := s.now()
	update := repository.StatusUpdate{
		Status:         domain.TicketStatusRolledBack,
		RolledBackAt:   &now,
		RolledBackBy:   &actor,
		RollbackReason: &reason,
	}
	ok, err := s.tickets.UpdateStatusIf(ctx, id, domain.TicketStatusApplied, update)
	if err != nil {
		return nil, s.failStore(ctx, auditRollbackFailed, id, err)
	}
	if !ok {
		return nil, s.failValidation(ctx, auditRollbackFailed, id, "ticket already processed", nil)
	}

	updated, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.EventTicketRolledBack, audit.SeverityInfo, id, map[string]any{
		"actor":  actor,
		"reason": reason,
	})
	s.publishStatusChange(ctx, id, actor, domain.TicketStatusApplied, domain.TicketStatusRolledBack)
	return updated, nil
}

// failValidation records the failure audit event and returns a VALIDATION_ERROR.
func (s *ApprovalService) failValidation(ctx context.Context, event, ticketID, message string, details map[string]any) error {
	s.audit.Record(ctx, event, audit.SeverityWarning, ticketID, map[string]any{
		"error_code": apperrors.CodeValidation,
		"message":    message,
	})
	return apperrors.NewValidationError(message, details)
}

// failStore records the failure audit event and maps the store error.
func (s *ApprovalService) failStore(ctx context.Context, event, ticketID string, err error) error {
	mapped := storeError(err)
	s.audit.Record(ctx, event, audit.SeverityError, ticketID, map[string]any{
		"error_code": apperrors.CodeOf(mapped),
	})
	return mapped
}

// storeError maps raw store/transport failures onto the service error taxonomy.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewUnknownError(err)
	}
	return apperrors.NewDatabaseError(err)
}

func (s *ApprovalService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *ApprovalService) publishStatusChange(ctx context.Context, id, actor string, oldStatus, newStatus domain.TicketStatus) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("snapshot fetch after transition failed",
			zap.String("ticket_id", id), zap.Error(err))
		ticket = nil
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Actor:    actor,
		Ticket:   ticket,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
}
