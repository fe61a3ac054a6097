package dto

import (
	"time"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	SecurityAlertID   *string        `json:"security_alert_id"`
	IssueID           string         `json:"issue_id"`
	Category          string         `json:"category"`
	Severity          string         `json:"severity"`
	Description       string         `json:"description"`
	AffectedComponent string         `json:"affected_component"`
	AffectedResources []string       `json:"affected_resources"`
	StackTrace        *string        `json:"stack_trace"`
	DetectionContext  map[string]any `json:"detection_context"`

	ActionID           string               `json:"action_id"`
	HealingStrategy    string               `json:"healing_strategy"`
	HealingDescription string               `json:"healing_description"`
	HealingSteps       []domain.HealingStep `json:"healing_steps"`
	RollbackSteps      []domain.HealingStep `json:"rollback_steps"`
	ExpectedOutcome    string               `json:"expected_outcome"`

	SandboxTested bool                  `json:"sandbox_tested"`
	SandboxResult *domain.SandboxResult `json:"sandbox_result"`
	SandboxPassed bool                  `json:"sandbox_passed"`
}

// ReviewRequest carries an approve/reject sign-off.
type ReviewRequest struct {
	Checklist domain.ReviewChecklist `json:"checklist"`
	Notes     string                 `json:"notes"`
	Metadata  map[string]any         `json:"metadata"`
}

// ApplyRequest reports the outcome of an external apply action.
type ApplyRequest struct {
	Result domain.ApplicationResult `json:"result"`
	Error  *string                  `json:"error"`
}

// RollbackRequest carries the mandatory rollback reason.
type RollbackRequest struct {
	Reason string `json:"reason"`
}

// TicketSummary is the lightweight list representation.
type TicketSummary struct {
	ID                string                 `json:"id"`
	SecurityAlertID   *string                `json:"security_alert_id,omitempty"`
	Category          domain.IssueCategory   `json:"category"`
	Severity          domain.Severity        `json:"severity"`
	Description       string                 `json:"description"`
	AffectedComponent string                 `json:"affected_component"`
	HealingStrategy   domain.HealingStrategy `json:"healing_strategy"`
	Risk              domain.RiskTier        `json:"risk"`
	SandboxPassed     bool                   `json:"sandbox_passed"`
	Status            domain.TicketStatus    `json:"status"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// NewTicketSummary projects the aggregate onto the summary shape.
func NewTicketSummary(ticket *domain.ReviewTicket) TicketSummary {
	return TicketSummary{
		ID:                ticket.ID,
		SecurityAlertID:   ticket.SecurityAlertID,
		Category:          ticket.Category,
		Severity:          ticket.Severity,
		Description:       ticket.Description,
		AffectedComponent: ticket.AffectedComponent,
		HealingStrategy:   ticket.HealingStrategy,
		Risk:              ticket.HealingStrategy.Risk(),
		SandboxPassed:     ticket.SandboxPassed,
		Status:            ticket.Status,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

// TicketDetail is the full ticket representation.
type TicketDetail struct {
	TicketSummary
	IssueID            string                    `json:"issue_id"`
	AffectedResources  []string                  `json:"affected_resources,omitempty"`
	StackTrace         *string                   `json:"stack_trace,omitempty"`
	DetectionContext   map[string]any            `json:"detection_context,omitempty"`
	ActionID           string                    `json:"action_id"`
	HealingDescription string                    `json:"healing_description"`
	HealingSteps       []domain.HealingStep      `json:"healing_steps,omitempty"`
	RollbackSteps      []domain.HealingStep      `json:"rollback_steps,omitempty"`
	ExpectedOutcome    string                    `json:"expected_outcome,omitempty"`
	SandboxTested      bool                      `json:"sandbox_tested"`
	SandboxResult      *domain.SandboxResult     `json:"sandbox_result,omitempty"`
	ReviewedBy         *string                   `json:"reviewed_by,omitempty"`
	ReviewerName       *string                   `json:"reviewer_name,omitempty"`
	ReviewedAt         *time.Time                `json:"reviewed_at,omitempty"`
	Checklist          domain.ReviewChecklist    `json:"checklist"`
	ReviewNotes        string                    `json:"review_notes,omitempty"`
	ReviewMetadata     map[string]any            `json:"review_metadata,omitempty"`
	AppliedAt          *time.Time                `json:"applied_at,omitempty"`
	AppliedBy          *string                   `json:"applied_by,omitempty"`
	ApplicationResult  *domain.ApplicationResult `json:"application_result,omitempty"`
	ApplicationError   *string                   `json:"application_error,omitempty"`
	RolledBackAt       *time.Time                `json:"rolled_back_at,omitempty"`
	RolledBackBy       *string                   `json:"rolled_back_by,omitempty"`
	RollbackReason     *string                   `json:"rollback_reason,omitempty"`
}

// NewTicketDetail projects the aggregate onto the detail shape.
func NewTicketDetail(ticket *domain.ReviewTicket) TicketDetail {
	return TicketDetail{
		TicketSummary:      NewTicketSummary(ticket),
		IssueID:            ticket.IssueID,
		AffectedResources:  ticket.AffectedResources,
		StackTrace:         ticket.StackTrace,
		DetectionContext:   ticket.DetectionContext,
		ActionID:           ticket.ActionID,
		HealingDescription: ticket.HealingDescription,
		HealingSteps:       ticket.HealingSteps,
		RollbackSteps:      ticket.RollbackSteps,
		ExpectedOutcome:    ticket.ExpectedOutcome,
		SandboxTested:      ticket.SandboxTested,
		SandboxResult:      ticket.SandboxResult,
		ReviewedBy:         ticket.ReviewedBy,
		ReviewerName:       ticket.ReviewerName,
		ReviewedAt:         ticket.ReviewedAt,
		Checklist:          ticket.Checklist,
		ReviewNotes:        ticket.ReviewNotes,
		ReviewMetadata:     ticket.ReviewMetadata,
		AppliedAt:          ticket.AppliedAt,
		AppliedBy:          ticket.AppliedBy,
		ApplicationResult:  ticket.ApplicationResult,
		ApplicationError:   ticket.ApplicationError,
		RolledBackAt:       ticket.RolledBackAt,
		RolledBackBy:       ticket.RolledBackBy,
		RollbackReason:     ticket.RollbackReason,
	}
}
