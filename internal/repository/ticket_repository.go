package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/stats"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// maxListRows bounds every list response.
const maxListRows = 100

// TicketFilter captures dashboard search parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Severities  []domain.Severity
	Strategies  []domain.HealingStrategy
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SearchTerm  *string
	Limit       int
}

// StatusUpdate carries the fields written alongside a conditional status change.
// Nil fields are left untouched.
type StatusUpdate struct {
	Status            domain.TicketStatus
	ReviewedBy        *string
	ReviewerName      *string
	ReviewedAt        *time.Time
	Checklist         *domain.ReviewChecklist
	ReviewNotes       *string
	ReviewMetadata    map[string]any
	AppliedAt         *time.Time
	AppliedBy         *string
	ApplicationResult *domain.ApplicationResult
	ApplicationError  *string
	RolledBackAt      *time.Time
	RolledBackBy      *string
	RollbackReason    *string
}

// TicketRepository encapsulates review ticket persistence.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.ReviewTicket) error
	GetByID(ctx context.Context, id string) (*domain.ReviewTicket, error)
	// GetByAlertID returns the active (non-terminal) ticket for the alert, or
	// nil without error when there is none.
	GetByAlertID(ctx context.Context, alertID string) (*domain.ReviewTicket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ReviewTicket, error)
	// ListApproved returns approved tickets oldest-reviewed-first for the apply queue.
	ListApproved(ctx context.Context) ([]domain.ReviewTicket, error)
	// UpdateStatusIf performs a compare-and-set keyed on the current status. It
	// reports false without error when the precondition did not hold, so callers
	// can tell "someone already acted" apart from "ticket missing."
	UpdateStatusIf(ctx context.Context, id string, expected domain.TicketStatus, update StatusUpdate) (bool, error)
	ListStatusTimes(ctx context.Context) ([]stats.Row, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, security_alert_id, issue_id, category, severity, description,
       affected_component, affected_resources, stack_trace, detection_context,
       action_id, healing_strategy, healing_description, healing_steps, rollback_steps, expected_outcome,
       sandbox_tested, sandbox_result, sandbox_passed,
       status, reviewed_by, reviewer_name, reviewed_at,
       checklist_code_reviewed, checklist_impact_understood, checklist_rollback_understood,
       review_notes, review_metadata,
       applied_at, applied_by, application_result, application_error,
       rolled_back_at, rolled_back_by, rollback_reason,
       created_at, updated_at`

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.ReviewTicket) error {
	if missing := missingMandatoryFields(ticket); len(missing) > 0 {
		return apperrors.NewDomainError(apperrors.CodeDatabase, "constraint violation",
			http.StatusServiceUnavailable, map[string]any{"missing_fields": missing})
	}

	const query = `
        INSERT INTO review_tickets (
            id, security_alert_id, issue_id, category, severity, description,
            affected_component, affected_resources, stack_trace, detection_context,
            action_id, healing_strategy, healing_description, healing_steps, rollback_steps, expected_outcome,
            sandbox_tested, sandbox_result, sandbox_passed, status, review_notes
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.SecurityAlertID,
		ticket.IssueID,
		ticket.Category,
		ticket.Severity,
		ticket.Description,
		ticket.AffectedComponent,
		ticket.AffectedResources,
		ticket.StackTrace,
		ticket.DetectionContext,
		ticket.ActionID,
		ticket.HealingStrategy,
		ticket.HealingDescription,
		ticket.HealingSteps,
		ticket.RollbackSteps,
		ticket.ExpectedOutcome,
		ticket.SandboxTested,
		ticket.SandboxResult,
		ticket.SandboxPassed,
		ticket.Status,
		ticket.ReviewNotes,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func missingMandatoryFields(ticket *domain.ReviewTicket) []string {
	var missing []string
	if strings.TrimSpace(ticket.IssueID) == "" {
		missing = append(missing, "issue_id")
	}
	if ticket.Category == "" {
		missing = append(missing, "category")
	}
	if ticket.Severity == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(ticket.ActionID) == "" {
		missing = append(missing, "action_id")
	}
	if ticket.HealingStrategy == "" {
		missing = append(missing, "healing_strategy")
	}
	if strings.TrimSpace(ticket.HealingDescription) == "" {
		missing = append(missing, "healing_description")
	}
	return missing
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.ReviewTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByAlertID(ctx context.Context, alertID string) (*domain.ReviewTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_tickets
        WHERE security_alert_id=$1 AND status NOT IN ('REJECTED','APPLIED','FAILED','ROLLED_BACK')
        ORDER BY created_at DESC LIMIT 1`, ticketColumns)
	ticket, err := r.fetchSingle(ctx, query, alertID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ReviewTicket, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanTicket(row)
}

func scanTicket(row pgx.Row) (*domain.ReviewTicket, error) {
	var ticket domain.ReviewTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.SecurityAlertID,
		&ticket.IssueID,
		&ticket.Category,
		&ticket.Severity,
		&ticket.Description,
		&ticket.AffectedComponent,
		&ticket.AffectedResources,
		&ticket.StackTrace,
		&ticket.DetectionContext,
		&ticket.ActionID,
		&ticket.HealingStrategy,
		&ticket.HealingDescription,
		&ticket.HealingSteps,
		&ticket.RollbackSteps,
		&ticket.ExpectedOutcome,
		&ticket.SandboxTested,
		&ticket.SandboxResult,
		&ticket.SandboxPassed,
		&ticket.Status,
		&ticket.ReviewedBy,
		&ticket.ReviewerName,
		&ticket.ReviewedAt,
		&ticket.Checklist.CodeReviewed,
		&ticket.Checklist.ImpactUnderstood,
		&ticket.Checklist.RollbackUnderstood,
		&ticket.ReviewNotes,
		&ticket.ReviewMetadata,
		&ticket.AppliedAt,
		&ticket.AppliedBy,
		&ticket.ApplicationResult,
		&ticket.ApplicationError,
		&ticket.RolledBackAt,
		&ticket.RolledBackBy,
		&ticket.RollbackReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ReviewTicket, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// buildListQuery assembles the filtered SELECT with positional args.
func buildListQuery(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	appendIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}

	statuses := make([]string, len(filter.Statuses))
	for i, s := range filter.Statuses {
		statuses[i] = string(s)
	}
	appendIn("status", statuses)

	severities := make([]string, len(filter.Severities))
	for i, s := range filter.Severities {
		severities[i] = string(s)
	}
	appendIn("severity", severities)

	strategies := make([]string, len(filter.Strategies))
	for i, s := range filter.Strategies {
		strategies[i] = string(s)
	}
	appendIn("healing_strategy", strategies)

	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(description) LIKE %s OR LOWER(affected_component) LIKE %s OR LOWER(healing_description) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxListRows {
		limit = maxListRows
	}

	query := fmt.Sprintf(`SELECT %s FROM review_tickets WHERE %s ORDER BY created_at DESC LIMIT %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit)
	return query, args
}

func (r *ticketRepository) ListApproved(ctx context.Context) ([]domain.ReviewTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_tickets
        WHERE status='APPROVED' ORDER BY reviewed_at ASC LIMIT %d`, ticketColumns, maxListRows)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateStatusIf(ctx context.Context, id string, expected domain.TicketStatus, update StatusUpdate) (bool, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	set("status", update.Status)
	if update.ReviewedBy != nil {
		set("reviewed_by", *update.ReviewedBy)
	}
	if update.ReviewerName != nil {
		set("reviewer_name", *update.ReviewerName)
	}
	if update.ReviewedAt != nil {
		set("reviewed_at", *update.ReviewedAt)
	}
	if update.Checklist != nil {
		set("checklist_code_reviewed", update.Checklist.CodeReviewed)
		set("checklist_impact_understood", update.Checklist.ImpactUnderstood)
		set("checklist_rollback_understood", update.Checklist.RollbackUnderstood)
	}
	if update.ReviewNotes != nil {
		set("review_notes", *update.ReviewNotes)
	}
	if update.ReviewMetadata != nil {
		set("review_metadata", update.ReviewMetadata)
	}
	if update.AppliedAt != nil {
		set("applied_at", *update.AppliedAt)
	}
	if update.AppliedBy != nil {
		set("applied_by", *update.AppliedBy)
	}
	if update.ApplicationResult != nil {
		set("application_result", update.ApplicationResult)
	}
	if update.ApplicationError != nil {
		set("application_error", *update.ApplicationError)
	}
	if update.RolledBackAt != nil {
		set("rolled_back_at", *update.RolledBackAt)
	}
	if update.RolledBackBy != nil {
		set("rolled_back_by", *update.RolledBackBy)
	}
	if update.RollbackReason != nil {
		set("rollback_reason", *update.RollbackReason)
	}

	args = append(args, id)
	idArg := len(args)
	args = append(args, expected)
	expectedArg := len(args)

	query := fmt.Sprintf(`UPDATE review_tickets SET %s WHERE id=$%d AND status=$%d`,
		strings.Join(sets, ", "), idArg, expectedArg)

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ListStatusTimes(ctx context.Context) ([]stats.Row, error) {
	const query = `SELECT status, created_at, reviewed_at, applied_at FROM review_tickets`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []stats.Row
	for rows.Next() {
		var row stats.Row
		if err := rows.Scan(&row.Status, &row.CreatedAt, &row.ReviewedAt, &row.AppliedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.ReviewTicket, error) {
	var result []domain.ReviewTicket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
