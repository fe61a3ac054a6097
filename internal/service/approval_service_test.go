package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/remediation-review/internal/audit"
	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/events"
	"github.com/spec-kit/remediation-review/internal/repository"
	"github.com/spec-kit/remediation-review/internal/stats"
	apperrors "github.com/spec-kit/remediation-review/pkg/util"
)

// fakeTicketRepo is an in-memory TicketRepository with the same compare-and-set
// semantics the Postgres implementation provides.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.ReviewTicket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.ReviewTicket)}
}

func (r *fakeTicketRepo) Insert(ctx context.Context, ticket *domain.ReviewTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.ReviewTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) GetByAlertID(ctx context.Context, alertID string) (*domain.ReviewTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.SecurityAlertID != nil && *ticket.SecurityAlertID == alertID && !ticket.Status.Terminal() {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.ReviewTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ReviewTicket
	for _, ticket := range r.tickets {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if len(result) > 100 {
		result = result[:100]
	}
	return result, nil
}

func (r *fakeTicketRepo) ListApproved(ctx context.Context) ([]domain.ReviewTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ReviewTicket
	for _, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusApproved {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ReviewedAt.Before(*result[j].ReviewedAt) })
	return result, nil
}

func (r *fakeTicketRepo) UpdateStatusIf(ctx context.Context, id string, expected domain.TicketStatus, update repository.StatusUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.Status != expected {
		return false, nil
	}
	ticket.Status = update.Status
	ticket.UpdatedAt = time.Now()
	if update.ReviewedBy != nil {
		ticket.ReviewedBy = update.ReviewedBy
	}
	if update.ReviewerName != nil {
		ticket.ReviewerName = update.ReviewerName
	}
	if update.ReviewedAt != nil {
		ticket.ReviewedAt = update.ReviewedAt
	}
	if update.Checklist != nil {
		ticket.Checklist = *update.Checklist
	}
	if update.ReviewNotes != nil {
		ticket.ReviewNotes = *update.ReviewNotes
	}
	if update.ReviewMetadata != nil {
		ticket.ReviewMetadata = update.ReviewMetadata
	}
	if update.AppliedAt != nil {
		ticket.AppliedAt = update.AppliedAt
	}
	if update.AppliedBy != nil {
		ticket.AppliedBy = update.AppliedBy
	}
	if update.ApplicationResult != nil {
		ticket.ApplicationResult = update.ApplicationResult
	}
	if update.ApplicationError != nil {
		ticket.ApplicationError = update.ApplicationError
	}
	if update.RolledBackAt != nil {
		ticket.RolledBackAt = update.RolledBackAt
	}
	if update.RolledBackBy != nil {
		ticket.RolledBackBy = update.RolledBackBy
	}
	if update.RollbackReason != nil {
		ticket.RollbackReason = update.RollbackReason
	}
	return true, nil
}

func (r *fakeTicketRepo) ListStatusTimes(ctx context.Context) ([]stats.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []stats.Row
	for _, ticket := range r.tickets {
		rows = append(rows, stats.Row{
			Status:     ticket.Status,
			CreatedAt:  ticket.CreatedAt,
			ReviewedAt: ticket.ReviewedAt,
			AppliedAt:  ticket.AppliedAt,
		})
	}
	return rows, nil
}

func containsStatus(set []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

type recordedEvent struct {
	name     string
	severity string
	ticketID string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Record(ctx context.Context, name, severity, ticketID string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: name, severity: severity, ticketID: ticketID})
}

func (f *fakeRecorder) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T) (*ApprovalService, *fakeTicketRepo, *fakeRecorder) {
	t.Helper()
	repo := newFakeTicketRepo()
	recorder := &fakeRecorder{}
	svc := NewApprovalService(ApprovalDependencies{
		TicketRepo: repo,
		Audit:      recorder,
		Dispatcher: events.NewInMemoryDispatcher(),
	})
	return svc, repo, recorder
}

func validDraft() TicketDraft {
	return TicketDraft{
		IssueID:            "issue-42",
		Category:           domain.CategoryPerformanceDegradation,
		Severity:           domain.SeverityHigh,
		Description:        "connection pool exhaustion in order service",
		AffectedComponent:  "order-service",
		AffectedResources:  []string{"db-pool-primary"},
		ActionID:           "action-42",
		HealingStrategy:    domain.StrategyAutoPatch,
		HealingDescription: "raise pool ceiling and recycle idle connections",
		HealingSteps: []domain.HealingStep{
			{Order: 1, Action: "patch_config", Target: "order-service"},
		},
		RollbackSteps: []domain.HealingStep{
			{Order: 1, Action: "restore_config", Target: "order-service"},
		},
		SandboxTested: true,
		SandboxResult: &domain.SandboxResult{Passed: true, TestsRun: 12, TestsPassed: 12},
		SandboxPassed: true,
	}
}

func fullChecklist() domain.ReviewChecklist {
	return domain.ReviewChecklist{CodeReviewed: true, ImpactUnderstood: true, RollbackUnderstood: true}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	return apperrors.CodeOf(err)
}

func TestFullLifecycleAutoPatch(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, validDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != domain.TicketStatusPending {
		t.Fatalf("new ticket status = %s", ticket.Status)
	}

	ok, err := svc.MarkInReview(ctx, ticket.ID, "reviewer-1")
	if err != nil || !ok {
		t.Fatalf("mark in review: ok=%v err=%v", ok, err)
	}

	approved, err := svc.ApproveTicket(ctx, ticket.ID, ReviewInput{
		ReviewerID:   "reviewer-1",
		ReviewerName: "Dana",
		Checklist:    fullChecklist(),
		Notes:        "Approved for deployment",
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.TicketStatusApproved {
		t.Fatalf("status after approve = %s", approved.Status)
	}
	if approved.ReviewedAt == nil || approved.ReviewedBy == nil {
		t.Fatal("reviewed_at/reviewed_by not set on approval")
	}
	if !approved.Checklist.Complete() {
		t.Fatal("stored checklist incomplete after approval")
	}

	okApplied, err := svc.MarkApplied(ctx, ticket.ID, ApplyReport{
		AppliedBy: "apply-worker",
		Result: domain.ApplicationResult{
			Success:        true,
			StepsCompleted: 1,
			StepsTotal:     1,
			Changes:        []string{"patched:true"},
		},
	})
	if err != nil || !okApplied {
		t.Fatalf("mark applied: ok=%v err=%v", okApplied, err)
	}

	final, err := svc.GetTicketByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get final: %v", err)
	}
	if final.Status != domain.TicketStatusApplied {
		t.Fatalf("final status = %s, want APPLIED", final.Status)
	}
	if final.AppliedBy == nil || *final.AppliedBy != "apply-worker" {
		t.Fatal("applied_by not set")
	}
	if final.AppliedAt == nil {
		t.Fatal("applied_at not set for APPLIED ticket")
	}

	for _, name := range []string{
		audit.EventTicketCreated, audit.EventTicketInReview,
		audit.EventTicketApproved, audit.EventTicketApplied,
	} {
		if n := recorder.count(name); n != 1 {
			t.Errorf("audit %s count = %d, want 1", name, n)
		}
	}
}

func TestApproveRequiresFullChecklist(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, validDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.MarkInReview(ctx, ticket.ID, "reviewer-1"); err != nil {
		t.Fatalf("mark in review: %v", err)
	}

	_, err = svc.ApproveTicket(ctx, ticket.ID, ReviewInput{
		ReviewerID: "reviewer-1",
		Checklist:  domain.ReviewChecklist{CodeReviewed: true, ImpactUnderstood: true},
		Notes:      "looks fine",
	})
	if code := errorCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want VALIDATION_ERROR", code)
	}

	current, _ := svc.GetTicketByID(ctx, ticket.ID)
	if current.Status != domain.TicketStatusInReview {
		t.Fatalf("status changed to %s on failed approval", current.Status)
	}
}

func TestRejectRequiresNotes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, ticket.ID, "reviewer-1")

	_, err := svc.RejectTicket(ctx, ticket.ID, ReviewInput{ReviewerID: "reviewer-1", Notes: "   "})
	if code := errorCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want VALIDATION_ERROR", code)
	}

	current, _ := svc.GetTicketByID(ctx, ticket.ID)
	if current.Status != domain.TicketStatusInReview {
		t.Fatalf("status = %s, want IN_REVIEW", current.Status)
	}
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, ticket.ID, "reviewer-1")

	input := ReviewInput{ReviewerID: "reviewer-1", ReviewerName: "Dana", Checklist: fullChecklist(), Notes: "ok"}
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApproveTicket(ctx, ticket.ID, input)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, validationFailures int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.CodeOf(err) == apperrors.CodeValidation:
			validationFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || validationFailures != 1 {
		t.Fatalf("successes=%d validation=%d, want 1/1", successes, validationFailures)
	}
	if n := recorder.count(audit.EventTicketApproved); n != 1 {
		t.Fatalf("TICKET_APPROVED audit events = %d, want exactly 1", n)
	}
}

func TestConcurrentMarkInReviewSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())

	type outcome struct {
		ok  bool
		err error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.MarkInReview(ctx, ticket.ID, "reviewer")
			results <- outcome{ok, err}
		}()
	}
	wg.Wait()
	close(results)

	var wins, noops int
	for res := range results {
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if res.ok {
			wins++
		} else {
			noops++
		}
	}
	if wins != 1 || noops != 1 {
		t.Fatalf("wins=%d noops=%d, want 1/1", wins, noops)
	}
}

func TestMarkAppliedIdempotent(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, ticket.ID, "reviewer-1")
	_, _ = svc.ApproveTicket(ctx, ticket.ID, ReviewInput{ReviewerID: "reviewer-1", Checklist: fullChecklist(), Notes: "ok"})

	report := ApplyReport{AppliedBy: "apply-worker", Result: domain.ApplicationResult{Success: true, StepsCompleted: 1, StepsTotal: 1}}
	for i := 0; i < 2; i++ {
		ok, err := svc.MarkApplied(ctx, ticket.ID, report)
		if err != nil || !ok {
			t.Fatalf("report %d: ok=%v err=%v", i, ok, err)
		}
	}

	if n := recorder.count(audit.EventTicketApplied); n != 1 {
		t.Fatalf("TICKET_APPLIED audit events = %d, want exactly 1", n)
	}
}

func TestMarkAppliedRequiresApproval(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())
	_, err := svc.MarkApplied(ctx, ticket.ID, ApplyReport{AppliedBy: "apply-worker", Result: domain.ApplicationResult{Success: true}})
	if code := errorCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want VALIDATION_ERROR", code)
	}
}

func TestMarkAppliedFailureOutcome(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, ticket.ID, "reviewer-1")
	_, _ = svc.ApproveTicket(ctx, ticket.ID, ReviewInput{ReviewerID: "reviewer-1", Checklist: fullChecklist(), Notes: "ok"})

	applyErr := "step 3 timed out"
	ok, err := svc.MarkApplied(ctx, ticket.ID, ApplyReport{
		AppliedBy: "apply-worker",
		Result:    domain.ApplicationResult{Success: false, StepsCompleted: 2, StepsTotal: 3},
		Error:     &applyErr,
	})
	if err != nil || !ok {
		t.Fatalf("mark applied: ok=%v err=%v", ok, err)
	}

	current, _ := svc.GetTicketByID(ctx, ticket.ID)
	if current.Status != domain.TicketStatusFailed {
		t.Fatalf("status = %s, want FAILED", current.Status)
	}
	if current.AppliedAt == nil {
		t.Fatal("applied_at must be set for FAILED tickets")
	}
}

func TestRollbackLifecycle(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	ticket, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, ticket.ID, "reviewer-1")
	_, _ = svc.ApproveTicket(ctx, ticket.ID, ReviewInput{ReviewerID: "reviewer-1", Checklist: fullChecklist(), Notes: "ok"})
	_, _ = svc.MarkApplied(ctx, ticket.ID, ApplyReport{AppliedBy: "apply-worker", Result: domain.ApplicationResult{Success: true}})

	if _, err := svc.RollbackTicket(ctx, ticket.ID, "operator-1", ""); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("empty reason accepted: %v", err)
	}

	rolled, err := svc.RollbackTicket(ctx, ticket.ID, "operator-1", "patch regressed latency")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if rolled.Status != domain.TicketStatusRolledBack {
		t.Fatalf("status = %s, want ROLLED_BACK", rolled.Status)
	}
	if rolled.RolledBackBy == nil || rolled.RollbackReason == nil || rolled.RolledBackAt == nil {
		t.Fatal("rollback actor/reason/timestamp not recorded")
	}
	if rolled.AppliedAt == nil {
		t.Fatal("applied_at must remain set after rollback")
	}
	if n := recorder.count(audit.EventTicketRolledBack); n != 1 {
		t.Fatalf("TICKET_ROLLED_BACK audit events = %d, want 1", n)
	}
}

func TestCreateRejectsDuplicateActiveAlert(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	alertID := "alert-7"
	draft := validDraft()
	draft.SecurityAlertID = &alertID
	if _, err := svc.CreateTicket(ctx, draft); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateTicket(ctx, draft)
	if code := errorCode(t, err); code != apperrors.CodeConflict {
		t.Fatalf("error code = %s, want CONFLICT", code)
	}

	// After the first ticket reaches a terminal state a new one is allowed.
	first, _ := svc.GetTicketByAlertID(ctx, alertID)
	_, _ = svc.MarkInReview(ctx, first.ID, "reviewer-1")
	_, _ = svc.RejectTicket(ctx, first.ID, ReviewInput{ReviewerID: "reviewer-1", Notes: "too risky"})
	if _, err := svc.CreateTicket(ctx, draft); err != nil {
		t.Fatalf("create after terminal: %v", err)
	}
}

func TestGetPendingTicketsEmptyStore(t *testing.T) {
	svc, _, _ := newTestService(t)
	tickets, err := svc.GetPendingTickets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tickets == nil || len(tickets) != 0 {
		t.Fatalf("want empty slice, got %v", tickets)
	}
}

func TestGetTicketByIDNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetTicketByID(context.Background(), "missing")
	if code := errorCode(t, err); code != apperrors.CodeNotFound {
		t.Fatalf("error code = %s, want NOT_FOUND", code)
	}
}

func TestGetTicketByAlertIDNone(t *testing.T) {
	svc, _, _ := newTestService(t)
	ticket, err := svc.GetTicketByAlertID(context.Background(), "alert-none")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket != nil {
		t.Fatalf("want nil, got %+v", ticket)
	}
}

func TestGetTicketsFilterByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, _ := svc.CreateTicket(ctx, validDraft())
	second, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, second.ID, "reviewer-1")

	third, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, third.ID, "reviewer-1")
	_, _ = svc.RejectTicket(ctx, third.ID, ReviewInput{ReviewerID: "reviewer-1", Notes: "no"})

	tickets, err := svc.GetTickets(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusInReview},
	})
	if err != nil {
		t.Fatalf("get tickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("len = %d, want 2", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.Status != domain.TicketStatusPending && ticket.Status != domain.TicketStatusInReview {
			t.Fatalf("unexpected status %s", ticket.Status)
		}
	}
	// Newest first.
	if !tickets[0].CreatedAt.After(tickets[1].CreatedAt) {
		t.Fatal("tickets not ordered by created_at descending")
	}
	_ = first
}

func TestGetApprovedTicketsFIFO(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var ids []string
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ticket, _ := svc.CreateTicket(ctx, validDraft())
		_, _ = svc.MarkInReview(ctx, ticket.ID, "reviewer-1")
		reviewedAt := base.Add(time.Duration(len(ids)) * time.Minute)
		svc.now = func() time.Time { return reviewedAt }
		_, err := svc.ApproveTicket(ctx, ticket.ID, ReviewInput{ReviewerID: "reviewer-1", Checklist: fullChecklist(), Notes: "ok"})
		if err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
		ids = append(ids, ticket.ID)
	}
	svc.now = time.Now

	queue, err := svc.GetApprovedTickets(ctx)
	if err != nil {
		t.Fatalf("approved queue: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("len = %d, want 3", len(queue))
	}
	for i, ticket := range queue {
		if ticket.ID != ids[i] {
			t.Fatalf("queue[%d] = %s, want %s (oldest approved first)", i, ticket.ID, ids[i])
		}
	}
}

func TestGetTicketStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _ = svc.CreateTicket(ctx, validDraft())
	inReview, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, inReview.ID, "reviewer-1")

	rejected, _ := svc.CreateTicket(ctx, validDraft())
	_, _ = svc.MarkInReview(ctx, rejected.ID, "reviewer-1")
	_, _ = svc.RejectTicket(ctx, rejected.ID, ReviewInput{ReviewerID: "reviewer-1", Notes: "no"})

	snap, err := svc.GetTicketStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if snap.Pending != 1 || snap.InReview != 1 || snap.RejectedToday != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStoreErrorMapping(t *testing.T) {
	if code := apperrors.CodeOf(storeError(context.DeadlineExceeded)); code != apperrors.CodeUnknown {
		t.Fatalf("deadline mapped to %s, want UNKNOWN_ERROR", code)
	}
	if code := apperrors.CodeOf(storeError(errors.New("connection refused"))); code != apperrors.CodeDatabase {
		t.Fatalf("generic store error mapped to %s, want DATABASE_ERROR", code)
	}
	validation := apperrors.NewValidationError("x", nil)
	if code := apperrors.CodeOf(storeError(validation)); code != apperrors.CodeValidation {
		t.Fatalf("domain error not passed through: %s", code)
	}
}
