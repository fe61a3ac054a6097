package domain

import "time"

// TicketStatus enumerates lifecycle states for review tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInReview   TicketStatus = "IN_REVIEW"
	TicketStatusApproved   TicketStatus = "APPROVED"
	TicketStatusRejected   TicketStatus = "REJECTED"
	TicketStatusApplied    TicketStatus = "APPLIED"
	TicketStatusFailed     TicketStatus = "FAILED"
	TicketStatusRolledBack TicketStatus = "ROLLED_BACK"
)

// IssueCategory classifies the detected operational issue.
type IssueCategory string

const (
	CategorySecurityVulnerability  IssueCategory = "SECURITY_VULNERABILITY"
	CategoryPerformanceDegradation IssueCategory = "PERFORMANCE_DEGRADATION"
	CategoryDataInconsistency      IssueCategory = "DATA_INCONSISTENCY"
	CategoryResourceExhaustion     IssueCategory = "RESOURCE_EXHAUSTION"
	CategoryAvailability           IssueCategory = "AVAILABILITY"
	CategoryConfigurationDrift     IssueCategory = "CONFIGURATION_DRIFT"
)

// Severity enumerates issue urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// HealingStrategy is the remediation technique proposed upstream.
type HealingStrategy string

const (
	StrategyRetryWithBackoff HealingStrategy = "RETRY_WITH_BACKOFF"
	StrategyCircuitBreaker   HealingStrategy = "CIRCUIT_BREAKER"
	StrategyStateRollback    HealingStrategy = "STATE_ROLLBACK"
	StrategyAutoPatch        HealingStrategy = "AUTO_PATCH"
	StrategySecurityLockdown HealingStrategy = "SECURITY_LOCKDOWN"
	StrategyResourceScaling  HealingStrategy = "RESOURCE_SCALING"
)

// RiskTier categorizes the inherent risk of a healing strategy.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

var strategyRisk = map[HealingStrategy]RiskTier{
	StrategyRetryWithBackoff: RiskLow,
	StrategyCircuitBreaker:   RiskLow,
	StrategyResourceScaling:  RiskMedium,
	StrategyStateRollback:    RiskMedium,
	StrategyAutoPatch:        RiskHigh,
	StrategySecurityLockdown: RiskHigh,
}

// Risk returns the inherent risk tier of the strategy.
func (s HealingStrategy) Risk() RiskTier {
	if tier, ok := strategyRisk[s]; ok {
		return tier
	}
	return RiskHigh
}

// HealingStep is one ordered action of a remediation or rollback plan.
type HealingStep struct {
	Order          int            `json:"order"`
	Action         string         `json:"action"`
	Target         string         `json:"target"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Validation     *string        `json:"validation,omitempty"`
	TimeoutSeconds *int           `json:"timeout_seconds,omitempty"`
}

// SandboxResult captures the outcome of pre-validation in an isolated environment.
type SandboxResult struct {
	Passed          bool    `json:"passed"`
	TestsRun        int     `json:"tests_run"`
	TestsPassed     int     `json:"tests_passed"`
	TestsFailed     int     `json:"tests_failed"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
	Failure         *string `json:"failure,omitempty"`
}

// ReviewChecklist is the three-part reviewer attestation required before approval.
type ReviewChecklist struct {
	CodeReviewed       bool `json:"code_reviewed"`
	ImpactUnderstood   bool `json:"impact_understood"`
	RollbackUnderstood bool `json:"rollback_understood"`
}

// Complete reports whether every attestation has been made.
func (c ReviewChecklist) Complete() bool {
	return c.CodeReviewed && c.ImpactUnderstood && c.RollbackUnderstood
}

// ApplicationResult describes the reported outcome of applying a fix.
type ApplicationResult struct {
	Success         bool     `json:"success"`
	StepsCompleted  int      `json:"steps_completed"`
	StepsTotal      int      `json:"steps_total"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Changes         []string `json:"changes,omitempty"`
	Error           *string  `json:"error,omitempty"`
}

// ReviewTicket is the aggregate for a machine-proposed fix awaiting human sign-off.
type ReviewTicket struct {
	ID              string
	SecurityAlertID *string

	IssueID           string
	Category          IssueCategory
	Severity          Severity
	Description       string
	AffectedComponent string
	AffectedResources []string
	StackTrace        *string
	DetectionContext  map[string]any

	ActionID           string
	HealingStrategy    HealingStrategy
	HealingDescription string
	HealingSteps       []HealingStep
	RollbackSteps      []HealingStep
	ExpectedOutcome    string

	SandboxTested bool
	SandboxResult *SandboxResult
	SandboxPassed bool

	Status         TicketStatus
	ReviewedBy     *string
	ReviewerName   *string
	ReviewedAt     *time.Time
	Checklist      ReviewChecklist
	ReviewNotes    string
	ReviewMetadata map[string]any

	AppliedAt         *time.Time
	AppliedBy         *string
	ApplicationResult *ApplicationResult
	ApplicationError  *string

	RolledBackAt   *time.Time
	RolledBackBy   *string
	RollbackReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
