package domain

import "time"

// ReviewerRole scopes what an authenticated principal may do.
type ReviewerRole string

const (
	RoleReviewer ReviewerRole = "REVIEWER"
	RoleWorker   ReviewerRole = "WORKER"
	RoleAdmin    ReviewerRole = "ADMIN"
)

// Reviewer is an operator entitled to sign off on remediation tickets.
type Reviewer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         ReviewerRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
