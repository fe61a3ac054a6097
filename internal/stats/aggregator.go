// Package stats derives point-in-time ticket counts for operational dashboards.
package stats

import (
	"time"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// Row is the minimal per-ticket projection the aggregator consumes.
type Row struct {
	Status     domain.TicketStatus
	CreatedAt  time.Time
	ReviewedAt *time.Time
	AppliedAt  *time.Time
}

// Snapshot holds current queue depths and same-day outcome counts.
type Snapshot struct {
	Pending       int `json:"pending"`
	InReview      int `json:"in_review"`
	ApprovedToday int `json:"approved_today"`
	RejectedToday int `json:"rejected_today"`
	AppliedToday  int `json:"applied_today"`
	FailedToday   int `json:"failed_today"`
}

// Aggregate computes the snapshot in a single pass. The "today" cutoff is local
// midnight in now's location. Approved/rejected tickets count by reviewed_at and
// applied/failed tickets by applied_at, so a ticket created yesterday but approved
// today counts toward today.
func Aggregate(rows []Row, now time.Time) Snapshot {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var snap Snapshot
	for _, row := range rows {
		switch row.Status {
		case domain.TicketStatusPending:
			snap.Pending++
		case domain.TicketStatusInReview:
			snap.InReview++
		case domain.TicketStatusApproved:
			if sameDay(row.ReviewedAt, cutoff) {
				snap.ApprovedToday++
			}
		case domain.TicketStatusRejected:
			if sameDay(row.ReviewedAt, cutoff) {
				snap.RejectedToday++
			}
		case domain.TicketStatusApplied, domain.TicketStatusRolledBack:
			if sameDay(row.AppliedAt, cutoff) {
				snap.AppliedToday++
			}
		case domain.TicketStatusFailed:
			if sameDay(row.AppliedAt, cutoff) {
				snap.FailedToday++
			}
		}
	}
	return snap
}

func sameDay(ts *time.Time, cutoff time.Time) bool {
	if ts == nil {
		return false
	}
	local := ts.In(cutoff.Location())
	return !local.Before(cutoff) && local.Before(cutoff.Add(24*time.Hour))
}
