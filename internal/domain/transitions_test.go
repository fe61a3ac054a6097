package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusPending, TicketStatusInReview, true},
		{TicketStatusInReview, TicketStatusApproved, true},
		{TicketStatusInReview, TicketStatusRejected, true},
		{TicketStatusApproved, TicketStatusApplied, true},
		{TicketStatusApproved, TicketStatusFailed, true},
		{TicketStatusApplied, TicketStatusRolledBack, true},

		{TicketStatusPending, TicketStatusApproved, false},
		{TicketStatusPending, TicketStatusApplied, false},
		{TicketStatusApproved, TicketStatusRolledBack, false},
		{TicketStatusRejected, TicketStatusInReview, false},
		{TicketStatusApplied, TicketStatusApplied, false},
		{TicketStatusRolledBack, TicketStatusApplied, false},
		{TicketStatusFailed, TicketStatusRolledBack, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []TicketStatus{TicketStatusRejected, TicketStatusApplied, TicketStatusFailed, TicketStatusRolledBack}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []TicketStatus{TicketStatusPending, TicketStatusInReview, TicketStatusApproved}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for status := range map[TicketStatus]struct{}{
		TicketStatusPending: {}, TicketStatusInReview: {}, TicketStatusApproved: {},
		TicketStatusRejected: {}, TicketStatusApplied: {}, TicketStatusFailed: {},
		TicketStatusRolledBack: {},
	} {
		if !status.Valid() {
			t.Errorf("%s should be valid", status)
		}
	}
	if TicketStatus("OPEN").Valid() {
		t.Error("unknown status accepted")
	}
}

func TestChecklistComplete(t *testing.T) {
	if (ReviewChecklist{CodeReviewed: true, ImpactUnderstood: true}).Complete() {
		t.Error("incomplete checklist reported complete")
	}
	if !(ReviewChecklist{CodeReviewed: true, ImpactUnderstood: true, RollbackUnderstood: true}).Complete() {
		t.Error("full checklist reported incomplete")
	}
}

func TestStrategyRisk(t *testing.T) {
	if StrategyRetryWithBackoff.Risk() != RiskLow {
		t.Errorf("retry risk = %s", StrategyRetryWithBackoff.Risk())
	}
	if StrategyAutoPatch.Risk() != RiskHigh {
		t.Errorf("auto patch risk = %s", StrategyAutoPatch.Risk())
	}
	if HealingStrategy("UNMAPPED").Risk() != RiskHigh {
		t.Error("unknown strategies must default to high risk")
	}
}
