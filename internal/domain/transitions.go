package domain

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:    {TicketStatusInReview},
	TicketStatusInReview:   {TicketStatusApproved, TicketStatusRejected},
	TicketStatusApproved:   {TicketStatusApplied, TicketStatusFailed},
	TicketStatusApplied:    {TicketStatusRolledBack},
	TicketStatusRejected:   {},
	TicketStatusFailed:     {},
	TicketStatusRolledBack: {},
}

// CanTransition reports whether the status graph permits current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is defined from the status.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusRejected, TicketStatusApplied, TicketStatusFailed, TicketStatusRolledBack:
		return true
	}
	return false
}

// Valid reports whether the value is a member of the closed status set.
func (s TicketStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}
