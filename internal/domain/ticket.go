package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "New"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusCompleted  TicketStatus = "Completed"
)

// StatusFilterAll disables status filtering in searches.
const StatusFilterAll = "All"

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusCompleted:
		return true
	}
	return false
}

// Valid reports whether p is one of the known priorities.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// allowedTransitions is the forward-only workflow. Completed is terminal.
var allowedTransitions = map[TicketStatus]TicketStatus{
	TicketStatusNew:        TicketStatusInProgress,
	TicketStatusInProgress: TicketStatusCompleted,
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
// Staying in the same status is not an edge; callers treat it as a no-op.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	candidate, ok := allowedTransitions[s]
	return ok && candidate == next
}

// Statuses lists every status in workflow order.
func Statuses() []TicketStatus {
	return []TicketStatus{TicketStatusNew, TicketStatusInProgress, TicketStatusCompleted}
}
