package domain

import (
	"math"
	"strings"
)

// TicketQuery is a free-text term plus a status filter ("All" or a TicketStatus).
type TicketQuery struct {
	Term   string
	Status string
}

// Matches reports whether the ticket satisfies the query. The term is matched
// case-insensitively against title and description joined together.
func (q TicketQuery) Matches(t Ticket) bool {
	if q.Status != "" && q.Status != StatusFilterAll && TicketStatus(q.Status) != t.Status {
		return false
	}
	if q.Term == "" {
		return true
	}
	haystack := strings.ToLower(t.Title + t.Description)
	return strings.Contains(haystack, strings.ToLower(q.Term))
}

// FilterTickets returns the tickets matching q, preserving order.
func FilterTickets(tickets []Ticket, q TicketQuery) []Ticket {
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// TicketStats summarises a set of tickets.
type TicketStats struct {
	Total             int
	HighCount         int
	MediumCount       int
	LowCount          int
	CompletedCount    int
	CompletionPercent int
}

// Aggregate counts priorities and completion over exactly the tickets given.
// Callers filter first; the stats describe the visible subset only.
func Aggregate(tickets []Ticket) TicketStats {
	stats := TicketStats{Total: len(tickets)}
	for _, t := range tickets {
		switch t.Priority {
		case TicketPriorityHigh:
			stats.HighCount++
		case TicketPriorityMedium:
			stats.MediumCount++
		case TicketPriorityLow:
			stats.LowCount++
		}
		if t.Status == TicketStatusCompleted {
			stats.CompletedCount++
		}
	}
	if stats.Total > 0 {
		stats.CompletionPercent = int(math.Round(100 * float64(stats.CompletedCount) / float64(stats.Total)))
	}
	return stats
}
