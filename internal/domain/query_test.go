package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketQuery_Matches(t *testing.T) {
	login := Ticket{Title: "Login bug", Description: "cannot sign in", Status: TicketStatusNew}
	printer := Ticket{Title: "Printer jam", Description: "Floor 3", Status: TicketStatusCompleted}

	tests := []struct {
		name   string
		query  TicketQuery
		ticket Ticket
		want   bool
	}{
		{"case insensitive title", TicketQuery{Term: "BUG", Status: StatusFilterAll}, login, true},
		{"non matching title", TicketQuery{Term: "BUG", Status: StatusFilterAll}, printer, false},
		{"matches description", TicketQuery{Term: "floor", Status: StatusFilterAll}, printer, true},
		{"spans title and description", TicketQuery{Term: "jamFloor"}, printer, true},
		{"empty term matches all", TicketQuery{Status: StatusFilterAll}, printer, true},
		{"empty status means all", TicketQuery{}, login, true},
		{"status filter excludes", TicketQuery{Status: string(TicketStatusCompleted)}, login, false},
		{"status filter includes", TicketQuery{Term: "jam", Status: string(TicketStatusCompleted)}, printer, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(tt.ticket))
		})
	}
}

func TestFilterTickets_PreservesOrder(t *testing.T) {
	tickets := []Ticket{
		{ID: "3", Title: "bug three"},
		{ID: "2", Title: "other"},
		{ID: "1", Title: "bug one"},
	}

	got := FilterTickets(tickets, TicketQuery{Term: "bug"})

	assert.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)
	assert.Equal(t, TicketStats{}, stats)
	assert.Equal(t, 0, stats.CompletionPercent)
}

func TestAggregate_CountsAndRounding(t *testing.T) {
	tickets := []Ticket{
		{Priority: TicketPriorityHigh, Status: TicketStatusCompleted},
		{Priority: TicketPriorityHigh, Status: TicketStatusNew},
		{Priority: TicketPriorityLow, Status: TicketStatusInProgress},
	}

	stats := Aggregate(tickets)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.HighCount)
	assert.Equal(t, 0, stats.MediumCount)
	assert.Equal(t, 1, stats.LowCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 33, stats.CompletionPercent)
}

func TestAggregate_RoundsHalfUp(t *testing.T) {
	tickets := []Ticket{
		{Priority: TicketPriorityMedium, Status: TicketStatusCompleted},
		{Priority: TicketPriorityMedium, Status: TicketStatusCompleted},
		{Priority: TicketPriorityMedium, Status: TicketStatusNew},
	}
	assert.Equal(t, 67, Aggregate(tickets).CompletionPercent)

	half := []Ticket{
		{Status: TicketStatusCompleted},
		{Status: TicketStatusNew},
		{Status: TicketStatusNew},
		{Status: TicketStatusNew},
		{Status: TicketStatusNew},
		{Status: TicketStatusNew},
		{Status: TicketStatusNew},
		{Status: TicketStatusNew},
	}
	// 1/8 = 12.5%
	assert.Equal(t, 13, Aggregate(half).CompletionPercent)
}

func TestAggregate_AfterFilter(t *testing.T) {
	tickets := []Ticket{
		{Title: "Login bug", Priority: TicketPriorityHigh, Status: TicketStatusCompleted},
		{Title: "Printer jam", Priority: TicketPriorityLow, Status: TicketStatusNew},
	}

	stats := Aggregate(FilterTickets(tickets, TicketQuery{Term: "bug", Status: StatusFilterAll}))

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.HighCount)
	assert.Equal(t, 0, stats.LowCount)
	assert.Equal(t, 100, stats.CompletionPercent)
}
