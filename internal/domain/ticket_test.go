package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusNew, TicketStatusInProgress, true},
		{TicketStatusInProgress, TicketStatusCompleted, true},
		{TicketStatusNew, TicketStatusCompleted, false},
		{TicketStatusInProgress, TicketStatusNew, false},
		{TicketStatusCompleted, TicketStatusInProgress, false},
		{TicketStatusCompleted, TicketStatusNew, false},
		{TicketStatusNew, TicketStatusNew, false},
		{TicketStatusNew, TicketStatus("Closed"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEnumValidity(t *testing.T) {
	for _, s := range Statuses() {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, TicketStatus("IN_PROGRESS").Valid())
	assert.False(t, TicketStatus("").Valid())

	for _, p := range []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh} {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, TicketPriority("Urgent").Valid())
	assert.False(t, TicketPriority("high").Valid())
}
