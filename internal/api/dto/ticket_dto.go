package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Any status sent by the client is ignored.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=Low Medium High"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TicketListQuery captures search filters.
type TicketListQuery struct {
	Q      string `query:"q"`
	Status string `query:"status"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	OwnerID     string                `json:"ownerId"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// StatsResponse is the wire form of ticket aggregates.
type StatsResponse struct {
	Total             int `json:"total"`
	HighCount         int `json:"highCount"`
	MediumCount       int `json:"mediumCount"`
	LowCount          int `json:"lowCount"`
	CompletedCount    int `json:"completedCount"`
	CompletionPercent int `json:"completionPercent"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func NewTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func NewTicketListResponse(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}

func NewStatsResponse(s domain.TicketStats) StatsResponse {
	return StatsResponse{
		Total:             s.Total,
		HighCount:         s.HighCount,
		MediumCount:       s.MediumCount,
		LowCount:          s.LowCount,
		CompletedCount:    s.CompletedCount,
		CompletionPercent: s.CompletionPercent,
	}
}
