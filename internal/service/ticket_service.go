package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// A lost compare-and-set means the status moved forward; the chain has only
// two edges, so three attempts always settle.
const maxStatusAttempts = 3

// TicketService enforces creation defaults, the status workflow and owner
// scoping on top of a TicketRepository.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload. Priority may be empty.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create stores a new ticket owned by ownerID. Status always starts at New.
func (s *TicketService) Create(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)

	fields := map[string]any{}
	if title == "" {
		fields["title"] = "required"
	}
	if description == "" {
		fields["description"] = "required"
	}
	priority := domain.TicketPriorityMedium
	if p := strings.TrimSpace(input.Priority); p != "" {
		priority = domain.TicketPriority(p)
		if !priority.Valid() {
			fields["priority"] = "must be one of Low, Medium, High"
		}
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", fields)
	}

	ticket := &domain.Ticket{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.storageError("create", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		OwnerID:  ownerID,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Status:   ticket.Status,
		},
	})
	return ticket, nil
}

// List returns the owner's tickets, newest first.
func (s *TicketService) List(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.storageError("list", err)
	}
	return tickets, nil
}

// UpdateStatus moves a ticket along New -> In Progress -> Completed. Setting the
// current status again succeeds and only refreshes updatedAt.
func (s *TicketService) UpdateStatus(ctx context.Context, ownerID, ticketID, status string) (*domain.Ticket, error) {
	next := domain.TicketStatus(status)
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status": "must be one of New, In Progress, Completed",
		})
	}
	if !validTicketID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		current, err := s.tickets.GetByID(ctx, ticketID, ownerID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ticketID)
		}
		if err != nil {
			return nil, s.storageError("get", err)
		}

		previous := current.Status
		if previous != next && !previous.CanTransitionTo(next) {
			return nil, apperrors.NewIllegalTransition(string(previous), string(next))
		}

		updated, err := s.tickets.UpdateStatus(ctx, ticketID, ownerID, previous, next)
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			s.logger.Debug("ticket status changed concurrently, retrying",
				zap.String("ticket_id", ticketID), zap.Int("attempt", attempt+1))
			continue
		case errors.Is(err, repository.ErrNotFound):
			return nil, ticketNotFound(ticketID)
		case err != nil:
			return nil, s.storageError("update status", err)
		}

		if previous != next {
			s.publish(ctx, events.Event{
				Type:     events.EventTicketStatusChanged,
				OwnerID:  ownerID,
				TicketID: ticketID,
				Payload:  events.TicketStatusChangedPayload{OldStatus: previous, NewStatus: next},
			})
		}
		return updated, nil
	}

	return nil, s.storageError("update status", repository.ErrStatusConflict)
}

// Delete removes the ticket. A repeated delete reports NotFound.
func (s *TicketService) Delete(ctx context.Context, ownerID, ticketID string) error {
	if !validTicketID(ticketID) {
		return ticketNotFound(ticketID)
	}
	err := s.tickets.Delete(ctx, ticketID, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return ticketNotFound(ticketID)
	}
	if err != nil {
		return s.storageError("delete", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		OwnerID:  ownerID,
		TicketID: ticketID,
	})
	return nil
}

// Search filters the owner's tickets by free text and status ("All" or empty
// disables the status filter). Order matches List.
func (s *TicketService) Search(ctx context.Context, ownerID, term, statusFilter string) ([]domain.Ticket, error) {
	query, err := newTicketQuery(term, statusFilter)
	if err != nil {
		return nil, err
	}
	tickets, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return domain.FilterTickets(tickets, query), nil
}

// Aggregate computes counts over an already filtered set.
func (s *TicketService) Aggregate(tickets []domain.Ticket) domain.TicketStats {
	return domain.Aggregate(tickets)
}

// Stats aggregates exactly the tickets Search would return.
func (s *TicketService) Stats(ctx context.Context, ownerID, term, statusFilter string) (domain.TicketStats, error) {
	tickets, err := s.Search(ctx, ownerID, term, statusFilter)
	if err != nil {
		return domain.TicketStats{}, err
	}
	return s.Aggregate(tickets), nil
}

func newTicketQuery(term, statusFilter string) (domain.TicketQuery, error) {
	statusFilter = strings.TrimSpace(statusFilter)
	if statusFilter != "" && statusFilter != domain.StatusFilterAll && !domain.TicketStatus(statusFilter).Valid() {
		return domain.TicketQuery{}, apperrors.NewValidationError("invalid status filter", map[string]any{
			"status": "must be All, New, In Progress or Completed",
		})
	}
	return domain.TicketQuery{Term: term, Status: statusFilter}, nil
}

func validTicketID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func ticketNotFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

func (s *TicketService) storageError(op string, err error) error {
	s.logger.Error("ticket store failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewStorageUnavailable(err)
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}
