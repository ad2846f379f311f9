package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// AuditService records lifecycle events in the log and in metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
	a.dispatcher.Subscribe(events.EventTicketDeleted, a.handleTicketDeleted)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered", zap.String("owner_id", event.OwnerID), zap.String("event_id", event.ID))
	return nil
}

func (a *AuditService) handleTicketCreated(_ context.Context, event events.Event) error {
	status := ""
	if p, ok := event.Payload.(events.TicketCreatedPayload); ok {
		status = string(p.Status)
	}
	a.logger.Info("TicketCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("owner_id", event.OwnerID),
		zap.Any("payload", event.Payload))
	a.metrics.RecordTicketEvent(string(event.Type), status)
	return nil
}

func (a *AuditService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	status := ""
	if p, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
		status = string(p.NewStatus)
	}
	a.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("owner_id", event.OwnerID),
		zap.Any("payload", event.Payload))
	a.metrics.RecordTicketEvent(string(event.Type), status)
	return nil
}

func (a *AuditService) handleTicketDeleted(_ context.Context, event events.Event) error {
	a.logger.Info("TicketDeleted",
		zap.String("ticket_id", event.TicketID),
		zap.String("owner_id", event.OwnerID))
	a.metrics.RecordTicketEvent(string(event.Type), "")
	return nil
}
