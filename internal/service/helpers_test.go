package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var errStoreDown = errors.New("connection refused")

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
	return de
}

// eventRecorder subscribes to every event type and keeps what it saw.
type eventRecorder struct {
	mu   sync.Mutex
	seen []events.Event
}

func newEventRecorder() (*eventRecorder, events.Dispatcher) {
	rec := &eventRecorder{}
	d := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventUserRegistered,
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketDeleted,
	} {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.seen = append(rec.seen, e)
			return nil
		})
	}
	return rec, d
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.seen))
	for _, e := range r.seen {
		out = append(out, e.Type)
	}
	return out
}

// failingTickets fails every call.
type failingTickets struct{}

func (failingTickets) Create(context.Context, *domain.Ticket) error { return errStoreDown }
func (failingTickets) GetByID(context.Context, string, string) (*domain.Ticket, error) {
	return nil, errStoreDown
}
func (failingTickets) ListByOwner(context.Context, string) ([]domain.Ticket, error) {
	return nil, errStoreDown
}
func (failingTickets) UpdateStatus(context.Context, string, string, domain.TicketStatus, domain.TicketStatus) (*domain.Ticket, error) {
	return nil, errStoreDown
}
func (failingTickets) Delete(context.Context, string, string) error { return errStoreDown }

// failingUsers fails every call.
type failingUsers struct{}

func (failingUsers) Create(context.Context, *domain.User) error { return errStoreDown }
func (failingUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, errStoreDown
}
