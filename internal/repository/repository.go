package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrNotFound means no record matched the id (and owner, for tickets).
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrStatusConflict means the ticket exists but its status was not the expected one.
	ErrStatusConflict = errors.New("ticket status changed concurrently")
)

const defaultTimeout = 5 * time.Second

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TicketRepository encapsulates ticket persistence. Every lookup is scoped to
// the owning user.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id, ownerID string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	// UpdateStatus sets the status only if it currently equals from, refreshing
	// updated_at, and returns the stored ticket.
	UpdateStatus(ctx context.Context, id, ownerID string, from, to domain.TicketStatus) (*domain.Ticket, error)
	Delete(ctx context.Context, id, ownerID string) error
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
