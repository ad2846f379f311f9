package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type memoryTicket struct {
	ticket domain.Ticket
	seq    uint64
}

// MemoryStore keeps users and tickets in process memory. It satisfies both
// UserRepository and TicketRepository and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User // keyed by email
	tickets map[string]memoryTicket
	seq     uint64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		tickets: make(map[string]memoryTicket),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Tickets exposes the store as a TicketRepository.
func (s *MemoryStore) Tickets() TicketRepository { return memoryTickets{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.now()
	s.users[user.Email] = *user
	return nil
}

func (m memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

type memoryTickets struct{ s *MemoryStore }

func (m memoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := s.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	s.seq++
	s.tickets[ticket.ID] = memoryTicket{ticket: *ticket, seq: s.seq}
	return nil
}

func (m memoryTickets) GetByID(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tickets[id]
	if !ok || entry.ticket.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	ticket := entry.ticket
	return &ticket, nil
}

func (m memoryTickets) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.RLock()
	entries := make([]memoryTicket, 0, len(s.tickets))
	for _, entry := range s.tickets {
		if entry.ticket.OwnerID == ownerID {
			entries = append(entries, entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.ticket.CreatedAt.Equal(b.ticket.CreatedAt) {
			return a.ticket.CreatedAt.After(b.ticket.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.Ticket, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.ticket)
	}
	return result, nil
}

func (m memoryTickets) UpdateStatus(ctx context.Context, id, ownerID string, from, to domain.TicketStatus) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tickets[id]
	if !ok || entry.ticket.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	if entry.ticket.Status != from {
		return nil, ErrStatusConflict
	}
	entry.ticket.Status = to
	entry.ticket.UpdatedAt = s.now()
	s.tickets[id] = entry
	ticket := entry.ticket
	return &ticket, nil
}

func (m memoryTickets) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tickets[id]
	if !ok || entry.ticket.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}
