package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketColumns = `id, owner_id, title, description, priority, status, created_at, updated_at`

type ticketRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(db *sql.DB, timeout time.Duration) TicketRepository {
	return &ticketRepository{db: db, timeout: timeout}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, owner_id, title, description, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	return r.db.QueryRowContext(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.Title,
		ticket.Description,
		string(ticket.Priority),
		string(ticket.Status),
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND owner_id=$2`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return scanTicket(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_id=$1 ORDER BY created_at DESC, id DESC`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id, ownerID string, from, to domain.TicketStatus) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2 AND owner_id=$3 AND status=$4
        RETURNING ` + ticketColumns
	const exists = `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1 AND owner_id=$2)`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, string(to), id, ownerID, string(from)))
	if !errors.Is(err, ErrNotFound) {
		return ticket, err
	}

	var found bool
	if err := r.db.QueryRowContext(ctx, exists, id, ownerID).Scan(&found); err != nil {
		return nil, err
	}
	if found {
		return nil, ErrStatusConflict
	}
	return nil, ErrNotFound
}

func (r *ticketRepository) Delete(ctx context.Context, id, ownerID string) error {
	const query = `DELETE FROM tickets WHERE id=$1 AND owner_id=$2`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}
