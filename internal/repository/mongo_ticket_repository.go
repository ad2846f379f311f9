package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketsCollection = "tickets"

type MongoTicketRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewMongoTicketRepository(db *mongo.Database, timeout time.Duration) *MongoTicketRepository {
	return &MongoTicketRepository{coll: db.Collection(ticketsCollection), timeout: timeout}
}

type ticketDocument struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Priority    string    `bson:"priority"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toTicketDocument(t *domain.Ticket) ticketDocument {
	return ticketDocument{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d ticketDocument) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Priority:    domain.TicketPriority(d.Priority),
		Status:      domain.TicketStatus(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func ownedFilter(id, ownerID string) bson.M {
	return bson.M{"_id": id, "owner_id": ownerID}
}

func (r *MongoTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := mongoNow()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, toTicketDocument(ticket)); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *MongoTicketRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var doc ticketDocument
	if err := r.coll.FindOne(ctx, ownedFilter(id, ownerID)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	ticket := doc.toDomain()
	return &ticket, nil
}

func (r *MongoTicketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	cur, err := r.coll.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer cur.Close(ctx)

	var docs []ticketDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}

	result := make([]domain.Ticket, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toDomain())
	}
	return result, nil
}

func (r *MongoTicketRepository) UpdateStatus(ctx context.Context, id, ownerID string, from, to domain.TicketStatus) (*domain.Ticket, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := ownedFilter(id, ownerID)
	filter["status"] = string(from)
	update := bson.M{"$set": bson.M{"status": string(to), "updated_at": mongoNow()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc ticketDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		ticket := doc.toDomain()
		return &ticket, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}

	n, err := r.coll.CountDocuments(ctx, ownedFilter(id, ownerID))
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	if n > 0 {
		return nil, ErrStatusConflict
	}
	return nil, ErrNotFound
}

func (r *MongoTicketRepository) Delete(ctx context.Context, id, ownerID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, ownedFilter(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the owner listing index.
func (r *MongoTicketRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
