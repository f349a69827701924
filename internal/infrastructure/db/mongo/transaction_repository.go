package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

const transactionsCollection = "transactions"

// TransactionRepository stores the escrow ledger. Status changes go through
// a compare-and-set so a row can only ever leave pending once.
type TransactionRepository struct {
	coll *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{coll: db.Collection(transactionsCollection)}
}

type transactionDoc struct {
	ID          string            `bson:"_id"`
	ProjectID   int64             `bson:"project_id"`
	SenderID    int64             `bson:"sender_id"`
	ReceiverID  int64             `bson:"receiver_id"`
	Amount      float64           `bson:"amount"`
	Fee         float64           `bson:"fee"`
	Status      string            `bson:"status"`
	Type        string            `bson:"type"`
	Description string            `bson:"description,omitempty"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	CreatedAt   int64             `bson:"created_at"`
}

func (d transactionDoc) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		SenderID:    d.SenderID,
		ReceiverID:  d.ReceiverID,
		Amount:      d.Amount,
		Fee:         d.Fee,
		Status:      domain.TransactionStatus(d.Status),
		Type:        domain.TransactionType(d.Type),
		Description: d.Description,
		Metadata:    d.Metadata,
		CreatedAt:   unixToTime(d.CreatedAt),
	}
}

func (r *TransactionRepository) Insert(ctx context.Context, t *domain.Transaction) error {
	doc := transactionDoc{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		SenderID:    t.SenderID,
		ReceiverID:  t.ReceiverID,
		Amount:      t.Amount,
		Fee:         t.Fee,
		Status:      string(t.Status),
		Type:        string(t.Type),
		Description: t.Description,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var doc transactionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TransactionRepository) ListByProject(ctx context.Context, projectID int64) ([]*domain.Transaction, error) {
	return r.find(ctx, bson.M{"project_id": projectID})
}

func (r *TransactionRepository) ListBySender(ctx context.Context, senderID int64) ([]*domain.Transaction, error) {
	return r.find(ctx, bson.M{"sender_id": senderID})
}

func (r *TransactionRepository) ListByReceiver(ctx context.Context, receiverID int64) ([]*domain.Transaction, error) {
	return r.find(ctx, bson.M{"receiver_id": receiverID})
}

func (r *TransactionRepository) List(ctx context.Context, filter ports.TransactionFilter) ([]*domain.Transaction, int64, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.SenderID != 0 {
		query["sender_id"] = filter.SenderID
	}
	if filter.ReceiverID != 0 {
		query["receiver_id"] = filter.ReceiverID
	}
	created := bson.M{}
	if !filter.DateFrom.IsZero() {
		created["$gte"] = filter.DateFrom.Unix()
	}
	if !filter.DateTo.IsZero() {
		created["$lte"] = filter.DateTo.Unix()
	}
	if len(created) > 0 {
		query["created_at"] = created
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	items, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateStatus moves the row from→to only if it is still in the from state.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, from, to domain.TransactionStatus) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}},
	)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		if n == 0 {
			return domain.ErrTransactionNotFound
		}
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (r *TransactionRepository) SetFee(ctx context.Context, id string, fee float64) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"fee": fee}})
	if err != nil {
		return fmt.Errorf("set transaction fee: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) find(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]*domain.Transaction, error) {
	cur, err := r.coll.Find(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer cur.Close(ctx)

	var items []*domain.Transaction
	for cur.Next(ctx) {
		var doc transactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		items = append(items, doc.toDomain())
	}
	return items, cur.Err()
}
