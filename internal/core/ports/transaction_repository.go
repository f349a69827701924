package ports

import (
	"context"
	"time"

	"github.com/element-app/backend/internal/core/domain"
)

// TransactionFilter carries the optional query parameters for listing
// ledger entries. Zero values mean "no filter".
type TransactionFilter struct {
	Type       domain.TransactionType
	Status     domain.TransactionStatus
	SenderID   int64
	ReceiverID int64
	DateFrom   time.Time
	DateTo     time.Time
	Page       int // 1-based
	Limit      int // capped at 100 by the service
}

// TransactionRepository defines persistence operations for the escrow ledger.
type TransactionRepository interface {
	Insert(ctx context.Context, t *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByProject(ctx context.Context, projectID int64) ([]*domain.Transaction, error)
	ListBySender(ctx context.Context, senderID int64) ([]*domain.Transaction, error)
	ListByReceiver(ctx context.Context, receiverID int64) ([]*domain.Transaction, error)
	// List returns a page of transactions matching filter and the total count.
	List(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, int64, error)
	// UpdateStatus transitions the row from→to as a compare-and-set. Returns
	// domain.ErrAlreadyProcessed when the row is no longer in the from state.
	UpdateStatus(ctx context.Context, id string, from, to domain.TransactionStatus) error
	// SetFee records the computed platform fee on the row.
	SetFee(ctx context.Context, id string, fee float64) error
}
