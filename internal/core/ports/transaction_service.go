package ports

import (
	"context"

	"github.com/element-app/backend/internal/core/domain"
)

// CreateTransactionInput carries the data needed to record a ledger entry.
type CreateTransactionInput struct {
	ProjectID   int64
	SenderID    int64
	ReceiverID  int64
	Amount      float64
	Description string
	Type        domain.TransactionType
}

// ListTransactionsResult is returned by the filtered/paginated listing.
type ListTransactionsResult struct {
	Items      []*domain.Transaction
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// TransactionService is the escrow ledger: it validates, records, and
// processes deposit/fee/payout transactions against a project.
type TransactionService interface {
	// Create validates amount > 0 and persists a new pending transaction.
	Create(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error)
	// Process applies the transaction's escrow side effect and moves the row
	// to a terminal status. Either both apply or the row is compensated back
	// to a consistent state; no automatic retry is performed.
	Process(ctx context.Context, id string) (*domain.Transaction, error)

	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByProject(ctx context.Context, projectID int64) ([]*domain.Transaction, error)
	ListBySender(ctx context.Context, senderID int64) ([]*domain.Transaction, error)
	ListByReceiver(ctx context.Context, receiverID int64) ([]*domain.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) (*ListTransactionsResult, error)
}

// PaymentGateway releases escrowed funds to a receiver through the external
// payment provider. Calls are bounded by the timeout configured on the
// implementation; on timeout the ledger marks the transaction failed.
type PaymentGateway interface {
	Release(ctx context.Context, transactionID string, receiverID int64, amount float64) error
}
