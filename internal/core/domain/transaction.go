package domain

import (
	"errors"
	"time"
)

// TransactionType distinguishes how a transaction affects project escrow.
type TransactionType string

const (
	// TypeDeposit increases the project's escrow balance.
	TypeDeposit TransactionType = "deposit"
	// TypeFee deducts the platform's cut from escrow.
	TypeFee TransactionType = "fee"
	// TypePayout releases escrowed funds to the receiver through the
	// external payment gateway.
	TypePayout TransactionType = "payout"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TxPending TransactionStatus = "pending"
	// TxProcessing marks a row claimed by a processor. The claim is a
	// compare-and-set from pending, so one row is only ever processed once.
	TxProcessing TransactionStatus = "processing"
	TxCompleted  TransactionStatus = "completed"
	TxFailed     TransactionStatus = "failed"
	TxRolledBack TransactionStatus = "rolled_back"
)

// validTxTransitions defines the allowed state machine transitions.
// Completed, Failed and RolledBack are terminal.
var validTxTransitions = map[TransactionStatus][]TransactionStatus{
	TxPending:    {TxProcessing, TxFailed, TxRolledBack},
	TxProcessing: {TxCompleted, TxFailed, TxRolledBack},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range validTxTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidTransactionType reports whether t is one of the known types.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TypeDeposit, TypeFee, TypePayout:
		return true
	}
	return false
}

var ErrTransactionNotFound = errors.New("transaction not found")
var ErrInvalidAmount = errors.New("transaction amount must be positive")
var ErrInsufficientFunds = errors.New("insufficient escrow balance")
var ErrPaymentProcessing = errors.New("payment processing failed")
var ErrAlreadyProcessed = errors.New("transaction already processed")

// Transaction is a single escrow ledger entry. Rows are immutable once they
// reach a terminal status; corrections happen through compensating entries.
type Transaction struct {
	ID          string            `json:"id"`
	ProjectID   int64             `json:"project_id"`
	SenderID    int64             `json:"sender_id"`
	ReceiverID  int64             `json:"receiver_id"`
	Amount      float64           `json:"amount"`
	Fee         float64           `json:"fee"`
	Status      TransactionStatus `json:"status"`
	Type        TransactionType   `json:"type"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
