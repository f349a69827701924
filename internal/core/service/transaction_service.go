package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/element-app/backend/internal/api/metrics"
	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

const maxListLimit = 100

// TransactionService is the escrow ledger. Create records a pending entry;
// Process claims the entry with a pending→processing compare-and-set, applies
// its escrow side effect, and moves it to a terminal status. The claim admits
// exactly one processor per entry and the balance mutations are atomic
// conditional updates in the project repository, so concurrent processing of
// the same entry applies its effect at most once.
type TransactionService struct {
	txns     ports.TransactionRepository
	projects ports.ProjectRepository
	gateway  ports.PaymentGateway
	feeRate  float64
	log      zerolog.Logger
}

func NewTransactionService(
	txns ports.TransactionRepository,
	projects ports.ProjectRepository,
	gateway ports.PaymentGateway,
	feeRate float64,
	log zerolog.Logger,
) *TransactionService {
	return &TransactionService{
		txns:     txns,
		projects: projects,
		gateway:  gateway,
		feeRate:  feeRate,
		log:      log,
	}
}

// Create validates and records a new pending transaction.
func (s *TransactionService) Create(ctx context.Context, input ports.CreateTransactionInput) (*domain.Transaction, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.ValidTransactionType(input.Type) {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidInput, input.Type)
	}

	if _, err := s.projects.FindByID(ctx, input.ProjectID); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:          generateTransactionID(),
		ProjectID:   input.ProjectID,
		SenderID:    input.SenderID,
		ReceiverID:  input.ReceiverID,
		Amount:      input.Amount,
		Fee:         0,
		Status:      domain.TxPending,
		Type:        input.Type,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.txns.Insert(ctx, txn); err != nil {
		s.log.Error().Err(err).Str("transaction_id", txn.ID).Msg("failed to record transaction")
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", txn.ID).
		Int64("project_id", txn.ProjectID).
		Str("type", string(txn.Type)).
		Float64("amount", txn.Amount).
		Msg("transaction recorded")

	return txn, nil
}

// Process dispatches on the transaction type and finalizes the ledger row.
// A failed side effect marks the row failed; a side effect that applied but
// could not be finalized is compensated and the row marked rolled_back. The
// row is never left pending past this call. Retrying a failed entry is an
// operator decision, not something the ledger does on its own.
func (s *TransactionService) Process(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, err := s.txns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxPending {
		return txn, domain.ErrAlreadyProcessed
	}

	// Claim the row before any side effect. The compare-and-set admits
	// exactly one processor; a concurrent caller loses the claim here and
	// never reaches the escrow mutation or the gateway.
	if err := s.txns.UpdateStatus(ctx, txn.ID, domain.TxPending, domain.TxProcessing); err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			return txn, domain.ErrAlreadyProcessed
		}
		return txn, fmt.Errorf("claim transaction: %w", err)
	}
	txn.Status = domain.TxProcessing

	start := time.Now()
	switch txn.Type {
	case domain.TypeDeposit:
		err = s.processDeposit(ctx, txn)
	case domain.TypeFee:
		err = s.processFee(ctx, txn)
	case domain.TypePayout:
		err = s.processPayout(ctx, txn)
	default:
		err = fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidInput, txn.Type)
	}

	metrics.TransactionsProcessedTotal.WithLabelValues(string(txn.Type), string(txn.Status)).Inc()
	metrics.TransactionProcessingDuration.WithLabelValues(string(txn.Type)).Observe(time.Since(start).Seconds())

	if err != nil {
		s.log.Error().Err(err).
			Str("transaction_id", txn.ID).
			Str("type", string(txn.Type)).
			Str("status", string(txn.Status)).
			Msg("transaction processing failed")
		return txn, err
	}

	s.log.Info().
		Str("transaction_id", txn.ID).
		Str("type", string(txn.Type)).
		Msg("transaction processed")
	return txn, nil
}

// processDeposit credits escrow, then finalizes. A finalize failure debits
// the credit back so escrow stays consistent with the rolled-back row.
func (s *TransactionService) processDeposit(ctx context.Context, txn *domain.Transaction) error {
	if err := s.projects.CreditEscrow(ctx, txn.ProjectID, txn.Amount); err != nil {
		s.fail(ctx, txn)
		return fmt.Errorf("credit escrow: %w", err)
	}

	if err := s.complete(ctx, txn); err != nil {
		if debitErr := s.projects.DebitEscrow(ctx, txn.ProjectID, txn.Amount); debitErr != nil {
			s.log.Error().Err(debitErr).Str("transaction_id", txn.ID).Msg("deposit compensation failed")
		}
		return err
	}
	return nil
}

// processFee computes the platform cut from the configured rate, records it
// on the row and debits it from escrow.
func (s *TransactionService) processFee(ctx context.Context, txn *domain.Transaction) error {
	fee := txn.Amount * s.feeRate

	if err := s.projects.DebitEscrow(ctx, txn.ProjectID, fee); err != nil {
		s.fail(ctx, txn)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return err
		}
		return fmt.Errorf("debit fee: %w", err)
	}

	if err := s.txns.SetFee(ctx, txn.ID, fee); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("failed to record fee amount")
	} else {
		txn.Fee = fee
	}

	if err := s.complete(ctx, txn); err != nil {
		if creditErr := s.projects.CreditEscrow(ctx, txn.ProjectID, fee); creditErr != nil {
			s.log.Error().Err(creditErr).Str("transaction_id", txn.ID).Msg("fee compensation failed")
		}
		return err
	}
	return nil
}

// processPayout debits escrow before touching the gateway: an overdraw is
// rejected without any external call. A gateway failure credits the funds
// back and leaves the row failed and queryable for audit and manual retry.
func (s *TransactionService) processPayout(ctx context.Context, txn *domain.Transaction) error {
	if err := s.projects.DebitEscrow(ctx, txn.ProjectID, txn.Amount); err != nil {
		s.fail(ctx, txn)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			metrics.PayoutFailuresTotal.WithLabelValues("insufficient_funds").Inc()
			return err
		}
		return fmt.Errorf("debit escrow: %w", err)
	}

	if err := s.gateway.Release(ctx, txn.ID, txn.ReceiverID, txn.Amount); err != nil {
		metrics.PayoutFailuresTotal.WithLabelValues("gateway").Inc()
		if creditErr := s.projects.CreditEscrow(ctx, txn.ProjectID, txn.Amount); creditErr != nil {
			s.log.Error().Err(creditErr).Str("transaction_id", txn.ID).Msg("payout compensation failed")
		}
		s.fail(ctx, txn)
		return fmt.Errorf("%w: %v", domain.ErrPaymentProcessing, err)
	}

	if err := s.complete(ctx, txn); err != nil {
		if creditErr := s.projects.CreditEscrow(ctx, txn.ProjectID, txn.Amount); creditErr != nil {
			s.log.Error().Err(creditErr).Str("transaction_id", txn.ID).Msg("payout compensation failed")
		}
		return err
	}
	return nil
}

// complete finalizes the claimed row as completed. The claim in Process
// guarantees this processor owns the row, so a finalize failure means the
// store itself misbehaved: the caller compensates its escrow mutation and the
// row is marked rolled back (best effort) rather than left claimed.
func (s *TransactionService) complete(ctx context.Context, txn *domain.Transaction) error {
	if err := s.txns.UpdateStatus(ctx, txn.ID, domain.TxProcessing, domain.TxCompleted); err != nil {
		if rbErr := s.txns.UpdateStatus(ctx, txn.ID, domain.TxProcessing, domain.TxRolledBack); rbErr == nil {
			txn.Status = domain.TxRolledBack
		}
		return fmt.Errorf("finalize transaction: %w", err)
	}
	txn.Status = domain.TxCompleted
	return nil
}

// fail moves the claimed row to failed; the record stays queryable for audit.
func (s *TransactionService) fail(ctx context.Context, txn *domain.Transaction) {
	if err := s.txns.UpdateStatus(ctx, txn.ID, domain.TxProcessing, domain.TxFailed); err != nil {
		s.log.Error().Err(err).Str("transaction_id", txn.ID).Msg("failed to mark transaction failed")
		return
	}
	txn.Status = domain.TxFailed
}

func (s *TransactionService) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.txns.FindByID(ctx, id)
}

func (s *TransactionService) ListByProject(ctx context.Context, projectID int64) ([]*domain.Transaction, error) {
	return s.txns.ListByProject(ctx, projectID)
}

func (s *TransactionService) ListBySender(ctx context.Context, senderID int64) ([]*domain.Transaction, error) {
	return s.txns.ListBySender(ctx, senderID)
}

func (s *TransactionService) ListByReceiver(ctx context.Context, receiverID int64) ([]*domain.Transaction, error) {
	return s.txns.ListByReceiver(ctx, receiverID)
}

func (s *TransactionService) List(ctx context.Context, filter ports.TransactionFilter) (*ports.ListTransactionsResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	items, total, err := s.txns.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ports.ListTransactionsResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// generateTransactionID returns a globally unique ledger id in the format
// TXN-XXXXXXXXXXXXXXXX.
func generateTransactionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// fallback: current nanoseconds
		return fmt.Sprintf("TXN-%016X", time.Now().UnixNano())
	}
	return fmt.Sprintf("TXN-%X", b)
}
