package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/element-app/backend/internal/api/metrics"
	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

// MilestoneService tracks project milestones and their payment release.
// Release is idempotent: the payment_released flag is claimed atomically
// before the payout is attempted and reverted when the ledger reports a
// failure, so a milestone pays out at most once and a failed release can be
// retried.
type MilestoneService struct {
	projects ports.ProjectRepository
	ledger   ports.TransactionService
	log      zerolog.Logger
}

func NewMilestoneService(projects ports.ProjectRepository, ledger ports.TransactionService, log zerolog.Logger) *MilestoneService {
	return &MilestoneService{projects: projects, ledger: ledger, log: log}
}

func (s *MilestoneService) Add(ctx context.Context, projectID int64, input ports.MilestoneInput) (*domain.Milestone, error) {
	if input.Payment <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	m := &domain.Milestone{
		ProjectID:   projectID,
		Description: input.Description,
		DueDate:     input.DueDate,
		Payment:     input.Payment,
	}

	added, err := s.projects.AddMilestone(ctx, projectID, m)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("project_id", projectID).Int64("milestone_id", added.ID).Msg("milestone added")
	return added, nil
}

func (s *MilestoneService) Remove(ctx context.Context, projectID, milestoneID int64) error {
	return s.projects.RemoveMilestone(ctx, projectID, milestoneID)
}

func (s *MilestoneService) Complete(ctx context.Context, projectID, milestoneID int64) error {
	if err := s.projects.CompleteMilestone(ctx, projectID, milestoneID); err != nil {
		return err
	}
	s.log.Info().Int64("project_id", projectID).Int64("milestone_id", milestoneID).Msg("milestone completed")
	return nil
}

// ReleasePayment triggers the milestone's payout through the ledger.
//
// The claim on payment_released happens first as an atomic test-and-set, so
// two concurrent release requests cannot both reach the ledger. When the
// payout fails the claim is reverted and the error surfaced; the failed
// ledger row stays queryable.
func (s *MilestoneService) ReleasePayment(ctx context.Context, input ports.ReleasePaymentInput) (*domain.Transaction, error) {
	m, err := s.projects.ClaimMilestonePayment(ctx, input.ProjectID, input.MilestoneID)
	if err != nil {
		return nil, err
	}

	txn, err := s.ledger.Create(ctx, ports.CreateTransactionInput{
		ProjectID:   input.ProjectID,
		SenderID:    input.SenderID,
		ReceiverID:  input.ReceiverID,
		Amount:      m.Payment,
		Description: fmt.Sprintf("milestone %d payout", input.MilestoneID),
		Type:        domain.TypePayout,
	})
	if err != nil {
		s.revertClaim(ctx, input)
		return nil, err
	}

	processed, err := s.ledger.Process(ctx, txn.ID)
	if err != nil {
		s.revertClaim(ctx, input)
		return processed, err
	}

	metrics.MilestonePaymentsReleasedTotal.Inc()
	s.log.Info().
		Int64("project_id", input.ProjectID).
		Int64("milestone_id", input.MilestoneID).
		Str("transaction_id", processed.ID).
		Msg("milestone payment released")
	return processed, nil
}

func (s *MilestoneService) revertClaim(ctx context.Context, input ports.ReleasePaymentInput) {
	if err := s.projects.RevertMilestonePaymentClaim(ctx, input.ProjectID, input.MilestoneID); err != nil {
		s.log.Error().Err(err).
			Int64("project_id", input.ProjectID).
			Int64("milestone_id", input.MilestoneID).
			Msg("failed to revert milestone payment claim")
	}
}
