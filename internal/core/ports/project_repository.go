package ports

import (
	"context"

	"github.com/element-app/backend/internal/core/domain"
)

// ProjectRepository defines persistence operations for projects, their
// escrow balances and embedded milestones.
//
// CreditEscrow/DebitEscrow and the milestone payment claim are atomic
// compare-and-update operations: concurrent payouts against the same project
// must not both succeed when doing so would overdraw escrow, and a milestone
// payment must be claimable exactly once.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) (*domain.Project, error)
	FindByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ProjectStatus) error
	AddDependency(ctx context.Context, id, dependsOn int64) error
	RemoveDependency(ctx context.Context, id, dependsOn int64) error

	// CreditEscrow unconditionally increases the project's escrow balance.
	CreditEscrow(ctx context.Context, id int64, amount float64) error
	// DebitEscrow decreases escrow only when the balance covers amount.
	// Returns domain.ErrInsufficientFunds otherwise.
	DebitEscrow(ctx context.Context, id int64, amount float64) error

	AddMilestone(ctx context.Context, projectID int64, m *domain.Milestone) (*domain.Milestone, error)
	RemoveMilestone(ctx context.Context, projectID, milestoneID int64) error
	CompleteMilestone(ctx context.Context, projectID, milestoneID int64) error
	// ClaimMilestonePayment flips payment_released false→true and returns the
	// milestone. Returns domain.ErrPaymentAlreadyReleased when the flag was
	// already set, domain.ErrMilestoneNotFound when absent.
	ClaimMilestonePayment(ctx context.Context, projectID, milestoneID int64) (*domain.Milestone, error)
	// RevertMilestonePaymentClaim flips the flag back so a failed release can
	// be retried.
	RevertMilestonePaymentClaim(ctx context.Context, projectID, milestoneID int64) error
}
