package ports

import (
	"context"
	"time"

	"github.com/element-app/backend/internal/core/domain"
)

// CreateProjectInput carries the data needed to create a project.
type CreateProjectInput struct {
	Name   string
	Budget float64
}

// MilestoneInput carries the data needed to attach a milestone.
type MilestoneInput struct {
	Description string
	DueDate     time.Time
	Payment     float64
}

// ReleasePaymentInput identifies the milestone payout to trigger.
type ReleasePaymentInput struct {
	ProjectID   int64
	MilestoneID int64
	SenderID    int64
	ReceiverID  int64
}

// ProjectService defines use-case operations for projects.
type ProjectService interface {
	Create(ctx context.Context, input CreateProjectInput) (*domain.Project, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	SetStatus(ctx context.Context, id int64, status domain.ProjectStatus) error
	AddDependency(ctx context.Context, id, dependsOn int64) error
	RemoveDependency(ctx context.Context, id, dependsOn int64) error
}

// MilestoneService tracks milestones and their idempotent payment release.
type MilestoneService interface {
	Add(ctx context.Context, projectID int64, input MilestoneInput) (*domain.Milestone, error)
	Remove(ctx context.Context, projectID, milestoneID int64) error
	Complete(ctx context.Context, projectID, milestoneID int64) error
	// ReleasePayment triggers a payout through the ledger at most once per
	// milestone. A failed payout leaves the milestone releasable again.
	ReleasePayment(ctx context.Context, input ReleasePaymentInput) (*domain.Transaction, error)
}
