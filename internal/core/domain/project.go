package domain

import (
	"errors"
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "pending"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

var ErrProjectNotFound = errors.New("project not found")
var ErrMilestoneNotFound = errors.New("milestone not found")
var ErrPaymentAlreadyReleased = errors.New("milestone payment already released")
var ErrInvalidProjectStatus = errors.New("invalid project status")

// ValidProjectStatus reports whether s is one of the known statuses.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectPending, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Milestone is a deliverable checkpoint on a project with an associated
// escrow payment. PaymentReleased guards the payout: a release may be
// triggered at most once per milestone.
type Milestone struct {
	ID              int64     `json:"id"`
	ProjectID       int64     `json:"project_id"`
	Description     string    `json:"description"`
	DueDate         time.Time `json:"due_date"`
	Completed       bool      `json:"completed"`
	Payment         float64   `json:"payment"`
	PaymentReleased bool      `json:"payment_released"`
}

// Project holds funds in escrow and owns a set of milestones.
//
// DependsOn stores directed references to other projects. No cycle detection
// or topological validation is performed on these links.
type Project struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Budget        float64       `json:"budget"`
	EscrowBalance float64       `json:"escrow_balance"`
	Status        ProjectStatus `json:"status"`
	DependsOn     []int64       `json:"depends_on,omitempty"`
	Milestones    []Milestone   `json:"milestones,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
