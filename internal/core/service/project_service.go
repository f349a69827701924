package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

// ProjectService implements project lifecycle operations.
type ProjectService struct {
	projects ports.ProjectRepository
	log      zerolog.Logger
}

func NewProjectService(projects ports.ProjectRepository, log zerolog.Logger) *ProjectService {
	return &ProjectService{projects: projects, log: log}
}

func (s *ProjectService) Create(ctx context.Context, input ports.CreateProjectInput) (*domain.Project, error) {
	if len(input.Name) < 3 || len(input.Name) > 100 {
		return nil, fmt.Errorf("%w: project name must be 3-100 characters", domain.ErrInvalidInput)
	}
	if input.Budget < 0 {
		return nil, fmt.Errorf("%w: budget cannot be negative", domain.ErrInvalidInput)
	}

	p := &domain.Project{
		Name:      input.Name,
		Budget:    input.Budget,
		Status:    domain.ProjectPending,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.projects.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("project_id", created.ID).Str("name", created.Name).Msg("project created")
	return created, nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*domain.Project, error) {
	return s.projects.FindByID(ctx, id)
}

func (s *ProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

func (s *ProjectService) SetStatus(ctx context.Context, id int64, status domain.ProjectStatus) error {
	if !domain.ValidProjectStatus(status) {
		return domain.ErrInvalidProjectStatus
	}
	return s.projects.UpdateStatus(ctx, id, status)
}

// AddDependency stores a directed link to another project. Links are not
// checked for cycles.
func (s *ProjectService) AddDependency(ctx context.Context, id, dependsOn int64) error {
	if id == dependsOn {
		return fmt.Errorf("%w: a project cannot depend on itself", domain.ErrInvalidInput)
	}
	if _, err := s.projects.FindByID(ctx, dependsOn); err != nil {
		return err
	}
	return s.projects.AddDependency(ctx, id, dependsOn)
}

func (s *ProjectService) RemoveDependency(ctx context.Context, id, dependsOn int64) error {
	return s.projects.RemoveDependency(ctx, id, dependsOn)
}
