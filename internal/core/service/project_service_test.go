package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

func newTestProjectService() (*ProjectService, *stubProjectRepo) {
	projects := newStubProjectRepo()
	return NewProjectService(projects, zerolog.Nop()), projects
}

func TestProjectService_Create(t *testing.T) {
	svc, _ := newTestProjectService()

	p, err := svc.Create(context.Background(), ports.CreateProjectInput{Name: "site redesign", Budget: 5000})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if p.Status != domain.ProjectPending {
		t.Fatalf("expected pending status, got %s", p.Status)
	}
	if p.EscrowBalance != 0 {
		t.Fatalf("new project must start with zero escrow, got %v", p.EscrowBalance)
	}
}

func TestProjectService_Create_Validation(t *testing.T) {
	svc, _ := newTestProjectService()

	if _, err := svc.Create(context.Background(), ports.CreateProjectInput{Name: "ab"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), ports.CreateProjectInput{Name: strings.Repeat("x", 101)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for long name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), ports.CreateProjectInput{Name: "valid name", Budget: -1}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative budget, got %v", err)
	}
}

func TestProjectService_SetStatus(t *testing.T) {
	svc, projects := newTestProjectService()
	p, _ := svc.Create(context.Background(), ports.CreateProjectInput{Name: "site redesign"})

	if err := svc.SetStatus(context.Background(), p.ID, domain.ProjectInProgress); err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	stored, _ := projects.FindByID(context.Background(), p.ID)
	if stored.Status != domain.ProjectInProgress {
		t.Fatalf("status not updated: %s", stored.Status)
	}

	if err := svc.SetStatus(context.Background(), p.ID, "archived"); err != domain.ErrInvalidProjectStatus {
		t.Fatalf("expected ErrInvalidProjectStatus, got %v", err)
	}
	if err := svc.SetStatus(context.Background(), 999, domain.ProjectCompleted); err != domain.ErrProjectNotFound {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestProjectService_Dependencies(t *testing.T) {
	svc, projects := newTestProjectService()
	a, _ := svc.Create(context.Background(), ports.CreateProjectInput{Name: "project a"})
	b, _ := svc.Create(context.Background(), ports.CreateProjectInput{Name: "project b"})

	if err := svc.AddDependency(context.Background(), a.ID, b.ID); err != nil {
		t.Fatalf("AddDependency returned error: %v", err)
	}
	stored, _ := projects.FindByID(context.Background(), a.ID)
	if len(stored.DependsOn) != 1 || stored.DependsOn[0] != b.ID {
		t.Fatalf("dependency not recorded: %v", stored.DependsOn)
	}

	if err := svc.AddDependency(context.Background(), a.ID, a.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self dependency, got %v", err)
	}
	if err := svc.AddDependency(context.Background(), a.ID, 999); err != domain.ErrProjectNotFound {
		t.Fatalf("expected ErrProjectNotFound for unknown target, got %v", err)
	}

	if err := svc.RemoveDependency(context.Background(), a.ID, b.ID); err != nil {
		t.Fatalf("RemoveDependency returned error: %v", err)
	}
	stored, _ = projects.FindByID(context.Background(), a.ID)
	if len(stored.DependsOn) != 0 {
		t.Fatalf("dependency not removed: %v", stored.DependsOn)
	}
}
