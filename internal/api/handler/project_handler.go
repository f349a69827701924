package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

type ProjectHandler struct {
	projects   ports.ProjectService
	milestones ports.MilestoneService
}

func NewProjectHandler(projects ports.ProjectService, milestones ports.MilestoneService) *ProjectHandler {
	return &ProjectHandler{projects: projects, milestones: milestones}
}

type createProjectRequest struct {
	Name   string  `json:"name"   validate:"required,min=3,max=100"`
	Budget float64 `json:"budget" validate:"gte=0"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
}

type addMilestoneRequest struct {
	Description string    `json:"description" validate:"required,min=3,max=100"`
	DueDate     time.Time `json:"due_date"    validate:"required"`
	Payment     float64   `json:"payment"     validate:"required,gt=0"`
}

type releasePaymentRequest struct {
	SenderID   int64 `json:"sender_id"   validate:"required,gt=0"`
	ReceiverID int64 `json:"receiver_id" validate:"required,gt=0"`
}

// Create registers a new project.
//
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProjectRequest  true  "Project details"
// @Success      201   {object}  domain.Project
// @Failure      401   {object}  errorResponse
// @Router       /v1/projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	project, err := h.projects.Create(c.Request().Context(), ports.CreateProjectInput{
		Name:   req.Name,
		Budget: req.Budget,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

// Get returns a project with its milestones and escrow balance.
//
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      int  true  "Project id"
// @Success      200  {object}  domain.Project
// @Failure      404  {object}  errorResponse
// @Router       /v1/projects/{id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projects.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// List returns all projects.
//
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Project
// @Router       /v1/projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	projects, err := h.projects.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

// SetStatus updates the project lifecycle status.
//
// @Summary      Set project status
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Project id"
// @Param        body  body      setStatusRequest  true  "New status"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/projects/{id}/status [patch]
func (h *ProjectHandler) SetStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.projects.SetStatus(c.Request().Context(), id, domain.ProjectStatus(req.Status)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "status updated"})
}

// AddDependency links this project to one it depends on. Links are stored
// without cycle checking.
//
// @Summary      Add a project dependency
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project id"
// @Param        dep  path      int  true  "Project id this one depends on"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/projects/{id}/dependencies/{dep} [post]
func (h *ProjectHandler) AddDependency(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	dep, err := pathID(c, "dep")
	if err != nil {
		return err
	}

	if err := h.projects.AddDependency(c.Request().Context(), id, dep); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "dependency added"})
}

// RemoveDependency unlinks a dependency.
//
// @Summary      Remove a project dependency
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project id"
// @Param        dep  path      int  true  "Dependency project id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/projects/{id}/dependencies/{dep} [delete]
func (h *ProjectHandler) RemoveDependency(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	dep, err := pathID(c, "dep")
	if err != nil {
		return err
	}

	if err := h.projects.RemoveDependency(c.Request().Context(), id, dep); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "dependency removed"})
}

// AddMilestone attaches a milestone to the project.
//
// @Summary      Add a milestone
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Project id"
// @Param        body  body      addMilestoneRequest  true  "Milestone details"
// @Success      201   {object}  domain.Milestone
// @Failure      404   {object}  errorResponse
// @Router       /v1/projects/{id}/milestones [post]
func (h *ProjectHandler) AddMilestone(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req addMilestoneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	m, err := h.milestones.Add(c.Request().Context(), id, ports.MilestoneInput{
		Description: req.Description,
		DueDate:     req.DueDate,
		Payment:     req.Payment,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// RemoveMilestone detaches a milestone from the project.
//
// @Summary      Remove a milestone
// @Tags         milestones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  int  true  "Project id"
// @Param        mid  path  int  true  "Milestone id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/projects/{id}/milestones/{mid} [delete]
func (h *ProjectHandler) RemoveMilestone(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	mid, err := pathID(c, "mid")
	if err != nil {
		return err
	}

	if err := h.milestones.Remove(c.Request().Context(), id, mid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CompleteMilestone marks a milestone as done. Completing and releasing the
// payment are deliberately separate steps.
//
// @Summary      Complete a milestone
// @Tags         milestones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project id"
// @Param        mid  path      int  true  "Milestone id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/projects/{id}/milestones/{mid}/complete [post]
func (h *ProjectHandler) CompleteMilestone(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	mid, err := pathID(c, "mid")
	if err != nil {
		return err
	}

	if err := h.milestones.Complete(c.Request().Context(), id, mid); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "milestone completed"})
}

// ReleasePayment triggers the milestone payout. Safe to retry after a
// failure; a second call after success returns 409.
//
// @Summary      Release a milestone payment
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                    true  "Project id"
// @Param        mid   path      int                    true  "Milestone id"
// @Param        body  body      releasePaymentRequest  true  "Payout parties"
// @Success      200   {object}  domain.Transaction
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/projects/{id}/milestones/{mid}/release [post]
func (h *ProjectHandler) ReleasePayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	mid, err := pathID(c, "mid")
	if err != nil {
		return err
	}

	var req releasePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	txn, err := h.milestones.ReleasePayment(c.Request().Context(), ports.ReleasePaymentInput{
		ProjectID:   id,
		MilestoneID: mid,
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
