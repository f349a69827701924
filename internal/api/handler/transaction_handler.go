package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

type TransactionHandler struct {
	ledger ports.TransactionService
}

func NewTransactionHandler(ledger ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

type createTransactionRequest struct {
	ProjectID   int64   `json:"project_id"  validate:"required,gt=0"`
	SenderID    int64   `json:"sender_id"   validate:"required,gt=0"`
	ReceiverID  int64   `json:"receiver_id" validate:"required,gt=0"`
	Amount      float64 `json:"amount"      validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=255"`
	Type        string  `json:"type"        validate:"required,oneof=deposit fee payout"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listTransactionsResponse struct {
	Data       []*domain.Transaction `json:"data"`
	Pagination paginationResponse    `json:"pagination"`
}

// Create records a new pending ledger entry.
//
// @Summary      Record a transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTransactionRequest  true  "Transaction details"
// @Success      201   {object}  domain.Transaction
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/transactions [post]
func (h *TransactionHandler) Create(c echo.Context) error {
	var req createTransactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	txn, err := h.ledger.Create(c.Request().Context(), ports.CreateTransactionInput{
		ProjectID:   req.ProjectID,
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
		Amount:      req.Amount,
		Description: req.Description,
		Type:        domain.TransactionType(req.Type),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, txn)
}

// Process applies the transaction's escrow side effect.
//
// @Summary      Process a pending transaction
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Transaction id"
// @Success      200  {object}  domain.Transaction
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /v1/transactions/{id}/process [post]
func (h *TransactionHandler) Process(c echo.Context) error {
	txn, err := h.ledger.Process(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

// Get returns a single ledger entry.
//
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Transaction id"
// @Success      200  {object}  domain.Transaction
// @Failure      404  {object}  errorResponse
// @Router       /v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c echo.Context) error {
	txn, err := h.ledger.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

// List returns ledger entries. project_id, sender_id and receiver_id query
// parameters select the dedicated read paths; otherwise the filtered,
// paginated listing runs.
//
// @Summary      List transactions
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        project_id   query  int     false  "Scope to a project"
// @Param        sender_id    query  int     false  "Scope to a sender"
// @Param        receiver_id  query  int     false  "Scope to a receiver"
// @Param        type         query  string  false  "deposit | fee | payout"
// @Param        status       query  string  false  "pending | processing | completed | failed | rolled_back"
// @Param        date_from    query  string  false  "RFC 3339 lower bound on created_at"
// @Param        date_to      query  string  false  "RFC 3339 upper bound on created_at"
// @Param        page         query  int     false  "1-based page"
// @Param        limit        query  int     false  "Page size (max 100)"
// @Success      200  {object}  listTransactionsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/transactions [get]
func (h *TransactionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if projectID := queryID(c, "project_id"); projectID > 0 {
		items, err := h.ledger.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}
	if senderID := queryID(c, "sender_id"); senderID > 0 {
		items, err := h.ledger.ListBySender(ctx, senderID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}
	if receiverID := queryID(c, "receiver_id"); receiverID > 0 {
		items, err := h.ledger.ListByReceiver(ctx, receiverID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}

	filter := ports.TransactionFilter{
		Type:   domain.TransactionType(c.QueryParam("type")),
		Status: domain.TransactionStatus(c.QueryParam("status")),
	}
	if from, err := time.Parse(time.RFC3339, c.QueryParam("date_from")); err == nil {
		filter.DateFrom = from
	}
	if to, err := time.Parse(time.RFC3339, c.QueryParam("date_to")); err == nil {
		filter.DateTo = to
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	result, err := h.ledger.List(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listTransactionsResponse{
		Data: result.Items,
		Pagination: paginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

func queryID(c echo.Context, name string) int64 {
	id, _ := strconv.ParseInt(c.QueryParam(name), 10, 64)
	return id
}
