package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labms/labms/internal/platform/auth"
	"github.com/labms/labms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "billing")

	g := api.Group("/billing", role)
	g.POST("/summaries", h.CreateSummary)
	g.GET("/summaries", h.ListSummaries)
	g.GET("/summaries/:id", h.GetSummary)
	g.POST("/summaries/:id/payments", h.AddPayment)
	g.POST("/summaries/:id/recalculate", h.Recalculate)
	g.GET("/summaries/:id/transactions", h.ListTransactions)
}

type paymentRequest struct {
	Amount float64       `json:"amount"`
	Method PaymentMethod `json:"method"`
}

type recalculateRequest struct {
	BillableTotal float64 `json:"billable_total"`
}

type summaryResponse struct {
	Summary      *BillingSummary     `json:"summary"`
	Transactions []*TransactionEntry `json:"transactions,omitempty"`
	Refund       *TransactionEntry   `json:"refund,omitempty"`
}

func (h *Handler) CreateSummary(c echo.Context) error {
	var in CreateSummaryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.Actor = auth.UserIDFromContext(c.Request().Context())

	s, err := h.svc.CreateSummary(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) GetSummary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	s, ledger, err := h.svc.GetSummary(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summaryResponse{Summary: s, Transactions: ledger})
}

func (h *Handler) ListSummaries(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSummaries(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())

	s, err := h.svc.AddPayment(c.Request().Context(), id, req.Amount, req.Method, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Recalculate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req recalculateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())

	s, refund, err := h.svc.RecalculateAfterAmountChange(c.Request().Context(), id, req.BillableTotal, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summaryResponse{Summary: s, Refund: refund})
}

func (h *Handler) ListTransactions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTransactions(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// httpError maps domain errors onto HTTP status codes. Lock conflicts come
// back as 409 so clients know a retry is reasonable.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "billing summary not found")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidMethod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
