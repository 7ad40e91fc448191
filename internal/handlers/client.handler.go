package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/merchant-ledger/internal/balance"
	"github.com/nimasrn/merchant-ledger/internal/model"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
)

type AdjustmentService interface {
	Append(ctx context.Context, req model.AdjustmentCreateRequest) (*model.BalanceAdjustment, error)
	List(ctx context.Context, clientID, actorID string) ([]model.BalanceAdjustment, error)
}

type BalanceService interface {
	GetFor(ctx context.Context, clientID, actorID string) (model.ClientBalances, error)
	Explain(ctx context.Context, clientID, actorID string) (balance.Breakdown, error)
}

// ClientHandler serves the per-client ledger views and admin adjustments.
type ClientHandler struct {
	adjustments AdjustmentService
	balances    BalanceService
}

func RegisterClientRoutes(e *router.Group, h *ClientHandler) {
	e.POST("/adjustments", h.AppendAdjustment)
	e.GET("/clients/{id}/adjustments", h.ListAdjustments)
	e.GET("/clients/{id}/balances", h.GetBalances)
	e.GET("/clients/{id}/balances/breakdown", h.ExplainBalances)
}

func NewClientHandler(adjustments AdjustmentService, balances BalanceService) *ClientHandler {
	return &ClientHandler{adjustments: adjustments, balances: balances}
}

type appendAdjustmentRequest struct {
	ClientID string               `json:"client_id"`
	Type     model.AdjustmentType `json:"type"`
	Amount   int64                `json:"amount"`
	Reason   string               `json:"reason"`
}

func (h *ClientHandler) AppendAdjustment(ctx *xhttp.RequestCtx) {
	var req appendAdjustmentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	a, err := h.adjustments.Append(ctx, model.AdjustmentCreateRequest{
		ClientID: req.ClientID,
		AdminID:  actorID(ctx),
		Type:     req.Type,
		Amount:   req.Amount,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusCreated, a)
}

func (h *ClientHandler) ListAdjustments(ctx *xhttp.RequestCtx) {
	items, err := h.adjustments.List(ctx, pathParam(ctx, "id"), actorID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, listResponse[model.BalanceAdjustment]{Items: items, Total: int64(len(items))})
}

func (h *ClientHandler) GetBalances(ctx *xhttp.RequestCtx) {
	b, err := h.balances.GetFor(ctx, pathParam(ctx, "id"), actorID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, b)
}

// ExplainBalances returns the sums behind the balances for audits.
func (h *ClientHandler) ExplainBalances(ctx *xhttp.RequestCtx) {
	b, err := h.balances.Explain(ctx, pathParam(ctx, "id"), actorID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, b)
}
