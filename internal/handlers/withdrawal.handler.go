package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/merchant-ledger/internal/model"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
)

type WithdrawalService interface {
	Request(ctx context.Context, req model.WithdrawalCreateRequest) (*model.Withdrawal, error)
	Pay(ctx context.Context, id, adminID, proofURL string) (*model.Withdrawal, error)
	Cancel(ctx context.Context, id, actorID string) (*model.Withdrawal, error)
	Get(ctx context.Context, id, actorID string) (*model.Withdrawal, error)
	List(ctx context.Context, actorID string, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error)
}

type WithdrawalHandler struct {
	svc WithdrawalService
}

func RegisterWithdrawalRoutes(e *router.Group, h *WithdrawalHandler) {
	e.POST("/withdrawals", h.Request)
	e.GET("/withdrawals", h.List)
	e.GET("/withdrawals/{id}", h.Get)
	e.POST("/withdrawals/{id}/pay", h.Pay)
	e.POST("/withdrawals/{id}/cancel", h.Cancel)
}

func NewWithdrawalHandler(svc WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

type requestWithdrawalRequest struct {
	Amount      int64                  `json:"amount"`
	Method      model.WithdrawalMethod `json:"method"`
	Destination model.Destination      `json:"destination"`
}

type payWithdrawalRequest struct {
	ProofURL string `json:"proof_url"`
}

func (h *WithdrawalHandler) Request(ctx *xhttp.RequestCtx) {
	var req requestWithdrawalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	w, err := h.svc.Request(ctx, model.WithdrawalCreateRequest{
		ClientID:    actorID(ctx),
		Amount:      req.Amount,
		Method:      req.Method,
		Destination: req.Destination,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusCreated, w)
}

func (h *WithdrawalHandler) Pay(ctx *xhttp.RequestCtx) {
	var req payWithdrawalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	h.respond(ctx)(h.svc.Pay(ctx, pathParam(ctx, "id"), actorID(ctx), req.ProofURL))
}

func (h *WithdrawalHandler) Cancel(ctx *xhttp.RequestCtx) {
	h.respond(ctx)(h.svc.Cancel(ctx, pathParam(ctx, "id"), actorID(ctx)))
}

func (h *WithdrawalHandler) Get(ctx *xhttp.RequestCtx) {
	h.respond(ctx)(h.svc.Get(ctx, pathParam(ctx, "id"), actorID(ctx)))
}

func (h *WithdrawalHandler) List(ctx *xhttp.RequestCtx) {
	var f model.WithdrawalFilter
	if v := query(ctx, "client_id"); v != "" {
		f.ClientID = &v
	}
	for _, s := range queryList(ctx, "status") {
		f.Statuses = append(f.Statuses, model.WithdrawalStatus(s))
	}
	f.Limit = queryInt(ctx, "limit")
	f.Offset = queryInt(ctx, "offset")
	f.Desc = strings.EqualFold(query(ctx, "order"), "desc")

	items, total, err := h.svc.List(ctx, actorID(ctx), f)
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, listResponse[*model.Withdrawal]{Items: items, Total: total})
}

func (h *WithdrawalHandler) respond(ctx *xhttp.RequestCtx) func(*model.Withdrawal, error) {
	return func(w *model.Withdrawal, err error) {
		if err != nil {
			writeError(ctx, err)
			return
		}
		xhttp.JSON(ctx, xhttp.StatusOK, w)
	}
}
