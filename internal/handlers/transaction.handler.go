package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/merchant-ledger/internal/model"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
)

type TransactionService interface {
	Create(ctx context.Context, req model.TransactionCreateRequest) (*model.Transaction, error)
	SubmitReceipt(ctx context.Context, id, actorID string, evidence model.Evidence) (*model.Transaction, error)
	Verify(ctx context.Context, id, adminID string) (*model.Transaction, error)
	Reject(ctx context.Context, id, adminID, reason string) (*model.Transaction, error)
	MarkPaid(ctx context.Context, id, adminID string) (*model.Transaction, error)
	RequestChargeback(ctx context.Context, id, clientID, reason string) (*model.Transaction, error)
	ApproveChargeback(ctx context.Context, id, adminID, reason string) (*model.Transaction, error)
	DismissChargeback(ctx context.Context, id, adminID string) (*model.Transaction, error)
	Get(ctx context.Context, id, actorID string) (*model.Transaction, error)
	List(ctx context.Context, actorID string, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type TransactionHandler struct {
	svc TransactionService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/transactions", h.Create)
	e.GET("/transactions", h.List)
	e.GET("/transactions/{id}", h.Get)
	e.POST("/transactions/{id}/receipt", h.SubmitReceipt)
	e.POST("/transactions/{id}/verify", h.Verify)
	e.POST("/transactions/{id}/reject", h.Reject)
	e.POST("/transactions/{id}/pay", h.MarkPaid)
	e.POST("/transactions/{id}/chargeback", h.RequestChargeback)
	e.POST("/transactions/{id}/chargeback/approve", h.ApproveChargeback)
	e.POST("/transactions/{id}/chargeback/dismiss", h.DismissChargeback)
}

func NewTransactionHandler(svc TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

type createTransactionRequest struct {
	GrossValue   int64             `json:"gross_value"`
	Brand        model.Brand       `json:"brand"`
	PaymentType  model.PaymentType `json:"payment_type"`
	Installments int               `json:"installments"`
	Evidence     *model.Evidence   `json:"evidence,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Create registers a sale for the calling client.
func (h *TransactionHandler) Create(ctx *xhttp.RequestCtx) {
	var req createTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	if req.Installments == 0 {
		req.Installments = 1
	}
	txn, err := h.svc.Create(ctx, model.TransactionCreateRequest{
		ClientID:     actorID(ctx),
		GrossValue:   req.GrossValue,
		Brand:        req.Brand,
		PaymentType:  req.PaymentType,
		Installments: req.Installments,
		Evidence:     req.Evidence,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusCreated, txn)
}

func (h *TransactionHandler) Get(ctx *xhttp.RequestCtx) {
	txn, err := h.svc.Get(ctx, pathParam(ctx, "id"), actorID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) List(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter
	if v := query(ctx, "client_id"); v != "" {
		f.ClientID = &v
	}
	for _, s := range queryList(ctx, "status") {
		f.Statuses = append(f.Statuses, model.TransactionStatus(s))
	}
	f.ChargebackPending = query(ctx, "chargeback_pending") == "true"
	f.Limit = queryInt(ctx, "limit")
	f.Offset = queryInt(ctx, "offset")
	f.Desc = strings.EqualFold(query(ctx, "order"), "desc")

	items, total, err := h.svc.List(ctx, actorID(ctx), f)
	if err != nil {
		writeError(ctx, err)
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, listResponse[*model.Transaction]{Items: items, Total: total})
}

func (h *TransactionHandler) SubmitReceipt(ctx *xhttp.RequestCtx) {
	var evidence model.Evidence
	if err := readJSON(ctx, &evidence); err != nil {
		writeError(ctx, err)
		return
	}
	h.respond(ctx)(h.svc.SubmitReceipt(ctx, pathParam(ctx, "id"), actorID(ctx), evidence))
}

func (h *TransactionHandler) Verify(ctx *xhttp.RequestCtx) {
	h.respond(ctx)(h.svc.Verify(ctx, pathParam(ctx, "id"), actorID(ctx)))
}

func (h *TransactionHandler) Reject(ctx *xhttp.RequestCtx) {
	var req reasonRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	h.respond(ctx)(h.svc.Reject(ctx, pathParam(ctx, "id"), actorID(ctx), req.Reason))
}

func (h *TransactionHandler) MarkPaid(ctx *xhttp.RequestCtx) {
	h.respond(ctx)(h.svc.MarkPaid(ctx, pathParam(ctx, "id"), actorID(ctx)))
}

func (h *TransactionHandler) RequestChargeback(ctx *xhttp.RequestCtx) {
	var req reasonRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, err)
		return
	}
	h.respond(ctx)(h.svc.RequestChargeback(ctx, pathParam(ctx, "id"), actorID(ctx), req.Reason))
}

// ApproveChargeback accepts an empty body; the client's reason is used then.
func (h *TransactionHandler) ApproveChargeback(ctx *xhttp.RequestCtx) {
	var req reasonRequest
	if len(ctx.PostBody()) > 0 {
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, err)
			return
		}
	}
	h.respond(ctx)(h.svc.ApproveChargeback(ctx, pathParam(ctx, "id"), actorID(ctx), req.Reason))
}

func (h *TransactionHandler) DismissChargeback(ctx *xhttp.RequestCtx) {
	h.respond(ctx)(h.svc.DismissChargeback(ctx, pathParam(ctx, "id"), actorID(ctx)))
}

func (h *TransactionHandler) respond(ctx *xhttp.RequestCtx) func(*model.Transaction, error) {
	return func(txn *model.Transaction, err error) {
		if err != nil {
			writeError(ctx, err)
			return
		}
		xhttp.JSON(ctx, xhttp.StatusOK, txn)
	}
}
