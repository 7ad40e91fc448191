package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nimasrn/merchant-ledger/internal/model"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/pkg/errors"
)

// ActorHeader carries the authenticated profile id set by the gateway in
// front of the API.
const ActorHeader = "X-Actor-ID"

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func actorID(ctx *xhttp.RequestCtx) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(ActorHeader)))
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) int {
	n, _ := strconv.Atoi(query(ctx, key))
	return n
}

func queryList(ctx *xhttp.RequestCtx, key string) []string {
	var out []string
	for _, part := range strings.Split(query(ctx, key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return model.Validationf("invalid JSON: %v", err)
	}
	return nil
}

// statusOf maps an error kind onto its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return xhttp.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		return xhttp.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return xhttp.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrConflict):
		return xhttp.StatusConflict
	case errors.Is(err, model.ErrInsufficientBalance), errors.Is(err, model.ErrRateNotFound):
		return xhttp.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.StatusServiceUnavailable
	default:
		return xhttp.StatusInternalServerError
	}
}

func writeError(ctx *xhttp.RequestCtx, err error) {
	status := statusOf(err)
	kind := model.KindOf(err)
	if status >= xhttp.StatusInternalServerError {
		logger.Error("request failed", "path", string(ctx.Path()), "kind", kind, "error", err)
	}
	xhttp.JSON(ctx, status, errorResponse{Error: err.Error(), Kind: kind})
}
