package handlers

import (
	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
)

type HealthService interface {
	Get() error
}

type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if err := h.healthService.Get(); err != nil {
		logger.Warn("health check failed", "error", err)
		xhttp.JSON(ctx, xhttp.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	xhttp.JSON(ctx, xhttp.StatusOK, map[string]string{"status": "ok"})
}
