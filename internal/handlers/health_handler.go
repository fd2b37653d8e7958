package handlers

import (
	"context"
	"net/http"
	"time"

	"reservation-service/internal/broadcast"
	"reservation-service/internal/ledger"
	"reservation-service/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	ledger  *ledger.Ledger
	gateway *broadcast.Gateway
	store   repository.CatalogStore
	logger  *zap.Logger
}

func NewHealthHandler(l *ledger.Ledger, gateway *broadcast.Gateway, store repository.CatalogStore, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		ledger:  l,
		gateway: gateway,
		store:   store,
		logger:  logger,
	}
}

// Health handles GET /api/v1/health
// @Summary      Service health
// @Description  Reservations keep working while the catalog store is down; the store status is reported, not enforced.
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:            "ok",
		CatalogItems:      len(h.ledger.Items()),
		ConnectedSessions: h.gateway.Connected(),
		Store:             "ok",
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Catalog store ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Store = "unavailable"
		}
	}
	c.JSON(http.StatusOK, resp)
}
