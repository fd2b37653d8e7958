package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"reservation-service/internal/broadcast"
	"reservation-service/internal/commands"
	"reservation-service/internal/domain"
	"reservation-service/internal/ledger"
	"reservation-service/internal/sweeper"
	"reservation-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// heartbeatInterval keeps idle streams open through proxies.
const heartbeatInterval = 15 * time.Second

// SessionHandler serves the storefront side: sessions, their event stream,
// reservations and releases.
type SessionHandler struct {
	service *commands.Service
	gateway *broadcast.Gateway
	sweeper *sweeper.Sweeper
	ledger  *ledger.Ledger
	logger  *zap.Logger
}

func NewSessionHandler(service *commands.Service, gateway *broadcast.Gateway, sw *sweeper.Sweeper, l *ledger.Ledger, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		gateway: gateway,
		sweeper: sw,
		ledger:  l,
		logger:  logger,
	}
}

// CreateSession handles POST /api/v1/sessions
// @Summary      Open a storefront session
// @Description  Returns a new session id. Connect to the stream URL to receive availability snapshots and reservation results.
// @Tags         sessions
// @Produce      json
// @Success      201  {object}  SessionResponse
// @Router       /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sessionID := uuid.New().String()
	h.logger.Info("Session opened", zap.String("session_id", sessionID))
	c.JSON(http.StatusCreated, SessionResponse{
		SessionID: sessionID,
		StreamURL: "/api/v1/sessions/" + sessionID + "/stream",
	})
}

// Stream handles GET /api/v1/sessions/:id/stream
// @Summary      Session event stream
// @Description  Server-sent events. The first availability_snapshot is always full; later ones carry only changed items unless full is set. reservation_result answers this session's reservations. Closing the stream releases every hold of the session.
// @Tags         sessions
// @Produce      text/event-stream
// @Param        id   path      string  true  "Session ID"
// @Success      200  {string}  string  "event stream"
// @Router       /sessions/{id}/stream [get]
func (h *SessionHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")
	sub := h.gateway.Connect(sessionID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, msg.Data)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			return true
		case <-sub.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})

	// A replaced connection must not take the new one's holds with it.
	if h.gateway.Disconnect(sub) {
		h.sweeper.Disconnect(context.Background(), sessionID)
	}
}

// Reserve handles POST /api/v1/sessions/:id/reservations
// @Summary      Reserve stock
// @Description  Reserves every line or none. The outcome is also pushed to the session stream as reservation_result.
// @Description  **Idempotencia**: the same X-Request-ID on the same session returns the first outcome.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id            path      string          true   "Session ID"
// @Param        X-Request-ID  header    string          false  "Correlation and idempotency key"
// @Param        request       body      ReserveRequest  true   "Lines to reserve"
// @Success      200  {object}  broadcast.ReservationResult  "Reserved"
// @Failure      400  {object}  ErrorResponse                "Invalid request"
// @Failure      404  {object}  ErrorResponse                "Unknown item"
// @Failure      409  {object}  broadcast.ReservationResult  "Insufficient stock or item not sellable"
// @Router       /sessions/{id}/reservations [post]
func (h *SessionHandler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid reserve request", zap.Error(err))
		c.Error(invalidBody(err))
		return
	}

	result, err := h.service.Reserve(c.Request.Context(), commands.ReserveStockCommand{
		SessionID: c.Param("id"),
		RequestID: middleware.GetRequestID(c),
		Items:     toLines(req.Items),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			c.JSON(http.StatusConflict, result)
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Release handles POST /api/v1/sessions/:id/releases
// @Summary      Release stock
// @Description  Gives back held quantities. Releasing more than is held releases what is held.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id            path      string          true   "Session ID"
// @Param        X-Request-ID  header    string          false  "Correlation and idempotency key"
// @Param        request       body      ReleaseRequest  true   "Lines to release"
// @Success      200  {object}  ReleaseResponse  "Remaining holds on the released items"
// @Failure      400  {object}  ErrorResponse    "Invalid request"
// @Failure      404  {object}  ErrorResponse    "Unknown item"
// @Router       /sessions/{id}/releases [post]
func (h *SessionHandler) Release(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid release request", zap.Error(err))
		c.Error(invalidBody(err))
		return
	}

	sessionID := c.Param("id")
	holds, err := h.service.Release(c.Request.Context(), commands.ReleaseStockCommand{
		SessionID: sessionID,
		RequestID: middleware.GetRequestID(c),
		Items:     toLines(req.Items),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ReleaseResponse{SessionID: sessionID, Holds: nonNilHolds(holds)})
}

// EndSession handles DELETE /api/v1/sessions/:id
// @Summary      End a session
// @Description  Releases every hold of the session.
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  ReleaseResponse  "Released holds"
// @Router       /sessions/{id} [delete]
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	released := h.sweeper.Disconnect(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, ReleaseResponse{SessionID: sessionID, Holds: nonNilHolds(released)})
}

// GetHolds handles GET /api/v1/sessions/:id/holds
// @Summary      List session holds
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  HoldsResponse
// @Router       /sessions/{id}/holds [get]
func (h *SessionHandler) GetHolds(c *gin.Context) {
	sessionID := c.Param("id")
	c.JSON(http.StatusOK, HoldsResponse{SessionID: sessionID, Holds: nonNilHolds(h.ledger.Holds(sessionID))})
}

func nonNilHolds(holds []domain.Hold) []domain.Hold {
	if holds == nil {
		return []domain.Hold{}
	}
	return holds
}
