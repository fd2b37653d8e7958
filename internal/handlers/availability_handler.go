package handlers

import (
	"net/http"
	"strconv"
	"time"

	"reservation-service/internal/domain"
	"reservation-service/internal/ledger"
	apperrors "reservation-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewAvailabilityHandler(l *ledger.Ledger, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		ledger: l,
		logger: logger,
	}
}

// GetAvailability handles GET /api/v1/availability
// @Summary      Availability of the whole catalog
// @Description  Available-to-promise per item. Items without stock control read "unbounded".
// @Tags         availability
// @Produce      json
// @Success      200  {object}  AvailabilityResponse
// @Router       /availability [get]
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	c.JSON(http.StatusOK, AvailabilityResponse{
		Items:       h.ledger.FullAvailability(),
		GeneratedAt: time.Now().UTC(),
	})
}

// GetItemAvailability handles GET /api/v1/items/:id/availability
// @Summary      Availability of one item
// @Description  For a container item this is the sum over its children.
// @Tags         availability
// @Produce      json
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  ItemAvailabilityResponse
// @Failure      400  {object}  ErrorResponse  "Invalid item id"
// @Failure      404  {object}  ErrorResponse  "Item not found"
// @Router       /items/{id}/availability [get]
func (h *AvailabilityHandler) GetItemAvailability(c *gin.Context) {
	id, ok := parseItemID(c)
	if !ok {
		return
	}

	available, err := h.ledger.AvailableQuantity(id)
	if err != nil {
		c.Error(apperrors.NewItemNotFound(id))
		return
	}
	c.JSON(http.StatusOK, ItemAvailabilityResponse{
		ItemID:    id,
		Available: available.InStock(),
		Quantity:  available,
	})
}

// parseItemID reads the :id path parameter, attaching an error when it is
// not a positive integer.
func parseItemID(c *gin.Context) (domain.ItemID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.Error(apperrors.NewInvalidRequest("invalid item id", "Param: id="+raw))
		return 0, false
	}
	return domain.ItemID(id), true
}

func invalidBody(err error) *apperrors.StandardError {
	return apperrors.NewInvalidRequest("invalid request body", err.Error())
}
