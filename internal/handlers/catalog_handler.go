package handlers

import (
	"net/http"

	"reservation-service/internal/commands"
	"reservation-service/internal/domain"
	"reservation-service/internal/ledger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler serves operator edits of the catalog.
type CatalogHandler struct {
	service *commands.Service
	ledger  *ledger.Ledger
	logger  *zap.Logger
}

func NewCatalogHandler(service *commands.Service, l *ledger.Ledger, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		ledger:  l,
		logger:  logger,
	}
}

// UpsertItem handles PUT /api/v1/catalog/items/:id
// @Summary      Create or replace a catalog item
// @Description  Applies the item to the live catalog, persists it and re-broadcasts availability to every session.
// @Description  Shrinking committed stock below what sessions hold keeps the holds and reports the pool as inconsistent.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                true  "Item ID"
// @Param        request  body      UpsertItemRequest  true  "Item fields"
// @Success      200  {object}  UpsertItemResponse
// @Failure      400  {object}  ErrorResponse  "Invalid request"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      422  {object}  ErrorResponse  "Invalid parent"
// @Failure      500  {object}  ErrorResponse  "Catalog store failure"
// @Router       /catalog/items/{id} [put]
func (h *CatalogHandler) UpsertItem(c *gin.Context) {
	id, ok := parseItemID(c)
	if !ok {
		return
	}

	var req UpsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid upsert request", zap.Error(err))
		c.Error(invalidBody(err))
		return
	}

	cmd := commands.UpsertItemCommand{
		ID:                id,
		Name:              req.Name,
		StockEnabled:      req.StockEnabled,
		CommittedQuantity: req.CommittedQuantity,
		StockSyncEnabled:  req.StockSyncEnabled,
	}
	if req.ParentID != nil {
		cmd.ParentID = domain.ParentRef(domain.ItemID(*req.ParentID))
	}

	update, err := h.service.UpsertItem(c.Request.Context(), cmd)
	if err != nil {
		c.Error(err)
		return
	}

	item, _ := h.ledger.Item(id)
	h.logger.Info("Catalog item upserted",
		zap.Int64("item_id", int64(id)),
		zap.Bool("created", update.Created),
		zap.String("username", c.GetString("username")),
	)
	c.JSON(http.StatusOK, UpsertItemResponse{
		Item:            toCatalogItemResponse(item),
		Created:         update.Created,
		Affected:        nonNilIDs(update.Affected),
		Inconsistencies: update.Inconsistencies,
		DroppedHolds:    len(update.DroppedHolds),
	})
}

// DeleteItem handles DELETE /api/v1/catalog/items/:id
// @Summary      Delete a catalog item
// @Description  Drops every hold on the item and detaches its children, which become top-level items.
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  DeleteItemResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Unknown item"
// @Router       /catalog/items/{id} [delete]
func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	id, ok := parseItemID(c)
	if !ok {
		return
	}

	update, err := h.service.DeleteItem(c.Request.Context(), commands.DeleteItemCommand{ID: id})
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Info("Catalog item deleted",
		zap.Int64("item_id", int64(id)),
		zap.Int("dropped_holds", len(update.DroppedHolds)),
		zap.String("username", c.GetString("username")),
	)
	c.JSON(http.StatusOK, DeleteItemResponse{
		ItemID:       id,
		DroppedHolds: len(update.DroppedHolds),
		Detached:     nonNilIDs(update.Detached),
	})
}

// ListItems handles GET /api/v1/catalog/items
// @Summary      List catalog items
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CatalogItemsResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /catalog/items [get]
func (h *CatalogHandler) ListItems(c *gin.Context) {
	items := h.ledger.Items()
	out := make([]CatalogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toCatalogItemResponse(item))
	}
	c.JSON(http.StatusOK, CatalogItemsResponse{Items: out})
}

// ListInconsistencies handles GET /api/v1/catalog/inconsistencies
// @Summary      Pools holding more than they have
// @Description  Pools whose committed quantity dropped below what sessions hold. New reservations on them see zero until holds drain.
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  InconsistenciesResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /catalog/inconsistencies [get]
func (h *CatalogHandler) ListInconsistencies(c *gin.Context) {
	list := h.ledger.Inconsistencies()
	if list == nil {
		list = []domain.CatalogInconsistency{}
	}
	c.JSON(http.StatusOK, InconsistenciesResponse{Inconsistencies: list})
}

func nonNilIDs(ids []domain.ItemID) []domain.ItemID {
	if ids == nil {
		return []domain.ItemID{}
	}
	return ids
}
