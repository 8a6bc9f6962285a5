package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	mw "github.com/kyrhanu/ledger/middleware"
	"go.uber.org/zap"
)

// InventoryHandler serves a player's items and material balances.
type InventoryHandler struct {
	inv    *inventory.Service
	mats   *materials.Service
	logger *zap.Logger
}

func NewInventoryHandler(inv *inventory.Service, mats *materials.Service, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inv: inv, mats: mats, logger: logger}
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(c *gin.Context) {
	entries, err := h.inv.List(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Get handles GET /api/inventory/:id.
func (h *InventoryHandler) Get(c *gin.Context) {
	rowID, ok := rowParam(c)
	if !ok {
		return
	}
	entry, err := h.inv.Get(c.Request.Context(), mw.GetPlayerID(c), rowID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Equip handles POST /api/inventory/:id/equip.
func (h *InventoryHandler) Equip(c *gin.Context) {
	rowID, ok := rowParam(c)
	if !ok {
		return
	}
	if err := h.inv.Equip(c.Request.Context(), mw.GetPlayerID(c), rowID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Unequip handles POST /api/inventory/:id/unequip.
func (h *InventoryHandler) Unequip(c *gin.Context) {
	rowID, ok := rowParam(c)
	if !ok {
		return
	}
	if err := h.inv.Unequip(c.Request.Context(), mw.GetPlayerID(c), rowID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type unequipSlotRequest struct {
	Slot string `json:"slot"`
}

// UnequipSlot handles POST /api/inventory/unequip-slot.
func (h *InventoryHandler) UnequipSlot(c *gin.Context) {
	var req unequipSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY")
		return
	}
	if err := h.inv.UnequipSlot(c.Request.Context(), mw.GetPlayerID(c), req.Slot); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type consumeRequest struct {
	Qty int `json:"qty"`
}

// Consume handles POST /api/inventory/:id/consume. An empty body uses one unit.
func (h *InventoryHandler) Consume(c *gin.Context) {
	rowID, ok := rowParam(c)
	if !ok {
		return
	}
	req := consumeRequest{Qty: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "INVALID_BODY")
			return
		}
	}
	res, err := h.inv.Consume(c.Request.Context(), mw.GetPlayerID(c), rowID, req.Qty)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Materials handles GET /api/materials.
func (h *InventoryHandler) Materials(c *gin.Context) {
	list, err := h.mats.List(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": list})
}

func rowParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "INVALID_ID")
		return 0, false
	}
	return id, true
}
