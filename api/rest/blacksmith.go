package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/crafting"
	mw "github.com/kyrhanu/ledger/middleware"
	"go.uber.org/zap"
)

// BlacksmithHandler exposes recipe status, the forge session lifecycle and smelting.
type BlacksmithHandler struct {
	craft  *crafting.Service
	logger *zap.Logger
}

func NewBlacksmithHandler(craft *crafting.Service, logger *zap.Logger) *BlacksmithHandler {
	return &BlacksmithHandler{craft: craft, logger: logger}
}

// RecipesStatus handles GET /api/blacksmith/recipes/status.
func (h *BlacksmithHandler) RecipesStatus(c *gin.Context) {
	list, err := h.craft.ForgeStatus(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list})
}

// SmeltStatus handles GET /api/blacksmith/smelt/recipes/status.
func (h *BlacksmithHandler) SmeltStatus(c *gin.Context) {
	list, err := h.craft.SmeltStatus(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list})
}

type recipeRequest struct {
	RecipeCode string `json:"recipe_code"`
}

type sessionRequest struct {
	ForgeID      int64           `json:"forge_id"`
	RecipeCode   string          `json:"recipe_code"`
	ClientReport json.RawMessage `json:"client_report"`
}

// StartForge handles POST /api/blacksmith/forge/start.
func (h *BlacksmithHandler) StartForge(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY")
		return
	}
	res, err := h.craft.StartForge(c.Request.Context(), mw.GetPlayerID(c), req.RecipeCode)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelForge handles POST /api/blacksmith/forge/cancel.
func (h *BlacksmithHandler) CancelForge(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY")
		return
	}
	res, err := h.craft.CancelForge(c.Request.Context(), mw.GetPlayerID(c), req.ForgeID, req.RecipeCode, req.ClientReport)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "refunded": res.Refunded})
}

// ClaimForge handles POST /api/blacksmith/forge/claim.
func (h *BlacksmithHandler) ClaimForge(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY")
		return
	}
	res, err := h.craft.ClaimForge(c.Request.Context(), mw.GetPlayerID(c), req.ForgeID, req.RecipeCode, req.ClientReport)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "item_code": res.ItemCode, "kind": res.Kind, "amount": res.Amount})
}

// StartSmelt handles POST /api/blacksmith/smelt/start.
func (h *BlacksmithHandler) StartSmelt(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY")
		return
	}
	res, err := h.craft.StartSmelt(c.Request.Context(), mw.GetPlayerID(c), req.RecipeCode)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok": true, "recipe_code": res.RecipeCode, "item_code": res.ItemCode,
		"item_name": res.ItemName, "item_kind": res.ItemKind, "amount": res.Amount,
	})
}
