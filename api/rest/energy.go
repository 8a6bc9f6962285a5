package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/energy"
	mw "github.com/kyrhanu/ledger/middleware"
	"go.uber.org/zap"
)

type EnergyHandler struct {
	reg    *energy.Regulator
	logger *zap.Logger
}

func NewEnergyHandler(reg *energy.Regulator, logger *zap.Logger) *EnergyHandler {
	return &EnergyHandler{reg: reg, logger: logger}
}

// Get handles GET /api/energy.
func (h *EnergyHandler) Get(c *gin.Context) {
	st, err := h.reg.Get(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type spendRequest struct {
	Amount int `json:"amount"`
}

// Spend handles POST /api/energy/spend.
func (h *EnergyHandler) Spend(c *gin.Context) {
	var req spendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY")
		return
	}
	st, err := h.reg.Spend(c.Request.Context(), mw.GetPlayerID(c), req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CheckIn handles POST /api/energy/checkin: records today's login after
// applying any pending reset.
func (h *EnergyHandler) CheckIn(c *gin.Context) {
	st, err := h.reg.RecordLogin(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
