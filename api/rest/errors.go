package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/apperr"
	"github.com/kyrhanu/ledger/crafting"
	mw "github.com/kyrhanu/ledger/middleware"
	"go.uber.org/zap"
)

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err as {"error": CODE, ...detail}. Errors without a
// ledger code are logged and reported as INTERNAL.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	e, ok := apperr.From(err)
	if !ok {
		log.Error("request failed",
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Int64("player_id", mw.GetPlayerID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL"})
		return
	}
	body := gin.H{"error": e.Code}

	var short *crafting.ShortfallError
	var unknown *crafting.UnknownCodesError
	var hits *crafting.HitsError
	switch {
	case errors.As(err, &short):
		body["missing"] = short.Missing
	case errors.As(err, &unknown):
		body["codes"] = unknown.Codes
	case errors.As(err, &hits):
		body["min_hits"] = hits.MinHits
	}
	if e.Kind == apperr.Integrity {
		log.Error("catalog integrity", zap.String("code", e.Code), zap.Error(err))
	}
	c.JSON(statusOf(e.Kind), body)
}

func badRequest(c *gin.Context, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code})
}
