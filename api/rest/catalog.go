package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/cache"
	"github.com/kyrhanu/ledger/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	briefTTL         = time.Minute
	briefCachePrefix = "catalog:brief:"
	briefIndexKey    = "catalog:brief:gen"
)

// CatalogHandler serves name lookups and reloads the catalog seed.
type CatalogHandler struct {
	db       *gorm.DB
	c        cache.Cache
	seedPath string
	logger   *zap.Logger
}

func NewCatalogHandler(db *gorm.DB, c cache.Cache, seedPath string, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{db: db, c: c, seedPath: seedPath, logger: logger}
}

// Brief handles GET /api/items/brief?q=&limit=. Results are cached briefly
// and dropped whenever the catalog is reloaded.
func (h *CatalogHandler) Brief(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	limit, _ := strconv.Atoi(c.Query("limit"))
	ctx := c.Request.Context()

	gen, err := h.c.Get(ctx, briefIndexKey)
	if err != nil {
		if !cache.IsMiss(err) {
			h.logger.Warn("brief cache get failed", zap.Error(err))
		}
		gen = "0"
	}
	key := fmt.Sprintf("%s%s:%d:%s", briefCachePrefix, gen, limit, q)
	if hit, err := h.c.Get(ctx, key); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(hit))
		return
	}

	list, err := catalog.Brief(ctx, h.db, q, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	body, err := json.Marshal(gin.H{"items": list})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.c.Set(ctx, key, string(body), briefTTL); err != nil {
		h.logger.Warn("brief cache set failed", zap.Error(err))
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Reload handles POST /api/admin/catalog/reload.
func (h *CatalogHandler) Reload(c *gin.Context) {
	if h.seedPath == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SEED_NOT_CONFIGURED"})
		return
	}
	seed, err := catalog.LoadSeed(h.seedPath)
	if err != nil {
		h.logger.Error("catalog reload: load", zap.String("path", h.seedPath), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "SEED_INVALID", "detail": err.Error()})
		return
	}
	if err := catalog.Apply(c.Request.Context(), h.db, seed); err != nil {
		respondError(c, h.logger, err)
		return
	}
	gen := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := h.c.Set(c.Request.Context(), briefIndexKey, gen, 0); err != nil {
		h.logger.Warn("brief cache invalidate failed", zap.Error(err))
	}
	h.logger.Info("catalog reloaded",
		zap.Int("items", len(seed.Items)),
		zap.Int("materials", len(seed.Materials)),
		zap.Int("forge_recipes", len(seed.ForgeRecipes)),
		zap.Int("smelt_recipes", len(seed.SmeltRecipes)),
	)
	c.JSON(http.StatusOK, gin.H{
		"ok": true, "items": len(seed.Items), "materials": len(seed.Materials),
		"forge_recipes": len(seed.ForgeRecipes), "smelt_recipes": len(seed.SmeltRecipes),
	})
}
