package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/cache"
	"github.com/kyrhanu/ledger/config"
	"github.com/kyrhanu/ledger/crafting"
	"github.com/kyrhanu/ledger/energy"
	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	mw "github.com/kyrhanu/ledger/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps are the services the HTTP surface is built from.
type Deps struct {
	DB        *gorm.DB
	Cache     cache.Cache
	Inventory *inventory.Service
	Materials *materials.Service
	Crafting  *crafting.Service
	Energy    *energy.Regulator
	Security  config.SecurityConfig
	SeedPath  string
	Logger    *zap.Logger
}

// Mount registers every ledger route on r.
func Mount(r *gin.Engine, d Deps) {
	invH := NewInventoryHandler(d.Inventory, d.Materials, d.Logger)
	bsH := NewBlacksmithHandler(d.Crafting, d.Logger)
	enH := NewEnergyHandler(d.Energy, d.Logger)
	catH := NewCatalogHandler(d.DB, d.Cache, d.SeedPath, d.Logger)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := r.Group("/api/admin", mw.IPWhitelist(d.Security.AdminIPs))
	admin.POST("/catalog/reload", catH.Reload)

	api := r.Group("/api", mw.Auth(d.Security, d.Cache))
	if d.Security.RateLimitRPS > 0 {
		api.Use(mw.RateLimit(rate.Limit(d.Security.RateLimitRPS), d.Security.RateLimitBurst))
	}
	{
		invG := api.Group("/inventory")
		invG.GET("", invH.List)
		invG.GET("/:id", invH.Get)
		invG.POST("/:id/equip", invH.Equip)
		invG.POST("/:id/unequip", invH.Unequip)
		invG.POST("/:id/consume", invH.Consume)
		invG.POST("/unequip-slot", invH.UnequipSlot)

		api.GET("/materials", invH.Materials)
		api.GET("/items/brief", catH.Brief)

		bsG := api.Group("/blacksmith")
		bsG.GET("/recipes/status", bsH.RecipesStatus)
		bsG.GET("/smelt/recipes/status", bsH.SmeltStatus)
		bsG.POST("/forge/start", bsH.StartForge)
		bsG.POST("/forge/cancel", bsH.CancelForge)
		bsG.POST("/forge/claim", bsH.ClaimForge)
		bsG.POST("/smelt/start", bsH.StartSmelt)

		enG := api.Group("/energy")
		enG.GET("", enH.Get)
		enG.POST("/spend", enH.Spend)
		enG.POST("/checkin", enH.CheckIn)
	}
}
