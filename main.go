package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kyrhanu/ledger/api/rest"
	"github.com/kyrhanu/ledger/audit"
	"github.com/kyrhanu/ledger/cache"
	"github.com/kyrhanu/ledger/catalog"
	"github.com/kyrhanu/ledger/config"
	"github.com/kyrhanu/ledger/crafting"
	dbadapter "github.com/kyrhanu/ledger/db"
	"github.com/kyrhanu/ledger/energy"
	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	"github.com/kyrhanu/ledger/metrics"
	mw "github.com/kyrhanu/ledger/middleware"
	"github.com/kyrhanu/ledger/model"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret is not set")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Catalog seed ----
	if cfg.Seed.Path != "" {
		seed, err := catalog.LoadSeed(cfg.Seed.Path)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if err := catalog.Apply(context.Background(), db, seed); err != nil {
			log.Fatalf("seed apply: %v", err)
		}
		logger.Info("catalog seeded",
			zap.String("path", cfg.Seed.Path),
			zap.Int("items", len(seed.Items)),
			zap.Int("materials", len(seed.Materials)),
			zap.Int("forge_recipes", len(seed.ForgeRecipes)),
			zap.Int("smelt_recipes", len(seed.SmeltRecipes)),
		)
	}

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)

	// ---- Ledger services ----
	reg := energy.NewRegulator(db, cfg.Energy.Location(), logger)
	inv := inventory.NewService(db, reg, logger)
	mats := materials.NewService(db, logger)
	craft := crafting.NewService(db, inv, mats, reg, metrics.NewStore(db), auditSvc, crafting.Options{
		MinClaimElapsed: cfg.Crafting.MinClaimElapsed,
		MinHitRatio:     cfg.Crafting.MinHitRatio,
		ForgeEnergyCost: cfg.Crafting.ForgeEnergyCost,
		SmeltEnergyCost: cfg.Crafting.SmeltEnergyCost,
	}, logger)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	apirest.Mount(r, apirest.Deps{
		DB:        db,
		Cache:     c,
		Inventory: inv,
		Materials: mats,
		Crafting:  craft,
		Energy:    reg,
		Security:  cfg.Security,
		SeedPath:  cfg.Seed.Path,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	auditSvc.Stop(ctx)
}
