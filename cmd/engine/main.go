package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"harvestcast/internal/config"
	"harvestcast/internal/consensus"
	cronrunner "harvestcast/internal/cron"
	"harvestcast/internal/db"
	"harvestcast/internal/handler"
	"harvestcast/internal/lifecycle"
	"harvestcast/internal/location"
	"harvestcast/internal/logger"
	gormrepository "harvestcast/internal/repository/gorm"
	"harvestcast/internal/resolver"
	"harvestcast/internal/settlement"
	"harvestcast/internal/wager"
	"harvestcast/internal/weather"
)

func main() {
	cfgPath := os.Getenv("HC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("HC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	catalog := location.CatalogFromConfig(cfg.Locations)
	if err := store.UpsertLocations(context.Background(), catalog); err != nil {
		logger.Fatal("location catalog load failed", zap.Error(err))
	}
	selector, err := location.NewSelector(catalog)
	if err != nil {
		logger.Fatal("location selector init failed", zap.Error(err))
	}

	weatherSvc := weather.NewService(cfg.Weather, nil, logger)
	consensusAgg := consensus.New(cfg.Consensus, nil, logger)

	pool := &wager.Pool{
		Repo:          store,
		Logger:        logger,
		MaxStake:      decimal.NewFromFloat(cfg.Wager.MaxStake),
		BettingBlocks: cfg.Cycle.BettingBlocks,
	}
	outcomeResolver := &resolver.Resolver{
		Repo:              store,
		Consensus:         consensusAgg,
		Pool:              pool,
		Logger:            logger,
		WeatherConfidence: cfg.Resolution.WeatherConfidence,
	}
	settlementProc := &settlement.Processor{
		Repo:      store,
		Logger:    logger,
		HouseTake: decimal.NewFromFloat(cfg.Settlement.HouseTake),
	}

	streamHub := handler.NewStreamHub(logger)

	controller := &lifecycle.Controller{
		Repo:       store,
		Selector:   selector,
		Weather:    weatherSvc,
		Resolver:   outcomeResolver,
		Settlement: settlementProc,
		Entropy: &lifecycle.HTTPEntropySource{
			HTTP:     &http.Client{Timeout: cfg.Cycle.EntropyTimeout},
			Endpoint: cfg.Cycle.EntropyEndpoint,
		},
		Fallback: lifecycle.ClockEntropySource{},
		Events:   streamHub,
		Logger:   logger,
		Config:   cfg.Cycle,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	cycleHandler := &handler.CycleHandler{Repo: store, Pool: pool, Selector: selector}
	cycleHandler.Register(engine)
	wagerHandler := &handler.WagerHandler{Repo: store, Pool: pool}
	wagerHandler.Register(engine)
	locationHandler := &handler.LocationHandler{Repo: store}
	locationHandler.Register(engine)
	resolutionHandler := &handler.ResolutionHandler{Repo: store}
	resolutionHandler.Register(engine)
	streamHub.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.CycleTick, "cycle_tick", controller.Tick); err != nil {
			logger.Fatal("cron register cycle tick failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
