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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"ifrs17/internal/audit"
	"ifrs17/internal/compare"
	"ifrs17/internal/config"
	cronrunner "ifrs17/internal/cron"
	"ifrs17/internal/db"
	"ifrs17/internal/engine"
	"ifrs17/internal/handler"
	"ifrs17/internal/insight"
	"ifrs17/internal/logger"
	gormrepository "ifrs17/internal/repository/gorm"
	"ifrs17/internal/scriptrunner"
	"ifrs17/internal/service"

	_ "ifrs17/docs"
)

func main() {
	cfgPath := os.Getenv("IFRS17_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("IFRS17_ENV_ONLY"); envOnlyRaw != "" {
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

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Engine.WorkDir, 0o755); err != nil {
		logger.Fatal("engine work dir unavailable", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	runner := &scriptrunner.Runner{
		WorkDir:     cfg.Engine.WorkDir,
		Interpreter: "python3",
		Timeout:     cfg.Engine.ScriptTimeout,
		Logger:      logger,
	}
	recorder := &audit.Recorder{
		Repo:          store,
		Logger:        logger,
		EngineVersion: cfg.Engine.EngineVersion,
	}
	orchestrator := &engine.Orchestrator{
		Repo: store,
		Conversion: &engine.ConversionStage{
			Runner: runner,
			Logger: logger,
			Mode:   cfg.Engine.ConversionMode,
		},
		Calculation: &engine.CalculationStage{
			Runner:    runner,
			ScriptDir: cfg.Engine.ScriptDir,
			Logger:    logger,
		},
		Audit:         recorder,
		Logger:        logger,
		EngineVersion: cfg.Engine.EngineVersion,
	}

	var narrator insight.Generator
	if cfg.Insight.Enabled {
		narrator = insight.NewClient(cfg.Insight)
		logger.Info("insight narratives enabled", zap.String("model", cfg.Insight.Model))
	}
	comparator := &compare.Comparator{Repo: store, Insight: narrator, Logger: logger}

	lockSvc := &service.ModelLockService{Repo: store, Logger: logger, LockTTL: cfg.Cron.LockTTL}
	submissionSvc := &service.SubmissionService{Repo: store, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(router)
	modelHandler := &handler.ModelDefinitionHandler{Repo: store, Locks: lockSvc, Logger: logger}
	modelHandler.Register(router)
	refHandler := &handler.ReferenceHandler{Repo: store, Logger: logger}
	refHandler.Register(router)
	configHandler := &handler.EngineConfigHandler{Repo: store, Logger: logger}
	configHandler.Register(router)
	reportHandler := &handler.ReportHandler{
		Repo:          store,
		Orchestrator:  orchestrator,
		ExportMaxRows: cfg.Export.MaxRows,
		Logger:        logger,
	}
	reportHandler.Register(router)
	compareHandler := &handler.CompareHandler{Comparator: comparator, Logger: logger}
	compareHandler.Register(router)
	submissionHandler := &handler.SubmissionHandler{Repo: store, Service: submissionSvc, Logger: logger}
	submissionHandler.Register(router)
	pipelineHandler := &handler.PipelineHandler{Repo: store, Logger: logger}
	pipelineHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.LockSweep, lockSvc.SweepStale); err != nil {
			logger.Warn("failed to schedule lock sweep", zap.Error(err))
		}
		sweep := cronrunner.SweepWorkDir(logger, cfg.Engine.WorkDir, cfg.Cron.WorkDirTTL)
		if _, err := cronRunner.Add(cfg.Cron.WorkDirSweep, sweep); err != nil {
			logger.Warn("failed to schedule work dir sweep", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

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
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Actor")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
