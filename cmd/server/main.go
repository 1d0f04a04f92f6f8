package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/turtacn/astragrid/internal/application"
	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/internal/infrastructure/events"
	"github.com/turtacn/astragrid/internal/infrastructure/monitoring"
	"github.com/turtacn/astragrid/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/astragrid/internal/infrastructure/persistence/redis"
	"github.com/turtacn/astragrid/internal/infrastructure/twin"
	"github.com/turtacn/astragrid/internal/infrastructure/vision"
	"github.com/turtacn/astragrid/internal/interfaces/http/handlers"
	"github.com/turtacn/astragrid/internal/interfaces/http/router"
	"github.com/turtacn/astragrid/pkg/logger"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	// Load config
	loader := config.NewLoader(startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	loader.Watch(func(updated *config.Config) {
		appLogger.SetLevel(updated.Log.Level)
	})

	ctx := context.Background()

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracer", err)
	}
	defer func() { _ = tracing.Shutdown(context.Background()) }()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	// Initialize database
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to connect to database", err)
	}
	defer db.Close()

	checkers := map[string]handlers.HealthChecker{"database": db}

	// Initialize repositories
	var history repository.HistoricalStore = postgres.NewSeriesRepository(db.DB(), cfg.Database.SeriesLimit, appLogger)
	twinRepo := postgres.NewTwinRepository(db.DB(), appLogger)
	scanRepo := postgres.NewScanRepository(db.DB(), appLogger)

	var twinOpts []twin.Option

	// Initialize Redis
	if cfg.Redis.Enabled {
		redisConn := redis.NewRedisConnection(&cfg.Redis, appLogger)
		if err := redisConn.Connect(ctx); err != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		defer redisConn.Close()
		checkers["redis"] = redisConn
		history = redis.NewSeriesCache(redisConn, history, cfg.Redis.SeriesTTL, appLogger)
		twinOpts = append(twinOpts, twin.WithMirror(redis.NewTwinMirror(redisConn, cfg.Redis.TwinTTL, appLogger)))
	}

	// Initialize event publisher
	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaProducer(cfg.Kafka, appLogger)
	} else {
		publisher = events.NewLogPublisher(appLogger)
	}
	defer publisher.Close()
	twinOpts = append(twinOpts, twin.WithPublisher(publisher))
	gateway := twin.NewGateway(twinRepo, appLogger, twinOpts...)

	// Initialize capture source
	var capture service.CaptureSource
	switch cfg.Vision.Mode {
	case "http":
		capture = vision.NewHTTPSource(cfg.Vision, appLogger)
	default:
		capture = vision.NewSimulatedSource(cfg.Vision.Seed)
	}

	// Initialize pipeline stages
	var reasonerOpts []service.RiskAssessorOption
	if !cfg.Pipeline.DeterministicTTF {
		reasonerOpts = append(reasonerOpts, service.WithTimeToFailure(service.NewSampledTimeToFailure(cfg.Pipeline.Seed)))
	}
	if cfg.Pipeline.DeriveConfidence {
		reasonerOpts = append(reasonerOpts, service.WithDerivedConfidence())
	}
	auditor, err := service.NewComplianceAuditor(appLogger, cfg.Pipeline.ExtendedCompliance)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to load compliance rule table", err)
	}

	orchestrator := application.NewOrchestrator(pipelineConfig(cfg.Pipeline), application.Dependencies{
		Capture:   capture,
		Extractor: service.NewRuleExtractor(appLogger),
		Reasoner:  service.NewRuleRiskReasoner(appLogger, reasonerOpts...),
		Validator: auditor,
		Twin:      gateway,
		History:   history,
		Scans:     scanRepo,
		Metrics:   monitoring.NewMetricsAdapter(metrics),
		Logger:    appLogger,
	})
	orchestrator.Start(ctx)

	// Initialize HTTP surface
	httpRouter := router.NewRouter(&cfg.Server, router.Handlers{
		Health: handlers.NewHealthHandler(checkers, appLogger),
		Scans:  handlers.NewScanHandler(orchestrator, appLogger),
		Agents: handlers.NewAgentHandler(orchestrator, cfg.WebSocket, appLogger),
		Twin:   handlers.NewTwinHandler(gateway, auditor),
	}, tracing.Tracer(), metrics, registry, appLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpRouter.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLogger.Info(ctx, "Shutdown signal received", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			appLogger.Error(ctx, "HTTP server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpRouter.Stop(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Server forced to shutdown", err)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Orchestrator shutdown incomplete", err)
	}
	appLogger.Info(shutdownCtx, "Server stopped")
}

func pipelineConfig(p config.PipelineConfig) application.Config {
	return application.Config{
		Workers:                 p.Workers,
		QueueSize:               p.QueueSize,
		RetryBudget:             p.RetryBudget,
		StageTimeout:            p.StageTimeout,
		BackoffInitial:          p.BackoffInitial,
		BackoffMax:              p.BackoffMax,
		SeriesWindow:            p.SeriesWindow,
		DefaultComponentCount:   p.DefaultComponentCount,
		ArchiveTTL:              p.ArchiveTTL,
		AcceptAfterRescanBudget: p.AcceptAfterRescanBudget,
	}
}
