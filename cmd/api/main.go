package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openmat/gymlink/config"
	"github.com/openmat/gymlink/internal/fetchers"
	"github.com/openmat/gymlink/internal/handlers"
	"github.com/openmat/gymlink/internal/repositories/mastergym"
	"github.com/openmat/gymlink/internal/repositories/pendingmatch"
	"github.com/openmat/gymlink/internal/repositories/sourcegym"
	"github.com/openmat/gymlink/internal/repositories/venuecache"
	"github.com/openmat/gymlink/pkg/database"
	"github.com/openmat/gymlink/pkg/events"
	"github.com/openmat/gymlink/pkg/geocode"
	"github.com/openmat/gymlink/pkg/graph"
	"github.com/openmat/gymlink/pkg/gymsync"
	"github.com/openmat/gymlink/pkg/kafka"
	"github.com/openmat/gymlink/pkg/matching"
	appmiddleware "github.com/openmat/gymlink/pkg/middleware"
	"github.com/openmat/gymlink/pkg/registry"
	"github.com/openmat/gymlink/pkg/scheduler"
	"github.com/openmat/gymlink/pkg/tracing"
	"github.com/openmat/gymlink/pkg/tracing/exporters"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	shutdownTracing, err := initTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to shut down tracing")
		}
	}()

	dbCfg := database.Config{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}

	if err := runMigrations(cfg, dbCfg, logger); err != nil {
		logger.WithError(err).Error("Failed to run database migrations")
		os.Exit(1)
	}

	db, err := database.Connect(ctx, dbCfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	sourceGymRepo := sourcegym.NewRepository(db, logger)
	masterGymRepo := mastergym.NewRepository(db, logger)
	pendingMatchRepo := pendingmatch.NewRepository(db, logger)
	venueCacheRepo := venuecache.NewRepository(db, logger)

	var emitter *events.Emitter
	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	var graphClient *graph.Client
	var linkProjection *graph.LinkProjection
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to graph database")
			os.Exit(1)
		}
		defer graphClient.Close(context.Background())
		linkProjection = graph.NewLinkProjection(graphClient, logger)
	}

	var registryEmitter registry.EventEmitter
	var matchEmitter handlers.MatchEmitter
	var syncEmitter gymsync.MatchEmitter
	if emitter != nil {
		registryEmitter = emitter
		matchEmitter = emitter
		syncEmitter = emitter
	}
	var projector registry.GraphProjector
	if linkProjection != nil {
		projector = linkProjection
	}

	registryService := registry.NewService(masterGymRepo, sourceGymRepo, registryEmitter, projector, logger)

	matchCfg := matching.DefaultConfig()
	matchCfg.AutoLinkThreshold = cfg.AutoLinkThreshold
	matchCfg.PendingThreshold = cfg.PendingThreshold
	matchCfg.CityBoost = cfg.CityBoost
	matchCfg.MaxCandidates = cfg.MaxCandidates
	if len(cfg.SuffixTokens) > 0 {
		matchCfg.SuffixTokens = cfg.SuffixTokens
	}
	matchService := matching.NewService(matchCfg)

	orchestrator := gymsync.NewOrchestrator(
		[]gymsync.Fetcher{
			fetchers.NewIBJJF(cfg.IBJJFBaseURL, logger),
			fetchers.NewJJWL(cfg.JJWLBaseURL, logger),
		},
		sourceGymRepo,
		pendingMatchRepo,
		registryService,
		matchService,
		syncEmitter,
		logger,
	)

	syncScheduler, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.SchedulerEnabled,
		CronSpec: cfg.SchedulerCron,
	}, orchestrator, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create sync scheduler")
		os.Exit(1)
	}
	syncScheduler.Start()
	defer syncScheduler.Stop()

	geocoder := geocode.NewNominatim(geocode.NominatimConfig{
		BaseURL:   cfg.GeocodeBaseURL,
		UserAgent: cfg.GeocodeUserAgent,
		Timeout:   cfg.GeocodeTimeout,
	}, logger)
	venueResolver := geocode.NewResolver(venueCacheRepo, geocoder, geocode.ResolverConfig{
		FailedTTL: cfg.GeocodeFailedTTL,
	}, logger)

	e := echo.New()
	e.HideBanner = true
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(appmiddleware.Context())
	e.Use(appmiddleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = appmiddleware.Error(logger)

	var graphPinger handlers.GraphPinger
	if graphClient != nil {
		graphPinger = graphClient
	}
	health := handlers.NewHealthChecker(db, graphPinger, cfg.Version)
	health.RegisterRoutes(e)

	api := e.Group("/api/v1")
	var graphSources handlers.GraphSourceReader
	if linkProjection != nil {
		graphSources = linkProjection
	}
	handlers.NewMasterGymHandler(registryService, graphSources).RegisterRoutes(api)
	handlers.NewPendingMatchHandler(db, pendingMatchRepo, sourceGymRepo, registryService, matchEmitter).RegisterRoutes(api)
	handlers.NewSyncHandler(orchestrator, sourceGymRepo).RegisterRoutes(api)
	handlers.NewVenueHandler(venueResolver, venueCacheRepo).RegisterRoutes(api)

	go func() {
		health.SetReady(true)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server stopped unexpectedly")
			os.Exit(1)
		}
	}()
	logger.WithFields(map[string]any{"port": cfg.Port, "version": cfg.Version}).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server gracefully")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func initTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}
	if cfg.TracingEnabled {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingOTLPInsecure,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}
	return tracing.Init(ctx, cfg.AppName, exporter)
}

// runMigrations applies schema migrations on a dedicated connection so
// the request pool never sees a partially migrated schema.
func runMigrations(cfg config.Config, dbCfg database.Config, logger ectologger.Logger) error {
	migrationDB, err := sql.Open(cfg.DatabaseDriver, dbCfg.DSN())
	if err != nil {
		return err
	}
	defer migrationDB.Close()

	driver, err := migratepg.WithInstance(migrationDB, &migratepg.Config{})
	if err != nil {
		return err
	}

	migrationService := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
	})
	return migrationService.Migrate(cfg.DatabaseName, driver)
}
