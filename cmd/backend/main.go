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

	"hatchery-backend/internal"
	"hatchery-backend/internal/config"
	"hatchery-backend/internal/cors"
	"hatchery-backend/internal/partition"
	"hatchery-backend/internal/redis"
	"hatchery-backend/internal/slurm"
	"hatchery-backend/internal/spawn"
	"hatchery-backend/internal/system"
	"hatchery-backend/internal/trace"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "hatchery-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
	}

	cfg, cfgLog := config.Load()
	err := cfg.Validate()
	if err != nil {
		if errors.Is(err, config.ErrPartitionsSourceRequired) {
			title := "Partition catalogue is required"
			message := "Please set the PARTITIONS_SOURCE environment variable or provide a config file with the partitions_source key."
			message = EarlyApplicationFailed(title, message)
			log.Fatal(message)
		} else {
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	cfgLog.FlushToZap(logger)

	logger.Info("Application initialization", zap.Bool("debug", cfg.Debug), zap.String("host", cfg.Host), zap.String("port", cfg.Port))

	catalogue, err := partition.LoadCatalogue(cfg.PartitionsSource)
	if err != nil {
		logger.Fatal("Failed to load partition catalogue", zap.String("source", cfg.PartitionsSource), zap.Error(err))
	}
	logger.Info("Loaded partition catalogue", zap.String("source", cfg.PartitionsSource), zap.Int("partitions", len(catalogue.Partitions)))

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()

	columns, err := slurm.ParseColumns(cfg.StatusColumns)
	if err != nil {
		logger.Fatal("Failed to parse status column layout", zap.Strings("columns", cfg.StatusColumns), zap.Error(err))
	}

	parser, err := slurm.NewParser(logger, columns)
	if err != nil {
		logger.Fatal("Failed to initialize status parser", zap.Error(err))
	}

	runner, err := initRunner(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize status runner", zap.Error(err))
	}

	var statusCache slurm.Cache
	if cfg.RedisURL != "" && cfg.StatusCacheTTLSeconds > 0 {
		statusCache = redis.NewService(logger, cfg.RedisURL, time.Duration(cfg.StatusCacheTTLSeconds)*time.Second)
		logger.Info("Status caching enabled", zap.String("redis_url", cfg.RedisURL), zap.Int("ttl_seconds", cfg.StatusCacheTTLSeconds))
	}

	// Service
	slurmService := slurm.NewService(logger, runner, parser, statusCache, cfg.StatusCommand, time.Duration(cfg.StatusTimeoutSeconds)*time.Second)
	partitionService := partition.NewService(logger, catalogue, slurmService)
	builder := spawn.NewBuilder(spawn.BuilderOptions{
		SingleuserCommand: cfg.SingleuserCommand,
		ContainerExec:     cfg.ContainerExec,
		ContainerSuffix:   cfg.ContainerSuffix,
		BasePrologue:      cfg.BasePrologue,
		KeepEnvironment:   cfg.KeepEnvironment,
	})
	spawnService := spawn.NewService(logger, validator, partitionService, builder)

	// Handler
	partitionHandler := partition.NewHandler(logger, problemWriter, partitionService)
	spawnHandler := spawn.NewHandler(logger, problemWriter, spawnService)
	systemHandler := system.NewHandler(logger, slurmService, system.BuildInfo{
		AppName:    AppName,
		Version:    Version,
		BuildTime:  BuildTime,
		CommitHash: CommitHash,
	}, problemWriter)

	// Basic Middleware
	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	recovered := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	traced := recovered.Append(traceMiddleware.TraceMiddleWare)
	routed := traced.Append(corsMiddleware.HandlerFunc)

	// HTTP Server
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/partitions", routed.HandlerFunc(partitionHandler.ListPartitionsHandler))
	mux.HandleFunc("GET /api/partitions/{partition}", routed.HandlerFunc(partitionHandler.GetPartitionHandler))

	mux.HandleFunc("POST /api/spawns", routed.HandlerFunc(spawnHandler.CreateSpawnHandler))
	mux.HandleFunc("POST /api/spawns/validations", routed.HandlerFunc(spawnHandler.ValidateSpawnHandler))

	mux.HandleFunc("GET /api/system/info", routed.HandlerFunc(systemHandler.GetSystemInfoHandler))
	mux.HandleFunc("DELETE /api/system/cache", routed.HandlerFunc(systemHandler.InvalidateCacheHandler))

	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}
	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

// initRunner picks where the status command runs: over ssh when a login node
// is configured, locally otherwise.
func initRunner(cfg *config.Config, logger *zap.Logger) (slurm.Runner, error) {
	if cfg.SSHHost == "" {
		return slurm.NewExecRunner(), nil
	}

	privateKey, err := os.ReadFile(cfg.SSHPrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read ssh private key: %w", err)
	}

	if cfg.SSHKnownHostsFile == "" {
		logger.Warn("No ssh known hosts file configured, host keys will not be verified", zap.String("host", cfg.SSHHost))
	}

	return slurm.NewSSHRunner(cfg.SSHHost, cfg.SSHPort, cfg.SSHUser, privateKey, cfg.SSHKnownHostsFile)
}

func initOpenTelemetry(appName, version, buildTime, commitHash, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("hatchery")
	serviceCommitHash := semconv.ServiceVersionKey.String(commitHash)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceCommitHash,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
		options = append(options, sdktrace.WithSpanProcessor(bsp))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	result = fmt.Sprintf(result, title, action)
	return result
}
