package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caldermed/chartsync/internal/adapters/cache"
	"github.com/caldermed/chartsync/internal/adapters/database"
	"github.com/caldermed/chartsync/internal/adapters/events"
	"github.com/caldermed/chartsync/internal/adapters/locks"
	"github.com/caldermed/chartsync/internal/adapters/providers/extraction"
	"github.com/caldermed/chartsync/internal/api/handlers"
	"github.com/caldermed/chartsync/internal/api/routes"
	"github.com/caldermed/chartsync/internal/application/reconcile"
	"github.com/caldermed/chartsync/internal/application/services"
	"github.com/caldermed/chartsync/internal/domain/entities"
	domainproviders "github.com/caldermed/chartsync/internal/domain/providers"
	"github.com/caldermed/chartsync/internal/domain/repositories"
	"github.com/caldermed/chartsync/internal/infrastructure/clients/extractor"
	"github.com/caldermed/chartsync/internal/infrastructure/clients/postgres"
	"github.com/caldermed/chartsync/internal/infrastructure/clients/redis"
	"github.com/caldermed/chartsync/internal/infrastructure/observability"
	"github.com/caldermed/chartsync/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Redis backs the cache, the distributed entity locks and the event
	// bus; without it the service falls back to in-process equivalents.
	var redisClient *redis.Client
	if cfg.Processing.StorageBackend != "memory" {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis client: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var chartRepo repositories.ChartRepository
	if cfg.Processing.StorageBackend == "memory" {
		chartRepo = database.NewMemoryChartAdapter()
		log.Println("Using in-memory chart storage")
	} else {
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
		}
		defer pgClient.Close()

		chartRepo = database.NewChartAdapter(pgClient)
		if redisClient != nil {
			cacheProvider := cache.NewRedisAdapter(redisClient)
			chartRepo = database.NewCachedChartAdapter(chartRepo, cacheProvider)
		}
	}

	var locker domainproviders.EntityLocker
	var eventBus domainproviders.EventBus
	if redisClient != nil {
		locker = locks.NewRedisLocker(redisClient, cfg.Processing.LockTTL)
		eventBus = events.NewChartEventBus(redisClient)
	} else {
		locker = locks.NewKeyedLocker()
	}

	var producer domainproviders.FactProducer
	if cfg.Extractor.BaseURL != "" {
		producer = extractor.NewHTTPClient(&cfg.Extractor)
	} else {
		producer = extraction.NewMockProducer()
		log.Println("EXTRACTOR_BASE_URL not set, using mock fact producer")
	}

	engine := reconcile.NewEngine(chartRepo, locker, eventBus, metrics, nil)

	registry := services.NewProcessorRegistry()
	registry.Register(services.NewVitalsProcessor(producer, engine))
	registry.Register(services.NewLabsProcessor(producer, engine))
	registry.Register(services.NewMedicationsProcessor(producer, engine))
	registry.Register(services.NewDiagnosesProcessor(producer, engine))
	registry.Register(services.NewSurgicalHistoryProcessor(producer, engine))
	registry.Register(services.NewImagingProcessor(producer, engine))
	registry.Register(services.NewFamilyHistoryProcessor(producer, engine))
	registry.Register(services.NewSocialHistoryProcessor(producer, engine))
	registry.RegisterStub(entities.CategoryProblems, 90)
	registry.RegisterStub(entities.CategoryAllergies, 100)

	coordinator := services.NewSectionCoordinator(registry, cfg.Processing.TaskTimeout, cfg.Processing.MaxConcurrentTasks, metrics)
	visitHistoryService := services.NewVisitHistoryService(chartRepo)

	processingHandler := handlers.NewChartProcessingHandler(coordinator, registry)
	visitHistoryHandler := handlers.NewVisitHistoryHandler(visitHistoryService)

	router := routes.NewRouter(processingHandler, visitHistoryHandler, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Server stopped")
}
