package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reservation-service/internal/auth"
	"reservation-service/internal/broadcast"
	"reservation-service/internal/cache"
	"reservation-service/internal/clock"
	"reservation-service/internal/commands"
	"reservation-service/internal/config"
	"reservation-service/internal/events"
	"reservation-service/internal/handlers"
	"reservation-service/internal/kafka"
	"reservation-service/internal/ledger"
	"reservation-service/internal/repository"
	"reservation-service/internal/sweeper"
	"reservation-service/pkg/logger"
	"reservation-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "reservation-service/docs" // Import docs for Swagger
)

// @title           Reservation Service API
// @version         1.0
// @description     Live stock reservations for concurrent storefront sessions
// @termsOfService  http://swagger.io/terms/

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)
	defer appLogger.Sync()

	appLogger.Info("Starting reservation service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.Duration("hold_ttl", cfg.HoldTTL),
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.Duration("broadcast_delay", cfg.BroadcastDelay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error("Service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	appLogger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	store, err := openCatalogStore(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := store.LoadItems(ctx)
	if err != nil {
		return err
	}

	clk := clock.NewSystem()
	l := ledger.New(appLogger, ledger.WithClock(clk))
	if err := l.LoadCatalog(items); err != nil {
		return err
	}
	appLogger.Info("Catalog loaded", zap.Int("items", len(items)))

	publisher := newPublisher(cfg, appLogger)
	defer publisher.Close()

	sinks := []broadcast.Sink{broadcast.NewEventSink(publisher)}
	var requestIDStore middleware.RequestIDStore
	if cfg.UseCache {
		c := cache.NewCache(cfg, appLogger)
		defer c.Close()
		// mirror entries live until the next snapshot replaces them
		sinks = append(sinks, broadcast.NewCacheSink(cache.NewAvailabilityMirror(c, 0)))
		requestIDStore = cache.NewRequestIDStore(c)
	} else {
		memStore := middleware.NewInMemoryRequestIDStore()
		defer memStore.Close()
		requestIDStore = memStore
	}

	hub := broadcast.NewHub(cfg.SessionBuffer, appLogger)
	gateway := broadcast.NewGateway(l, hub, appLogger,
		broadcast.WithDelay(cfg.BroadcastDelay),
		broadcast.WithSinks(sinks...),
		broadcast.WithGatewayClock(clk),
	)
	l.SetNotifier(gateway)

	service := commands.NewService(l, gateway, store, publisher, clk, appLogger)
	sw := sweeper.New(l, gateway.IsConnected, publisher, cfg.HoldTTL, cfg.SweepInterval, appLogger, sweeper.WithClock(clk))

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, appLogger)
	routes := handlers.Routes{
		Sessions:     handlers.NewSessionHandler(service, gateway, sw, l, appLogger),
		Availability: handlers.NewAvailabilityHandler(l, appLogger),
		Catalog:      handlers.NewCatalogHandler(service, l, appLogger),
		Health:       handlers.NewHealthHandler(l, gateway, store, appLogger),
		Auth:         auth.NewAuthHandler(jwtManager, cfg.OperatorUsername, cfg.OperatorPassword, appLogger),
		Operator:     middleware.AuthMiddleware(jwtManager, appLogger),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(cfg, appLogger, requestIDStore, routes),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return gateway.Run(gctx) })
	g.Go(func() error { return sw.Run(gctx) })

	if cfg.UseKafka {
		consumer, err := kafka.NewConsumer(cfg, kafka.NewCatalogProcessor(service, appLogger), appLogger)
		if err != nil {
			// catalog edits still arrive over HTTP
			appLogger.Warn("Catalog consumer disabled", zap.Error(err))
		} else {
			defer consumer.Close()
			g.Go(func() error { return consumer.Start(gctx) })
		}
	}

	g.Go(func() error {
		appLogger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// streams never finish on their own; Shutdown would wait for them
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, appLogger *zap.Logger, requestIDStore middleware.RequestIDStore, routes handlers.Routes) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// CORS first so preflight requests short-circuit
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(middleware.IdempotencyMiddleware(requestIDStore, appLogger, cfg.IdempotencyTTL))
	router.Use(middleware.ErrorHandler(appLogger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	routes.Register(router)
	return router
}

func openCatalogStore(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (repository.CatalogStore, error) {
	if cfg.CatalogDriver == "postgres" {
		store, err := repository.NewPostgresCatalogStore(ctx, cfg.DatabaseURL, appLogger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := repository.NewSQLiteCatalogStore(cfg.SQLitePath, appLogger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newPublisher(cfg *config.Config, appLogger *zap.Logger) events.EventPublisher {
	if !cfg.UseKafka {
		return events.NewInMemoryEventPublisher(appLogger)
	}
	publisher, err := events.NewKafkaEventPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Failed to initialize Kafka publisher, using in-memory fallback", zap.Error(err))
		return events.NewInMemoryEventPublisher(appLogger)
	}
	return publisher
}
