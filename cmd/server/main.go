package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collaborative-document-service/internal/access"
	"collaborative-document-service/internal/auth"
	"collaborative-document-service/internal/cache"
	"collaborative-document-service/internal/config"
	"collaborative-document-service/internal/db"
	"collaborative-document-service/internal/document"
	"collaborative-document-service/internal/events"
	"collaborative-document-service/internal/history"
	"collaborative-document-service/internal/logger"
	"collaborative-document-service/internal/middleware"
	"collaborative-document-service/internal/realtime"
	"collaborative-document-service/internal/worker"
	rediscache "collaborative-document-service/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// Store and ledger
	var (
		repository document.DocumentRepository
		ledger     history.Ledger
	)
	switch cfg.StoreDriver {
	case "memory":
		repository = document.NewMemoryRepository()
		ledger = history.NewMemoryLedger()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		database, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		defer db.Close(database)

		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("database schema migrated")
		repository = document.NewRepository(database)
		ledger = history.NewLedger(database)
	}

	// Redis backs the cache and, by default, the event streams. An outage,
	// including one at boot, costs cache hits; the client reconnects on its own.
	redisClient := rediscache.Open(cfg.RedisAddress)
	defer redisClient.Close()
	if err := rediscache.Ping(ctx, redisClient); err != nil {
		log.Warn("redis unreachable at startup, cache degrades until it recovers", zap.Error(err))
	}
	cacheLayer := cache.NewLayer(rediscache.NewCache(redisClient), cfg.CacheTTL, cfg.DependencyTimeout, log)

	publisher, err := newPublisher(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	if cfg.EventWorkers > 0 {
		pool := worker.NewWorkerPool(cfg.EventWorkers, 1024, cfg.DependencyTimeout, log)
		defer pool.Shutdown()
		publisher = events.NewAsyncPublisher(publisher, pool)
	}

	docService := document.NewService(document.Deps{
		Repository: repository,
		Cache:      cacheLayer,
		Events:     events.NewEmitter(publisher, cfg.DependencyTimeout, log),
		History:    ledger,
		Policy:     access.Policy{SharedWriteViaAPI: cfg.SharedWriteViaAPI},
		Logger:     log,
		Timeout:    cfg.DependencyTimeout,
	})
	hub := realtime.NewHub(docService, log)
	docService.UseNotifier(hub)

	authMiddleware := &middleware.Auth{Verifier: auth.NewVerifier(cfg.JWTSecret)}
	docHandler := document.NewHandler(docService)

	// Initialize Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}
	allowedOrigin := cfg.FrontendAddress
	if cfg.IsDevelopment() {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
		allowedOrigin = "*"
	} else {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", authMiddleware.AuthMiddleWare(), realtime.NewWSHandler(hub, allowedOrigin, log).ServeWs)
	docHandler.RegisterRoutes(router.Group("/api/v1/documents", authMiddleware.AuthMiddleWare()))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health service
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	serveErr := make(chan error, 2)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("grpc health listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(grpcListener); err != nil {
			serveErr <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}
	log.Info("shutting down server")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("server shutdown complete")
	return nil
}

func newPublisher(ctx context.Context, cfg config.Config, client *goredis.Client, log *zap.Logger) (events.Publisher, error) {
	switch cfg.EventDriver {
	case "sqs":
		return events.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	case "redis":
		return events.NewStreamPublisher(client, cfg.EventStreamMaxLen), nil
	}
	return events.NewLogPublisher(log), nil
}
