package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/config"
	storefrontgrpc "github.com/fjod/go_storefront/internal/grpc"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/journal"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/order"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/user"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	log.Info().Msg("storefront starting...")

	var wg sync.WaitGroup
	ctx := context.Background()

	// Database setup
	port, err := strconv.Atoi(cfg.DBPort)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DB_PORT")
	}
	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              port,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	cartCache := cache.NewRedisCache(redisClient)

	mongoDB, err := journal.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoDB.Client().Disconnect(context.Background())
	captures := journal.NewMongoJournal(mongoDB)
	if err := captures.CreateIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create journal indexes")
	}

	gateway := payment.NewClient(payment.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Currency:     cfg.PayPalCurrency,
		Timeout:      cfg.PaymentTimeout,
	}, log)

	// Services
	cartService := cart.NewService(repo, cartCache, cfg.Pricing, log)
	orderService := order.NewService(repo, cartService, gateway, captures, order.Config{
		PageSize:      cfg.OrdersPageSize,
		AdminPageSize: cfg.AdminPageSize,
	}, log)
	userService := user.NewService(repo, cfg.AdminPageSize, log)
	catalogService := catalog.NewService(repo, catalog.Config{
		LatestLimit: cfg.LatestProductLimit,
		PageSize:    cfg.AdminPageSize,
	}, log)

	workersCtx, workersCancel := context.WithCancel(context.Background())

	// Outbox relay
	writer := publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
	poller := publisher.NewOutboxPoller(repo, writer, cfg.OutboxInterval, cfg.OutboxBatchSize, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(workersCtx)
	}()

	// gRPC health
	healthServer := storefrontgrpc.NewHealthServer(map[string]storefrontgrpc.Pinger{
		"postgres": repo,
		"redis":    cartCache,
		"mongodb":  captures,
	}, cfg.HealthInterval, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		healthServer.Monitor(workersCtx)
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("health service listening")
		if err := healthServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	// HTTP API
	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(cartService),
		Orders:   h.NewOrdersHandler(orderService),
		Users:    h.NewUserHandler(userService),
		Products: h.NewProductHandler(catalogService),
		Admin:    h.NewAdminHandler(orderService, userService, catalogService),
	}, log, h.RouterConfig{
		Timeout:     cfg.RequestTimeout,
		MaxBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down storefront...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	healthServer.GracefulStop()
	workersCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info().Msg("workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("workers didn't stop in time")
	}

	if err := writer.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka writer")
	}
	log.Info().Msg("storefront stopped")
}
