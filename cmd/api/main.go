package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel-storefront/internal/client"
	"travel-storefront/internal/config"
	"travel-storefront/internal/logger"
	"travel-storefront/internal/queue"
	"travel-storefront/internal/repository"
	"travel-storefront/internal/server"
	"travel-storefront/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log = log.With(zap.String("env", cfg.Environment.Name))

	store, err := initLocalStore(cfg)
	if err != nil {
		log.Fatal("init local store", zap.String("driver", cfg.Ledger.Driver), zap.Error(err))
	}

	notifier := service.NewNotifier(log)
	session := service.NewSession(log, notifier, cfg.Backend.AccessToken)

	backendClient := client.NewBackendClient(&cfg.Backend, session)
	backendClient.OnUnauthorized(session.Expire)

	publisher := queue.NewPublisher(cfg.RabbitMQ, log)
	ledger := service.NewLedger(store, publisher, log, cfg.Ledger.Key)

	cartStore := service.NewCartStore(backendClient, notifier, log)
	catalogService := service.NewCatalogService(backendClient, log)
	checkoutService := service.NewCheckoutService(
		backendClient,
		cartStore,
		ledger,
		notifier,
		log,
		cfg.Checkout.MaxParallel,
	)
	dashboardService := service.NewDashboardService(backendClient, ledger, log)

	session.OnLogout(func(context.Context) {
		cartStore.Reset()
	})
	session.OnLogout(func(ctx context.Context) {
		if err := ledger.Clear(ctx); err != nil {
			log.Error("clear purchase history on logout", zap.Error(err))
		}
	})
	checkoutService.OnPhase(func(phase service.CheckoutPhase) {
		log.Debug("checkout phase", zap.String("phase", string(phase)))
	})

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(
		session,
		notifier,
		catalogService,
		cartStore,
		checkoutService,
		dashboardService,
		ledger,
	)

	log.Info("Starting HTTP server", zap.String("addr", serverAddr), zap.String("backend", cfg.Backend.BaseURL))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
}

func initLocalStore(cfg *config.Config) (repository.LocalStoreRepository, error) {
	if cfg.Ledger.Driver == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rdb, err := client.InitRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisLocalStoreRepository(rdb), nil
	}

	db, err := client.InitDBClient(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	return repository.NewLocalStoreRepository(db), nil
}
