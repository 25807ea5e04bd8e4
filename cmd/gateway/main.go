package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/api"
	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/config"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/cart"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/events"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/lock"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/processor"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/telemetry"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/ficmart-checkout/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type paymentEventSink interface {
	application.PaymentEventPublisher
	Close() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting checkout service",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
		"payment_mode", cfg.Payment.Mode,
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, cfg.Primary.Env, logger)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	settings, err := config.NewSettingsStore(cfg.Payment)
	if err != nil {
		logger.Error("invalid payment configuration", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	processors := telemetry.NewInstrumentedProvider(processor.NewProvider(cfg.Stripe.Timeout, logger), metrics)

	orderRepo := postgres.NewOrderRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	var (
		locker    application.Locker    = lock.NewLocalLocker()
		cartStore application.CartStore = cart.Noop{}
		redisDB   *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisDB = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisDB.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		locker = lock.NewRedisLocker(redisDB, cfg.Redis.LockTTL, cfg.Redis.LockRetry, logger)
		cartStore = cart.NewRedisStore(redisDB, cfg.Redis.CartKey)
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	} else {
		logger.Warn("redis not configured; customer lock is per-process and carts are not cleared")
	}

	pubsub, err := events.NewPubSub(cfg.Events, events.NewWatermillLogger(logger))
	if err != nil {
		logger.Error("failed to create event transport", "transport", cfg.Events.Transport, "error", err)
		os.Exit(1)
	}
	lifecycle := events.NewLifecyclePublisher(pubsub.Publisher, cfg.Events.Topic)

	var paymentEvents paymentEventSink = events.NewLogPaymentPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		paymentEvents = events.NewKafkaPaymentPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	}

	var checkoutOpts []services.CheckoutOption
	if cfg.Payment.HoldAbove != "" {
		policy, err := services.HoldAbove(cfg.Payment.HoldAbove)
		if err != nil {
			logger.Error("invalid hold_above", "value", cfg.Payment.HoldAbove, "error", err)
			os.Exit(1)
		}
		checkoutOpts = append(checkoutOpts, services.WithChargePolicy(policy))
	}

	checkoutService := services.NewCheckoutService(
		settings,
		processors,
		orderRepo,
		services.NewTokenizeService(),
		services.NewCustomerService(customerRepo, locker),
		lifecycle,
		paymentEvents,
		cartStore,
		logger,
		checkoutOpts...,
	)
	captureService := services.NewCaptureService(settings, processors, orderRepo, customerRepo, paymentEvents, logger)
	refundService := services.NewRefundService(settings, processors, orderRepo, paymentEvents, logger)
	statusService := services.NewStatusService(orderRepo, lifecycle)
	queryService := services.NewQueryService(orderRepo)

	listener, err := worker.NewLifecycleListener(
		worker.ListenerConfig{Topic: cfg.Events.Topic, PoisonTopic: cfg.Events.PoisonTopic},
		pubsub.Subscriber,
		pubsub.Publisher,
		captureService,
		metrics,
		logger,
	)
	if err != nil {
		logger.Error("failed to create lifecycle listener", "error", err)
		os.Exit(1)
	}
	if cfg.Events.HTTPListenAddr != "" {
		if err := listener.WithWebhook(cfg.Events.HTTPListenAddr, cfg.Events.WebhookSecret); err != nil {
			logger.Error("failed to create webhook subscriber", "error", err)
			os.Exit(1)
		}
	}

	handler, err := newHTTPHandler(ctx, cfg, db, handlers.NewHandlers(
		checkoutService,
		queryService,
		statusService,
		refundService,
		metrics,
		logger,
	), logger)
	if err != nil {
		logger.Error("failed to build http handler", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go func() {
		if err := listener.Run(workerCtx); err != nil {
			logger.Error("lifecycle listener stopped", "error", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.Server.GRPCHealthPort > 0 {
		grpcServer, err = startHealthServer(cfg.Server.GRPCHealthPort, logger)
		if err != nil {
			logger.Error("failed to start grpc health server", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig != syscall.SIGHUP {
			break
		}
		reloadSettings(settings, logger)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	cancelWorkers()
	if err := listener.Close(); err != nil {
		logger.Error("failed to close lifecycle listener", "error", err)
	}
	if err := pubsub.Close(); err != nil {
		logger.Error("failed to close event transport", "error", err)
	}
	if err := paymentEvents.Close(); err != nil {
		logger.Error("failed to close payment event publisher", "error", err)
	}
	if redisDB != nil {
		_ = redisDB.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server exited")
}

func newHTTPHandler(ctx context.Context, cfg *config.Config, db *postgres.DB, h *handlers.Handlers, logger *slog.Logger) (http.Handler, error) {
	doc, err := api.LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	if err := api.RegisterDocs(doc); err != nil {
		return nil, err
	}
	validate, err := middleware.OpenAPIValidator(doc)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.RegisterDocsRoutes(mux)
	h.Register(mux)
	mux.Handle("GET /healthz", handlers.Health(db))
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := validate(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Timeout(cfg.Server.RequestTimeout)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Tracing(cfg.Telemetry.ServiceName)(handler)
	return handler, nil
}

func startHealthServer(port int, logger *slog.Logger) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		logger.Info("grpc health server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc health server error", "error", err)
		}
	}()
	return srv, nil
}

// reloadSettings re-reads the payment section. Checkouts already running keep
// the snapshot they started with.
func reloadSettings(settings *config.SettingsStore, logger *slog.Logger) {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("settings reload failed", "error", err)
		return
	}
	if err := settings.Reload(cfg.Payment); err != nil {
		logger.Error("settings reload rejected", "error", err)
		return
	}
	logger.Info("payment settings reloaded", "mode", cfg.Payment.Mode)
}
