package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tair/verse-payments/docs"
	"github.com/tair/verse-payments/internal/payment"
	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/handler"
	"github.com/tair/verse-payments/internal/payment/metrics"
	"github.com/tair/verse-payments/internal/payment/webhook"
	"github.com/tair/verse-payments/kafka"
	"github.com/tair/verse-payments/pkg/auth"
	"github.com/tair/verse-payments/pkg/logger"
	"github.com/tair/verse-payments/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the payment HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Logger.Info().
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("storage_driver", cfg.StorageDriver).
		Msg("Starting payment service")

	auth.SetSecret(cfg.JWTSecret)

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open payment store: %w", err)
	}
	defer func() { _ = s.close(context.Background()) }()

	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Logger.Info().Msg("Payment store initialized successfully")

	m := metrics.New(prometheus.DefaultRegisterer)
	infra := payment.Infrastructure{Repository: s.repo, Metrics: m}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, continuing; limiter and dedup fail open")
		}
		infra.Deliveries = webhook.NewDeliveryCache(rdb, cfg.WebhookDedupTTL)
		infra.OrderLimiter = handler.NewRateLimiter(rdb, "orders", cfg.OrderRateLimit, time.Minute)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Kafka unavailable, status events disabled")
		} else {
			defer publisher.Close()
			infra.Publisher = publisher
		}
	}

	paymentHandler, err := payment.InitializeHandler(infra, payment.Settings{
		Currency:      cfg.Currency,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		Gateway: client.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			KeyID:     cfg.Gateway.KeyID,
			KeySecret: cfg.Gateway.KeySecret,
			Timeout:   cfg.Gateway.Timeout,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize handler: %w", err)
	}

	return serveHTTP(paymentHandler, cfg.HTTPPort)
}

func serveHTTP(paymentHandler *handler.PaymentHandler, port string) error {
	router := mux.NewRouter()
	handler.RegisterMiddlewares(router, paymentHandler.GetMiddlewareConfig())
	paymentHandler.RegisterRoutes(router)
	paymentHandler.RegisterHealthCheck(router)
	router.Handle("/metrics", promhttp.Handler())
	handler.RegisterSwaggerDocs(router, httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().
			Str("port", port).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-quit:
	}

	logger.Logger.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
