package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/datasync/libs/config"
	"github.com/md-rashed-zaman/datasync/libs/httpx"
	"github.com/md-rashed-zaman/datasync/libs/kafkax"
	"github.com/md-rashed-zaman/datasync/libs/lockx"
	otelx "github.com/md-rashed-zaman/datasync/libs/otel"
	"github.com/md-rashed-zaman/datasync/libs/runtime"
	producercfg "github.com/md-rashed-zaman/datasync/services/producer-service/internal/config"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/metrics"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/pipeline"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/publisher"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/scheduler"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := producercfg.Load(config.String("PRODUCER_CONFIG_FILE", ""))
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	metrics.Register(prometheus.DefaultRegisterer)

	pub, busCheck, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Error("publisher setup failed", "driver", cfg.Bus.Driver, "err", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pub.Close(flushCtx); err != nil {
			logger.Error("publisher close failed", "err", err)
		}
	}()

	retry := upstream.RetryPolicy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
		MaxDelay:     cfg.Retry.MaxDelay,
	}
	crmClient := upstream.New(upstream.Config{
		Name:    "crm",
		BaseURL: cfg.CRM.BaseURL,
		Path:    cfg.CRM.Path,
		Timeout: cfg.HTTP.Timeout,
		Retry:   retry,
	}, logger)
	inventoryClient := upstream.New(upstream.Config{
		Name:    "inventory",
		BaseURL: cfg.Inventory.BaseURL,
		Path:    cfg.Inventory.Path,
		Timeout: cfg.HTTP.Timeout,
		Retry:   retry,
	}, logger)

	customerPipeline := pipeline.NewCustomer(cfg.Topics.Customer, crmClient, pub, logger)
	inventoryPipeline := pipeline.NewInventory(cfg.Topics.Inventory, inventoryClient, pub, logger)

	checks := []runtime.ReadyCheck{busCheck}
	schedulerCfg := scheduler.Config{
		FixedDelay:   cfg.Scheduler.FixedDelay(),
		InitialDelay: cfg.Scheduler.InitialDelay(),
	}
	if cfg.Lease.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Lease.RedisAddr})
		defer rdb.Close()
		lease, err := lockx.NewLease(rdb, cfg.Lease.Key, cfg.Lease.TTL)
		if err != nil {
			logger.Error("tick lease setup failed", "err", err)
			os.Exit(1)
		}
		schedulerCfg.Lease = lease
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: lockx.ReadyCheck(rdb)})
	}

	sched, err := scheduler.New(logger, schedulerCfg, customerPipeline, inventoryPipeline)
	if err != nil {
		logger.Error("scheduler setup failed", "err", err)
		os.Exit(1)
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	mux := runtime.NewAdminMux(checks, runtime.Route{Pattern: "/metrics", Handler: metrics.Handler()})
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, "/healthz", "/metrics"),
		httpx.WithTimeout(5*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "admin")
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	<-schedDone
	logger.Info("producer stopped")
}

func newPublisher(ctx context.Context, cfg *producercfg.Config, logger *slog.Logger) (publisher.Publisher, runtime.ReadyCheck, error) {
	switch cfg.Bus.Driver {
	case producercfg.DriverNATS:
		p, err := publisher.NewNATS(ctx, publisher.NATSConfig{
			URL:      cfg.NATS.URL,
			Name:     cfg.ServiceName,
			Stream:   cfg.NATS.Stream,
			Subjects: []string{cfg.Topics.Customer, cfg.Topics.Inventory},
		}, logger)
		if err != nil {
			return nil, runtime.ReadyCheck{}, err
		}
		return p, runtime.ReadyCheck{Name: "nats", Check: p.ReadyCheck()}, nil
	default:
		brokers := kafkax.SplitBrokers(cfg.Kafka.Brokers)
		p, err := publisher.NewKafka(publisher.KafkaConfig{
			Brokers:          brokers,
			ClientID:         cfg.Kafka.ClientID,
			BatchTimeout:     cfg.Kafka.BatchTimeout,
			AutoCreateTopics: cfg.Kafka.AutoCreateTopics,
		}, logger)
		if err != nil {
			return nil, runtime.ReadyCheck{}, err
		}
		return p, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)}, nil
	}
}
