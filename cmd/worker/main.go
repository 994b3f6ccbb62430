package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uroflux/intake-api/internal/repository/postgres"
	"github.com/uroflux/intake-api/pkg/messaging/redis"
	"github.com/uroflux/intake-api/pkg/metrics"
	"github.com/uroflux/intake-api/pkg/worker"
)

// workerConfig is sourced from the environment with the UROFLUX prefix.
type workerConfig struct {
	DatabaseHost     string        `envconfig:"DATABASE_HOST" required:"true"`
	DatabasePort     int           `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseUser     string        `envconfig:"DATABASE_USER" required:"true"`
	DatabasePassword string        `envconfig:"DATABASE_PASSWORD"`
	DatabaseName     string        `envconfig:"DATABASE_NAME" required:"true"`
	DatabaseSSLMode  string        `envconfig:"DATABASE_SSLMODE" default:"disable"`
	RedisURL         string        `envconfig:"REDIS_URL" required:"true"`
	Channel          string        `envconfig:"OUTBOX_CHANNEL" default:"exam-events"`
	BatchSize        int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval     time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetainProcessed  time.Duration `envconfig:"OUTBOX_RETAIN_PROCESSED" default:"24h"`
	HealthPort       int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
}

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	var cfg workerConfig
	if err := envconfig.Process("UROFLUX", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUser,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.RedisURL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			Channel:         cfg.Channel,
			BatchSize:       cfg.BatchSize,
			PollInterval:    cfg.PollInterval,
			RetainProcessed: cfg.RetainProcessed,
		},
		log.Logger,
		metrics.NewMetrics("uroflux_worker"),
	)

	setupHealthCheck(cfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	processor.Start(ctx)
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}
