package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uroflux/intake-api/internal/config"
	"github.com/uroflux/intake-api/internal/email"
	"github.com/uroflux/intake-api/internal/handler"
	examHandler "github.com/uroflux/intake-api/internal/handler/exam"
	patientHandler "github.com/uroflux/intake-api/internal/handler/patient"
	webhookHandler "github.com/uroflux/intake-api/internal/handler/webhook"
	"github.com/uroflux/intake-api/internal/messaging/whatsapp"
	"github.com/uroflux/intake-api/internal/repository/postgres"
	"github.com/uroflux/intake-api/internal/router"
	"github.com/uroflux/intake-api/internal/service/analysis"
	examService "github.com/uroflux/intake-api/internal/service/exam"
	"github.com/uroflux/intake-api/internal/service/intake"
	patientService "github.com/uroflux/intake-api/internal/service/patient"
	"github.com/uroflux/intake-api/internal/service/report"
	"github.com/uroflux/intake-api/internal/storage"
	"github.com/uroflux/intake-api/pkg/metrics"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	patientRepo := postgres.NewPatientRepository(db)
	examRepo := postgres.NewExamRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Gateways
	blobStore, err := storage.NewS3Store(cfg.Storage, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object storage")
	}
	waClient := whatsapp.NewClient(cfg.WhatsApp, log.Logger)

	// Services
	m := metrics.NewMetrics("uroflux")
	patientSvc := patientService.NewService(patientRepo, log.Logger)
	examSvc := examService.NewService(examRepo)
	intakeSvc := intake.NewService(
		patientRepo,
		examRepo,
		outboxRepo,
		blobStore,
		waClient,
		analysis.NewStubAnalyzer(),
		report.NewPDFRenderer(),
		m,
		log.Logger,
	)
	if alerts := email.NewSMTPSender(cfg.SMTP, log.Logger); alerts != nil {
		intakeSvc.WithAlertSender(alerts)
	}

	// Handlers
	h := handler.NewHandler(db)
	patientH := patientHandler.NewHandler(patientSvc, intakeSvc)
	examH := examHandler.NewHandler(examSvc)
	webhookH := webhookHandler.NewHandler(intakeSvc, cfg.WhatsApp.VerifyToken)

	r := router.NewRouter(patientH, examH, webhookH, h, router.Config{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MetricsPrefix:  "uroflux_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
