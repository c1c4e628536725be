package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/quiz-hub/quiz-hub/internal/api/http"
	appIncident "github.com/quiz-hub/quiz-hub/internal/application/incident"
	appReport "github.com/quiz-hub/quiz-hub/internal/application/report"
	appSession "github.com/quiz-hub/quiz-hub/internal/application/session"
	"github.com/quiz-hub/quiz-hub/internal/config"
	"github.com/quiz-hub/quiz-hub/internal/domain/incident"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/report"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/pack"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/postgres"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/sse"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/websocket"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	var (
		reportRepo   report.Repository
		incidentRepo incident.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db error")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("migration error")
		}
		reportRepo = postgres.NewReportRepository(pool)
		incidentRepo = postgres.NewIncidentRepository(pool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, reports and incidents are not stored")
	}

	// infrastructure
	library := pack.NewLibrary(cfg.PacksDir, logger)
	sseHub := sse.NewHub(logger)

	// The gateway dispatches into sessions and sessions publish through the
	// gateway, so it is bound after both exist.
	var gateway *websocket.Gateway
	publisher := notification.Publishers{
		sseHub,
		notification.PublisherFunc(func(msg *notification.Message) {
			if gateway != nil {
				gateway.Publish(msg)
			}
		}),
	}

	// services
	incidentSvc := appIncident.NewService(incidentRepo, logger)
	reportSvc := appReport.NewService(reportRepo, logger, cfg.SigningKey())
	sessionSvc := appSession.NewService(appSession.Deps{
		Engines:     library,
		Publisher:   publisher,
		Incidents:   incidentSvc,
		Reports:     reportSvc,
		Policy:      cfg.Policy,
		LockTimeout: cfg.LockTimeout,
		Logger:      logger,
	})
	gateway = websocket.NewGateway(sessionSvc, logger)

	// API server
	apiServer := httpapi.NewServer(sessionSvc, reportSvc, incidentSvc, library, sseHub, gateway, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streams stay open
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	// Open streams are released as soon as shutdown begins.
	sseHub.Start(gctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// idle session reaper
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				sessionSvc.ReapIdle(gctx, cfg.IdleTTL)
			}
		}
	})

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(ctxShutdown)
		sessionSvc.Shutdown(ctxShutdown)
		gateway.Stop()
		sseHub.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}
