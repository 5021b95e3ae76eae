package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"offender-movements/internal/config"
	"offender-movements/internal/database"
	"offender-movements/internal/handler"
	"offender-movements/internal/httpapi"
	"offender-movements/internal/metrics"
	"offender-movements/internal/repository"
	"offender-movements/internal/service"
	"offender-movements/pkg/telegram"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetConfig()
	logger := cfg.NewLogger()
	logger.Info("Config initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Stopped gracefully")
}

// run returns instead of exiting so deferred cleanup always happens.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	db, err := database.Open(ctx, database.Config{
		Driver:   cfg.DatabaseDriver,
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.WithError(err).Error("Error closing database")
		}
	}()

	codeRepo, err := repository.NewGormReferenceCodeRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create reference code repository: %w", err)
	}
	agencyRepo, err := repository.NewGormAgencyRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create agency repository: %w", err)
	}
	bookingRepo, err := repository.NewGormBookingRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create booking repository: %w", err)
	}
	addressRepo, err := repository.NewGormAddressRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create address repository: %w", err)
	}
	applicationRepo, err := repository.NewGormMovementApplicationRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create movement application repository: %w", err)
	}
	eventRepo, err := repository.NewGormScheduledEventRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create scheduled event repository: %w", err)
	}
	movementRepo, err := repository.NewGormExternalMovementRepository(db, logger)
	if err != nil {
		return fmt.Errorf("create external movement repository: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	tx := database.NewTransactor(db)
	refData := service.NewReferenceDataService(codeRepo, agencyRepo, tx, logger)
	resolver := service.NewAddressResolver(addressRepo, m, logger)
	classifier := service.NewMovementClassifier(eventRepo, m, logger)
	applicationService := service.NewApplicationService(applicationRepo, bookingRepo, refData, resolver, tx, logger)
	schedulingService := service.NewSchedulingService(eventRepo, applicationRepo, refData, resolver, tx, logger)
	movementService := service.NewMovementService(movementRepo, bookingRepo, eventRepo, refData, resolver, classifier, tx, m, logger)
	bookingService := service.NewBookingMovementService(bookingRepo, applicationRepo, eventRepo, movementRepo, classifier, resolver, tx, m, logger)

	if cfg.ReferenceDataPath != "" {
		loaded, err := refData.LoadSeed(ctx, cfg.ReferenceDataPath)
		if err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		logger.WithField("rows", loaded).Info("Reference data loaded")
	}

	api := httpapi.NewHandler(applicationService, schedulingService, movementService, bookingService, logger)
	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(api, registry, func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var (
		bot       *handler.Handler
		botClient *telegram.Client
	)
	if cfg.TelegramToken != "" {
		botClient, err = telegram.NewClient(cfg.TelegramToken, cfg.TelegramDebug)
		if err != nil {
			return fmt.Errorf("create Telegram client: %w", err)
		}
		logger.Infof("Authorized on account %s", botClient.Bot.Self.UserName)
		if len(cfg.TelegramChats) == 0 {
			logger.Warn("TELEGRAM_ALLOWED_CHATS is empty, bot is read-only for every chat")
		}
		bot = handler.NewHandler(botClient.Bot, bookingService, schedulingService, cfg.TelegramChats, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if bot != nil {
		g.Go(func() error {
			bot.HandleUpdates(gctx, botClient.Updates(gctx))
			return nil
		})
		logger.Info("Staff bot started")
	}

	return g.Wait()
}
