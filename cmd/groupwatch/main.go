package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/blockedby/groupwatch/internal/config"
	"github.com/blockedby/groupwatch/internal/database"
	"github.com/blockedby/groupwatch/internal/fetcher"
	"github.com/blockedby/groupwatch/internal/license"
	"github.com/blockedby/groupwatch/internal/logger"
	"github.com/blockedby/groupwatch/internal/migrator"
	"github.com/blockedby/groupwatch/internal/pinlock"
	"github.com/blockedby/groupwatch/internal/publisher"
	"github.com/blockedby/groupwatch/internal/repository"
	"github.com/blockedby/groupwatch/internal/telegram"
	"github.com/blockedby/groupwatch/internal/web"
	"github.com/blockedby/groupwatch/migrations"
)

func main() {
	// 1. Load config
	_ = godotenv.Load() // .env is optional
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting groupwatch service")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Open database and run migrations
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load migrations")
	}
	if err := m.Up(ctx, migrator.DatabaseURL(cfg.DatabasePath)); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// 5. Connect to NATS (optional)
	var natsPub fetcher.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, external publishing disabled")
		} else {
			defer nc.Close()
			natsPub = publisher.NewNATSPublisher(nc)
		}
	}

	// 6. Initialize repositories
	groupsRepo := repository.NewGroupsRepository(db.GORM)
	usersRepo := repository.NewUsersRepository(db.GORM)
	messagesRepo := repository.NewMessagesRepository(db.GORM)
	settingsRepo := repository.NewSettingsRepository(db.GORM)

	// 7. Initialize telegram manager
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}

	tgManager := telegram.NewManager(cfg, db.GORM)
	if err := tgManager.Init(ctx); err != nil {
		// status stays Unauthorized/Error, QR login can fix it later
		log.Error().Err(err).Msg("telegram manager init failed")
	}
	defer tgManager.Stop()

	tgClient := telegram.NewClient(tgManager)

	// 8. Websocket hub and event fan-out
	hub := web.NewHub()
	go hub.Run()

	events := fetcher.MultiPublisher{web.NewEventBroadcaster(hub)}
	if natsPub != nil {
		events = append(events, natsPub)
	}

	// 9. Fetch service, session gate and HTTP handler
	licenseGate := license.NewGate(groupsRepo, cfg.MaxGroups)
	pinTracker := pinlock.NewTracker(settingsRepo)

	svc := fetcher.NewService(
		tgClient,
		messagesRepo,
		groupsRepo,
		usersRepo,
		licenseGate,
		events,
		time.Duration(cfg.FetchDelaySeconds*float64(time.Second)),
		cfg.FetchPageSize,
		log.Logger,
	)
	fetchManager := fetcher.NewManager(svc, tgManager)
	handler := fetcher.NewHandler(fetchManager, groupsRepo, messagesRepo, pinTracker)

	// 10. HTTP server
	webCfg := &web.Config{Port: cfg.HTTPPort}
	server := web.NewServer(webCfg, handler.Routes(), hub)

	log.Info().Int("port", cfg.HTTPPort).Msg("starting http server")
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 11. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	fetchManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}
