package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldenticket/api"
	"goldenticket/application"
	"goldenticket/config"
	"goldenticket/database"
	"goldenticket/events"
	"goldenticket/infrastructure/chain"
	"goldenticket/infrastructure/discord"
	"goldenticket/infrastructure/natsbus"
	"goldenticket/infrastructure/observability"
	"goldenticket/infrastructure/worldid"
	"goldenticket/repository"
	"goldenticket/service"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting goldenticket...")

	// Database
	databaseURL := cfg.GetDatabaseURL()
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db, err := database.NewConnection(ctx, databaseURL, database.PoolOptions{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Metrics
	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metricsProvider.Subscribe(eventBus)

	// Event forwarding, optional
	var natsClient *natsbus.Client
	if cfg.NATSServers != "" {
		natsClient = natsbus.NewClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		natsbus.NewForwarder(natsClient).Subscribe(eventBus)
	} else {
		log.Info("NATS_SERVERS not set, lottery events will not be forwarded")
	}

	// Draw announcements, optional
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		session, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return err
		}
		discord.NewAnnouncer(session, cfg.DiscordChannelID).Subscribe(eventBus)
		log.WithField("channelID", cfg.DiscordChannelID).Info("Draw results will be announced on Discord")
	}

	// External verifiers
	paymentVerifier, closeChain, err := chain.Dial(ctx, cfg.ChainRPCURL, chain.Config{
		TokenAddress:      cfg.TokenContractAddress,
		ReceiverAddress:   cfg.PaymentReceiverAddress,
		TokenDecimals:     cfg.TokenDecimals,
		MinConfirmations:  cfg.ChainMinConfirmations,
		RequestsPerSecond: cfg.ChainRPCRateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize payment verifier: %w", err)
	}
	defer closeChain()
	identityVerifier := worldid.NewClient(cfg.WorldIDAPIBase, cfg.WorldIDAppID, cfg.WorldIDActionID)

	// Services
	clock := service.NewPeriodClock(cfg.Location, cfg.CutoverWeekday, cfg.CutoverHour)
	generator := service.NewNumberGenerator()
	prizeSplit := service.PrizeSplit{First: cfg.PrizeFirst, Second: cfg.PrizeSecond, Third: cfg.PrizeThird}
	if err := prizeSplit.Validate(); err != nil {
		return err
	}

	ticketService := service.NewTicketService(uowFactory, paymentVerifier, generator, clock)
	settlementService := service.NewSettlementService(uowFactory, generator, clock, service.SettlementConfig{
		TicketPrice: cfg.TicketPrice,
		PrizeSplit:  prizeSplit,
	})
	resultsService, err := service.NewResultsService(uowFactory, cfg.ResultCacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize results service: %w", err)
	}

	// Settlement worker
	schedule, err := application.NewCutoverSchedule(cfg.Location, cfg.CutoverWeekday, cfg.CutoverHour)
	if err != nil {
		return err
	}
	worker := application.NewSettlementWorker(settlementService, clock, schedule)

	// HTTP
	lottery := api.NewLotteryHandlers(ticketService, resultsService, identityVerifier, clock, cfg.TicketPrice, metricsProvider)
	server := api.NewServer(cfg.HTTPPort, cfg.CORSOrigin, lottery, db)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		stopWorker := worker.Start(gctx)
		<-gctx.Done()
		stopWorker()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down HTTP server")
		}
		if natsClient != nil {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics provider")
		}
		return nil
	})

	log.WithFields(log.Fields{
		"period":  clock.CurrentPeriod(clock.Now()),
		"port":    cfg.HTTPPort,
		"cutover": fmt.Sprintf("%s %02d:00 %s", cfg.CutoverWeekday, cfg.CutoverHour, cfg.Location),
	}).Info("goldenticket is running")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}

func configureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
