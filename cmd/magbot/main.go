// Command magbot runs the Magnify Cash micro-lending Telegram bot.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/bot"
	"github.com/Tytandoteth/magbot-test-mode/internal/chain"
	"github.com/Tytandoteth/magbot-test-mode/internal/config"
	"github.com/Tytandoteth/magbot-test-mode/internal/database"
	"github.com/Tytandoteth/magbot-test-mode/internal/health"
	"github.com/Tytandoteth/magbot-test-mode/internal/identity"
	"github.com/Tytandoteth/magbot-test-mode/internal/lending"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/reminder"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram/sender"
	"github.com/Tytandoteth/magbot-test-mode/internal/wallet"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := logger.Init(cfg); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error(ctx, "app", "fatal", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

// collaborators holds the mode-dependent implementations. This is the only
// place that branches on run mode.
type collaborators struct {
	store       session.Store
	provisioner wallet.Provisioner
	verifier    identity.Verifier
	issuer      lending.Issuer
	recorder    analytics.Recorder
}

func buildCollaborators(ctx context.Context, cfg *config.Config) (collaborators, error) {
	if cfg.IsDevelopment() {
		logger.Info(ctx, "app", "mode.development")
		return collaborators{
			store:       session.NewMemoryStore(),
			provisioner: &wallet.MockProvisioner{},
			verifier:    &identity.AutoVerifier{},
			issuer:      &chain.MockIssuer{},
			recorder:    analytics.NewMemoryRecorder(),
		}, nil
	}

	logger.Info(ctx, "app", "mode.production")
	if err := database.RunMigrations(cfg.Database); err != nil {
		return collaborators{}, err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return collaborators{}, err
	}

	chainClient := chain.NewClient(cfg.Blockchain, cfg.Paymaster)
	return collaborators{
		store:       session.NewPostgresStore(db),
		provisioner: wallet.NewServiceProvisioner(cfg.Paymaster.URL, cfg.Paymaster.APIKey),
		verifier:    &identity.ChainVerifier{Provider: "worldid", Minter: chainClient},
		issuer:      chainClient,
		recorder:    analytics.NewPostgresRecorder(db),
	}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	started := time.Now()

	collab, err := buildCollaborators(ctx, cfg)
	if err != nil {
		return err
	}

	catalog := lending.NewCatalog()
	lifecycle := lending.NewLifecycle(catalog, collab.issuer, cfg.Blockchain.LendingDeskID)

	app := bot.New(bot.Deps{
		Config:      cfg,
		Store:       collab.store,
		Catalog:     catalog,
		Lifecycle:   lifecycle,
		Provisioner: collab.provisioner,
		Verifier:    collab.verifier,
		Recorder:    collab.recorder,
	})

	reg := telegram.NewRegistry()
	app.Register(reg)

	routes := telegram.CommandRoutes(reg, telegram.RouteOptions{
		AdminID: cfg.Telegram.AdminID,
	})
	routes = append(routes, telegram.CallbackRoute(reg))

	middlewares := []telegram.Middleware{
		{Name: "dedup", Use: telegram.Dedup(30 * time.Second)},
		{Name: "single_flight", Use: telegram.SingleFlight()},
	}
	if cfg.RateLimit.IntervalMS > 0 {
		middlewares = append(middlewares, telegram.Middleware{
			Name: "rate_limit",
			Use: telegram.RateLimit(telegram.RateLimitOptions{
				Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			}),
		})
	}

	watcher := reminder.NewWatcher(
		collab.store, lifecycle, app, collab.recorder,
		time.Duration(cfg.Reminders.PollIntervalSeconds)*time.Second,
	)
	ops := health.NewServer(cfg.Health, cfg.Mode, collab.recorder)

	go watcher.Run(ctx)
	go func() {
		if err := ops.Run(ctx); err != nil {
			logger.Error(ctx, "app", "health.stopped", slog.String("err", err.Error()))
		}
	}()

	return telegram.Run(ctx, telegram.RunOptions{
		Config:   cfg,
		Registry: reg,
		DispatcherOptions: sender.Options{
			QueueSize:  256,
			Workers:    4,
			MaxRetries: 2,
		},
		Middlewares: middlewares,
		Routes:      routes,
		OnStart: func(ctx context.Context, tb *tele.Bot) error {
			app.AttachTelebot(tb)
			logger.Info(ctx, "app", "ready",
				slog.String("mode", cfg.Mode),
				slog.Duration("duration_ms", logger.RoundMS(time.Since(started))),
			)
			return nil
		},
	})
}
