// Command woltwatch runs the Wolt venue availability bot: it watches venues
// picked in a Telegram conversation and notifies the chat once delivery opens.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/woltwatch/bot"
	"github.com/m3rciful/woltwatch/core/buildinfo"
	coreconfig "github.com/m3rciful/woltwatch/core/config"
	coredatabase "github.com/m3rciful/woltwatch/core/database"
	"github.com/m3rciful/woltwatch/core/logger"
	"github.com/m3rciful/woltwatch/core/telegram"
	"github.com/m3rciful/woltwatch/flow"
	"github.com/m3rciful/woltwatch/migrations"
	"github.com/m3rciful/woltwatch/session"
	"github.com/m3rciful/woltwatch/watch"
	"github.com/m3rciful/woltwatch/wolt"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		logger.L.Error("config load failed",
			slog.String("event", "startup"),
			slog.String("path", cfgPath),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.L.Info("starting",
		slog.String("event", "startup"),
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.String("run_mode", cfg.Telegram.RunMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coredatabase.RunMigrations(cfg.Database, migrations.FS); err != nil {
		logger.L.Error("migrations failed",
			slog.String("event", "startup"),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	db, err := coredatabase.Connect(cfg.Database)
	if err != nil {
		logger.L.Error("db connect failed",
			slog.String("event", "startup"),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}
	defer db.Close()

	store := session.NewPostgresStore(db)
	locks := session.NewKeyedMutex()

	client := wolt.NewClient(wolt.Options{
		Lat:           cfg.Wolt.Location.Lat,
		Lon:           cfg.Wolt.Location.Lon,
		SearchBaseURL: cfg.Wolt.SearchBaseURL,
		VenueBaseURL:  cfg.Wolt.VenueBaseURL,
	})

	messenger := bot.NewMessenger()
	watcher := watch.New(store, client, messenger, locks,
		time.Duration(cfg.Watch.IntervalSeconds)*time.Second)
	conv := flow.New(store, client, watcher, messenger, locks, cfg.Wolt.PageSize)

	err = telegram.Run(ctx, telegram.RunOptions{
		Config:      cfg,
		Middlewares: telegram.DefaultMiddlewares(cfg, nil),
		Routes:      bot.Routes(conv),
		Commands:    bot.Commands(),
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			messenger.Bind(rt.Bot, rt.Dispatcher)
			if err := watcher.Resume(ctx); err != nil {
				// Jobs for surviving sessions reappear on the next restart;
				// the bot itself can still serve new conversations.
				logger.WATCH.Warn("resume failed",
					slog.String("event", "watch.resume"),
					slog.String("err", err.Error()),
				)
			}
			watcher.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt telegram.Runtime) error {
			watcher.Stop()
			return nil
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.L.Error("bot stopped with error",
			slog.String("event", "shutdown"),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	logger.L.Info("stopped", slog.String("event", "shutdown"))
}
