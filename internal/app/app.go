// Package app assembles the process: configuration, storage, the domain
// stores, the wizard, the router, and the Telegram transport.
package app

import (
	"context"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"brokerbot/core/config"
	"brokerbot/core/database"
	"brokerbot/core/logger"
	"brokerbot/core/telegram"
	"brokerbot/internal/bot"
	"brokerbot/internal/rolecache"
	"brokerbot/internal/store"
	"brokerbot/internal/tabular"
	"brokerbot/internal/wizard"
)

// Run wires everything and serves updates until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := database.RunMigrations(cfg.Store.DSN, cfg.Store.MigrationsDir); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	db, err := database.Connect(cfg.Store.DSN, cfg.Store.MaxConnections)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	tab := tabular.NewPostgres(db)
	seq := tabular.NewPostgresSequencer(db)
	tables := store.Tables{
		Users:  cfg.Tables.Users,
		Grants: cfg.Tables.Grants,
		Owners: cfg.Tables.Owners,
		Items:  cfg.Tables.Items,
		Log:    cfg.Tables.Log,
		Tasks:  cfg.Tables.Tasks,
	}
	admins := cfg.AdminSet()

	users := store.NewUserStore(tab, tables, admins)
	owners := store.NewOwnerStore(tab, tables, seq)
	items := store.NewItemStore(tab, tables, seq, cfg.Rules.ConfirmWindowDays, cfg.Rules.AutoHideDays)
	tasks := store.NewTaskStore(tab, tables, seq, cfg.Rules.TaskReminderFrequencyMin)
	audit := store.NewActivityLog(tab, tables)
	for _, ensure := range []func(context.Context) error{
		users.EnsureSchema, owners.EnsureSchema, items.EnsureSchema,
		tasks.EnsureSchema, audit.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	cache := rolecache.New(users, admins)
	flow := wizard.NewFlow(wizard.NewSessions(), owners, audit, bot.NavLabels())

	dispatcher := telegram.NewDispatcher(telegram.DispatcherOptions{})

	// The router is constructed inside OnStart because the notifier needs
	// the live bot handle.
	var router *bot.Router

	handle := func(c tele.Context) error {
		hctx := telegram.ContextOf(c)
		ev := bot.EventFrom(c)
		if err := router.HandleEvent(hctx, ev, bot.NewResponder(c)); err != nil {
			// Datastore failures drop the event with no user-visible reply.
			logger.Error(hctx, "router", "event_dropped",
				slog.Int64("user_id", ev.From.ID), slog.String("error", err.Error()))
		}
		return nil
	}

	opts := telegram.RunOptions{
		Config:      cfg,
		Dispatcher:  dispatcher,
		Middlewares: telegram.DefaultMiddlewares(cfg, nil),
		Routes: []telegram.Route{
			{Endpoint: "/start", Handler: handle},
			{Endpoint: tele.OnText, Handler: handle},
			{Endpoint: tele.OnLocation, Handler: handle},
			{Endpoint: tele.OnCallback, Handler: handle},
		},
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			notifier := bot.NewNotifier(rt.Bot, rt.Dispatcher)
			router = bot.NewRouter(users, items, tasks, cache, flow, audit, notifier, cfg.Telegram.AdminIDs)
			logger.Info(ctx, "app", "started",
				slog.Int("admins", len(cfg.Telegram.AdminIDs)))
			return nil
		},
		OnStop: func(ctx context.Context, _ telegram.Runtime) error {
			logger.Info(ctx, "app", "stopped")
			return nil
		},
	}
	return telegram.RunTelegram(ctx, opts)
}
