// Package app wires the configured backend, the domain services and the
// notification fan-out into one running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-restaurant-pos/billing"
	"go-restaurant-pos/broker"
	"go-restaurant-pos/config"
	"go-restaurant-pos/dashboard"
	"go-restaurant-pos/database"
	"go-restaurant-pos/kitchen"
	"go-restaurant-pos/notify"
	"go-restaurant-pos/store"
	"go-restaurant-pos/store/memory"
	"go-restaurant-pos/store/mongostore"
	"go-restaurant-pos/store/pgstore"
)

type App struct {
	Config    *config.Config
	Log       *slog.Logger
	Backend   store.Backend
	Hub       *notify.Hub
	Engine    *billing.Engine
	Kitchen   *kitchen.Queue
	Dashboard *dashboard.Aggregator
	Location  *time.Location

	mongo  *mongostore.Store
	broker *broker.Client
}

func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, Hub: notify.NewHub(), Location: loc}

	switch cfg.Backend {
	case config.BackendMemory:
		a.Backend = memory.New().Backend()
	case config.BackendMongo:
		client, err := database.DBinstance(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.mongo = mongostore.New(client, cfg.MongoDatabase)
		if err := a.mongo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		a.Backend = a.mongo.Backend()
	case config.BackendPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		pg := pgstore.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		a.Backend = pg.Backend()
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	log.Info("backend_ready", "backend", cfg.Backend)

	a.Engine = billing.NewEngine(a.Backend.Tables, a.Backend.Orders,
		billing.WithNotifier(a.Hub),
		billing.WithLogger(log.With("component", "billing")))
	a.Kitchen = kitchen.NewQueue(a.Backend.Orders, a.Backend.Tables,
		kitchen.WithLateAfter(cfg.KitchenLateAfter),
		kitchen.WithNotifier(a.Hub),
		kitchen.WithLogger(log.With("component", "kitchen")))
	a.Dashboard = dashboard.NewAggregator(a.Backend.Tables, a.Backend.Orders, loc, nil)

	if cfg.SeedDemo {
		if err := Seed(ctx, a.Backend); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

// Start launches the background work: the reconciler, the broker bridge and
// the change-stream watcher, when configured. All of it stops with ctx.
func (a *App) Start(ctx context.Context) error {
	go a.Engine.RunReconciler(ctx, a.Config.ReconcileInterval)

	if a.Config.AMQPURL != "" {
		client, err := broker.Dial(a.Config.AMQPURL)
		if err != nil {
			return err
		}
		a.broker = client
		bridge := notify.NewBridge(a.Hub, client, a.Config.AMQPExchange, a.Log.With("component", "bridge"))
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("start notification bridge: %w", err)
		}
		a.Log.Info("notification_bridge_started", "exchange", a.Config.AMQPExchange, "origin", bridge.Origin())
	}

	if a.Config.WatchChanges {
		if a.mongo == nil {
			return errors.New("watch_changes needs the mongo backend")
		}
		if err := a.mongo.Watch(ctx, a.Hub.Deliver, a.Log.With("component", "watch")); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Close(ctx context.Context) error {
	if a.broker != nil {
		a.broker.Close()
	}
	if a.Backend.Close != nil {
		return a.Backend.Close(ctx)
	}
	return nil
}
