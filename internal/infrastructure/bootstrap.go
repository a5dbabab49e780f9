package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"loyalty/internal/cache"
	"loyalty/internal/config"
	"loyalty/internal/notify"
	"loyalty/internal/repository"
	"loyalty/internal/service"
	transportGRPC "loyalty/internal/transport/grpc"
	transportHTTP "loyalty/internal/transport/http"
	transportNATS "loyalty/internal/transport/nats"
	"loyalty/internal/transport/websocket"
	"loyalty/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the application.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanupFns []func()
	fail := func(err error) (*App, func(), error) {
		runCleanup(cleanupFns)()
		return nil, nil, err
	}

	// 1. Store
	var store repository.Store
	switch cfg.Storage {
	case "postgres":
		db, err := connectPostgres(ctx, cfg.DSN())
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		cleanupFns = append(cleanupFns, db.Close)
		store = repository.NewPostgresStore(db)
	default:
		slog.Warn("using in-memory store, data is lost on restart")
		store = repository.NewMemoryStore()
	}

	// 2. Cache, optional. An unreachable Redis degrades to no cache.
	var c cache.Cache = cache.Noop{}
	if cfg.CacheEnabled() {
		rdb, err := connectRedis(cfg)
		if err != nil {
			slog.Warn("redis unavailable, running without cache", "addr", cfg.RedisAddr(), "error", err)
		} else {
			cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })
			c = cache.NewRedis(rdb, "")
		}
	}

	hub := websocket.NewHub(slog.Default())
	var servers []Server

	// 3. Event bus
	var bus notify.Bus
	var commands func(svc service.RewardsService) Server
	switch cfg.BusProvider {
	case "nats":
		nc, err := connectNats(cfg.NatsAddr())
		if err != nil {
			return fail(fmt.Errorf("connect nats: %w", err))
		}
		cleanupFns = append(cleanupFns, nc.Close)
		bus = transportNATS.NewBus(nc)
		servers = append(servers, worker.NewEventRelay(hub, nc))
		commands = func(svc service.RewardsService) Server { return transportNATS.NewHandler(svc, nc) }

	case "grpc":
		grpcBus, cleanup, err := transportGRPC.NewGrpcBusFromAddr(cfg.GRPCAddr())
		if err != nil {
			return fail(fmt.Errorf("dial grpc event service: %w", err))
		}
		cleanupFns = append(cleanupFns, cleanup)
		bus = grpcBus

	default:
		bus = hub
	}

	notifier := notify.New(bus, cfg.NotifyBuffer)
	servers = append(servers, notifier)

	// 4. Engine and transports
	engine := service.NewEngine(store, c, notifier)

	if commands != nil {
		servers = append(servers, commands(engine))
	}
	if addr, err := cfg.GRPCListenAddr(); err == nil {
		servers = append(servers, transportGRPC.NewServer(addr, hub))
	}
	servers = append(servers, transportHTTP.NewServer(cfg.ApiAddr(), engine, hub))

	slog.Info("application wired",
		"storage", cfg.Storage,
		"bus", cfg.BusProvider,
		"cache", cfg.CacheEnabled(),
		"api_addr", cfg.ApiAddr())

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
