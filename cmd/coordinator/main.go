// Package main provides the session coordinator binary: the realtime
// websocket frontend, the player-store HTTP API, and the PostgreSQL
// connection behind it.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cmdmmo/server/internal/api"
	"github.com/cmdmmo/server/internal/config"
	"github.com/cmdmmo/server/internal/coordinator"
	"github.com/cmdmmo/server/internal/frontend/ws"
	"github.com/cmdmmo/server/internal/game/dungeon"
	"github.com/cmdmmo/server/internal/game/party"
	"github.com/cmdmmo/server/internal/game/presence"
	"github.com/cmdmmo/server/internal/observability"
	"github.com/cmdmmo/server/internal/server"
	"github.com/cmdmmo/server/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting session coordinator",
		zap.String("ws_addr", cfg.WebSocket.Addr()),
		zap.String("http_addr", cfg.HTTP.Addr()),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// Connect to PostgreSQL for player persistence
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	playerRepo := postgres.NewPlayerRepository(pool.DB())

	// Create managers and the coordinator over them
	presenceReg := presence.NewRegistry()
	partyMgr := party.NewManager()
	dungeonStore := dungeon.NewStore()
	router := coordinator.NewRouter(presenceReg, partyMgr, logger, metrics)
	coord := coordinator.New(presenceReg, partyMgr, dungeonStore, router, logger, metrics)

	acceptor := ws.NewAcceptor(cfg.WebSocket, coord, logger)
	apiServer := api.NewServer(cfg.HTTP, playerRepo, logger, registry)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("websocket", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	lifecycle.Add("api", &server.FuncService{
		StartFn: apiServer.ListenAndServe,
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Stop(shutdownCtx); err != nil {
				logger.Warn("api shutdown", zap.Error(err))
			}
		},
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	logger.Info("session coordinator initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
