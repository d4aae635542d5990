package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eventarena/server/internal/api"
	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/bot"
	"github.com/eventarena/server/internal/clock"
	"github.com/eventarena/server/internal/config"
	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/hud"
	"github.com/eventarena/server/internal/journal"
	"github.com/eventarena/server/internal/sim"
	"github.com/eventarena/server/internal/transport"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	bus := events.NewBus(logger)

	bounds := arena.Rect{X: 0, Y: 0, W: cfg.World.Width, H: cfg.World.Height}
	obstacles := arena.DefaultObstacles(bounds)
	world := arena.NewWorld(bounds, obstacles)
	spawnCfg := arena.DefaultSpawnConfig(world)
	spawn := arena.NewSpawnManager(world, spawnCfg, time.Now().UnixNano())
	spawn.SetLogger(logger)

	engine := sim.NewEngine(logger, bus, world, spawn, cfg)
	engine.EnableAutoRestart("deathmatch", 5000, 0)
	engine.CreateMatch("deathmatch", 5000, 0)

	clk := clock.New(bus, cfg.TickHz)

	dispatcher := hud.NewDispatcher(logger, bus, engine, nil, timeNowMs)

	journalCfg := journal.DefaultConfig(journalBaseDir(cfg))
	journalCfg.Disabled = cfg.Journal.Disabled
	journalCfg.StreamThreshold = cfg.Journal.StreamThreshold
	journalCfg.Compress = true
	journalMgr, err := journal.NewManager(logger, bus, journalCfg, timeNowMs)
	if err != nil {
		logger.Fatal("failed to start journal", zap.Error(err))
	}

	hub := transport.NewHub(logger, bus, clk, engine, dispatcher, cfg.Transport)
	dispatcher.SetSink(hub)
	go hub.Run()

	botMgr := bot.NewManager(logger, bus, clk, engine, botCount(), bot.DefaultConfig(), time.Now().UnixNano())

	router := api.NewRouter(api.RouterConfig{WS: hub})

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: router,
	}

	clk.Start()
	botMgr.Start()
	logger.Info("simulation started", zap.Int("tickHz", cfg.TickHz), zap.Float64("worldWidth", cfg.World.Width), zap.Float64("worldHeight", cfg.World.Height))

	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Error("server error", zap.Error(ctx.Err()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	botMgr.Stop()
	clk.Stop()
	hub.Shutdown()
	journalMgr.Shutdown()

	if err := group.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func timeNowMs() int64 {
	return time.Now().UnixMilli()
}

func journalBaseDir(cfg config.Config) string {
	if cfg.Journal.ArtifactsDir != "" {
		return cfg.Journal.ArtifactsDir
	}
	if cfg.Journal.JournalsDir != "" {
		return cfg.Journal.JournalsDir
	}
	return "journals"
}

func botCount() int {
	v := os.Getenv("ARENA_BOT_COUNT")
	if v == "" {
		return 3
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 3
	}
	return n
}
