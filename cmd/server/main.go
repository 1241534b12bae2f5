package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eternal-dungeon/internal/config"
	"eternal-dungeon/internal/engine"
	"eternal-dungeon/internal/server"
	"eternal-dungeon/internal/version"
	"eternal-dungeon/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	var (
		seed       int64
		configPath string
		replayPath string
	)
	flag.Int64Var(&seed, "seed", 0, "Master seed (0 - from config or random)")
	flag.StringVar(&configPath, "config", config.DefaultPath, "Path to dungeon.yaml")
	flag.StringVar(&replayPath, "replay", "", "Path to a trace file to replay and exit")
	flag.Parse()

	fileCfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load config")
	}
	logger.Configure(fileCfg.Log.Level, fileCfg.Log.Format)
	if seed != 0 {
		fileCfg.Seed = seed
	}

	logger.Log.Info("Starting Eternal Dungeon...")
	logger.Log.Info(version.String())

	assets, tags, err := engine.LoadCatalogs(fileCfg.AssetsFile, fileCfg.TagsFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load catalogs")
	}

	cfg := engine.FromConfig(fileCfg)
	logger.Log.Infof("Using Master Seed: %d", cfg.Seed)

	service := engine.NewService(cfg, engine.NewCatalogs(assets, tags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.Start(ctx)

	// РЕЖИМ РЕПЛЕЯ
	if replayPath != "" {
		replay(ctx, service, replayPath)
		return
	}

	// 2. Стартовое подземелье и сервер
	service.CreateInstance()

	srv := server.New(service, fileCfg.Server.Port)
	srv.AssetsFile = fileCfg.AssetsFile
	srv.TagsFile = fileCfg.TagsFile

	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.WithError(err).Fatal("Server start error")
		}
	}()

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	// Останавливаем подземелья и сохраняем трассы
	service.Shutdown(shutdownCtx)

	logger.Log.Info("Done.")
}

func replay(ctx context.Context, service *engine.DungeonService, path string) {
	logger.Log.Info("Mode: Replay Simulation")
	defer service.Shutdown(context.Background())

	inst, changes, err := service.Replay(ctx, path)
	if err != nil {
		logger.Log.WithError(err).Error("Replay failed")
		return
	}

	snap, err := inst.Snapshot(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Replay snapshot failed")
		return
	}
	logger.Log.WithField("changes", changes).
		WithField("current_room", snap.CurrentRoom).
		WithField("last_room_id", snap.LastRoomID).
		Info("Replay finished")
}
