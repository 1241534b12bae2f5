package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eternal-dungeon/internal/agent"
	"eternal-dungeon/pkg/logger"
	"eternal-dungeon/pkg/utils"

	"github.com/sirupsen/logrus"
)

func init() {
	logger.Init()
}

func main() {
	var (
		url       string
		name      string
		dungeonID int
		seed      int64
		steps     int
		interval  time.Duration
	)
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "Server websocket URL")
	flag.IntVar(&dungeonID, "dungeon", 0, "Dungeon id (0 - default)")
	flag.StringVar(&name, "name", "walker", "Walker name, seeds neighbour choice when -seed is 0")
	flag.Int64Var(&seed, "seed", 0, "Seed for neighbour choice")
	flag.IntVar(&steps, "steps", 0, "Room changes before exit (0 - walk forever)")
	flag.DurationVar(&interval, "interval", 500*time.Millisecond, "Delay between teleports")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seed == 0 {
		seed = utils.StringToSeed(name)
	}
	w := agent.NewWalker(url, dungeonID, seed)
	w.Steps = steps
	w.Interval = interval

	stats, err := w.Run(ctx)
	fields := logrus.Fields{
		"dungeon":   stats.DungeonID,
		"changes":   stats.Changes,
		"teleports": stats.Teleports,
		"errors":    stats.Errors,
	}
	if err != nil && ctx.Err() == nil {
		logger.Log.WithFields(fields).WithError(err).Fatal("Walker stopped")
	}
	logger.Log.WithFields(fields).Info("Walker finished")
}
