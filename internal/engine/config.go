package engine

import (
	"time"

	"eternal-dungeon/internal/config"
	"eternal-dungeon/pkg/dungeon"
)

// Config хранит параметры запуска движка
type Config struct {
	// Seed - мастер-зерно. От него зависят все подземелья.
	// Seed подземелья N = MasterSeed + N
	Seed    int64
	ShardId uint8

	PollInterval time.Duration
	Workers      int
	TraceDir     string

	Settings dungeon.Settings
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return FromConfig(config.Default())
}

// FromConfig переводит dungeon.yaml в параметры движка. Seed 0 - случайный.
func FromConfig(c config.Config) Config {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	settings := dungeon.DefaultSettings()
	settings.UnitLength = c.UnitLength
	settings.RoomMinWalls = c.Room.MinWalls
	settings.RoomMaxWalls = c.Room.MaxWalls
	settings.EntranceProbability = c.Room.EntranceProbability
	settings.CorridorMinWalls = c.Corridor.MinWalls
	settings.CorridorMaxWalls = c.Corridor.MaxWalls

	return Config{
		Seed:         seed,
		ShardId:      c.Shard,
		PollInterval: c.PollInterval,
		Workers:      c.Workers,
		TraceDir:     c.Server.TraceDir,
		Settings:     settings,
	}
}

// InstanceSeed - сид подземелья с номером id
func (c Config) InstanceSeed(id int) int64 {
	return c.Seed + int64(id)
}
