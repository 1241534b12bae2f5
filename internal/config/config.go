package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath - куда смотрит сервер, если -config не передан
	DefaultPath = "config/dungeon.yaml"

	defaultUnitLength          = 400
	defaultMinWalls            = 3
	defaultMaxWalls            = 12
	defaultEntranceProbability = 0.3
	defaultPollInterval        = time.Second
	defaultAssetsFile          = "JSON/RoomAssets.json"
	defaultTagsFile            = "JSON/RoomTags.json"
	defaultWorkers             = 2
	defaultPort                = "8080"
	defaultTraceDir            = "traces"
)

// Config - содержимое dungeon.yaml.
type Config struct {
	Seed         int64          `yaml:"seed"`
	Shard        uint8          `yaml:"shard"`
	UnitLength   float64        `yaml:"unit_length"`
	Room         RoomConfig     `yaml:"room"`
	Corridor     CorridorConfig `yaml:"corridor"`
	PollInterval time.Duration  `yaml:"poll_interval"`
	AssetsFile   string         `yaml:"assets_file"`
	TagsFile     string         `yaml:"tags_file"`
	Workers      int            `yaml:"workers"`
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
}

// RoomConfig - размеры комнат и шанс открыть вход на стене
type RoomConfig struct {
	MinWalls            int     `yaml:"min_walls"`
	MaxWalls            int     `yaml:"max_walls"`
	EntranceProbability float64 `yaml:"entrance_probability"`
}

// CorridorConfig - длина коридоров в сегментах
type CorridorConfig struct {
	MinWalls int `yaml:"min_walls"`
	MaxWalls int `yaml:"max_walls"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	TraceDir string `yaml:"trace_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default возвращает конфиг со значениями по умолчанию.
func Default() Config {
	return Config{
		UnitLength: defaultUnitLength,
		Room: RoomConfig{
			MinWalls:            defaultMinWalls,
			MaxWalls:            defaultMaxWalls,
			EntranceProbability: defaultEntranceProbability,
		},
		Corridor: CorridorConfig{
			MinWalls: defaultMinWalls,
			MaxWalls: defaultMaxWalls,
		},
		PollInterval: defaultPollInterval,
		AssetsFile:   defaultAssetsFile,
		TagsFile:     defaultTagsFile,
		Workers:      defaultWorkers,
		Server: ServerConfig{
			Port:     defaultPort,
			TraceDir: defaultTraceDir,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load читает YAML-файл. Отсутствующий файл - не ошибка: берутся значения по умолчанию.
// Переменные окружения CD_PORT и CD_SEED перекрывают значения из файла.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// файла нет - работаем на умолчаниях
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Parse разбирает YAML из памяти (используется тестами и /debug).
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := strings.TrimSpace(os.Getenv("CD_PORT")); port != "" {
		c.Server.Port = port
	}
	if raw := strings.TrimSpace(os.Getenv("CD_SEED")); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("CD_SEED %q: %w", raw, err)
		}
		c.Seed = seed
	}
	return nil
}

// applyDefaults заполняет то, что в YAML было явно обнулено или пропущено.
func (c *Config) applyDefaults() {
	if c.UnitLength == 0 {
		c.UnitLength = defaultUnitLength
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if strings.TrimSpace(c.AssetsFile) == "" {
		c.AssetsFile = defaultAssetsFile
	}
	if strings.TrimSpace(c.TagsFile) == "" {
		c.TagsFile = defaultTagsFile
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		c.Server.Port = defaultPort
	}
	if strings.TrimSpace(c.Server.TraceDir) == "" {
		c.Server.TraceDir = defaultTraceDir
	}
}

// Validate отбрасывает конфиги, с которыми генератор построит невалидную геометрию.
func (c *Config) Validate() error {
	if c.UnitLength <= 0 {
		return fmt.Errorf("unit_length must be > 0, got %v", c.UnitLength)
	}
	if err := validateWalls("room", c.Room.MinWalls, c.Room.MaxWalls); err != nil {
		return err
	}
	if err := validateWalls("corridor", c.Corridor.MinWalls, c.Corridor.MaxWalls); err != nil {
		return err
	}
	if c.Room.EntranceProbability < 0 || c.Room.EntranceProbability > 1 {
		return fmt.Errorf("room.entrance_probability must be within [0, 1], got %v", c.Room.EntranceProbability)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

func validateWalls(section string, min, max int) error {
	if min < 1 {
		return fmt.Errorf("%s.min_walls must be >= 1, got %d", section, min)
	}
	if max < min {
		return fmt.Errorf("%s.max_walls (%d) must be >= min_walls (%d)", section, max, min)
	}
	return nil
}
