package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `toml:"http_addr" yaml:"http_addr"`
	GRPCAddr string `toml:"grpc_addr" yaml:"grpc_addr"` // "" disables the health server

	// Storage
	Env     string `toml:"env" yaml:"env"`         // "dev" | "prod"
	Storage string `toml:"storage" yaml:"storage"` // "sqlite" | "memory"
	DBPath  string `toml:"db_path" yaml:"db_path"` // e.g. "./data/locker.db"

	// Timing, all in milliseconds
	TickMs             int `toml:"tick_ms" yaml:"tick_ms"`
	DigitTimeoutMs     int `toml:"digit_timeout_ms" yaml:"digit_timeout_ms"`
	SelectionTimeoutMs int `toml:"selection_timeout_ms" yaml:"selection_timeout_ms"`
	ChildLockTimeoutMs int `toml:"child_lock_timeout_ms" yaml:"child_lock_timeout_ms"`
	MagnetDelayMs      int `toml:"magnet_delay_ms" yaml:"magnet_delay_ms"`
	ReengageDelayMs    int `toml:"reengage_delay_ms" yaml:"reengage_delay_ms"`

	QueueCapacity int `toml:"queue_capacity" yaml:"queue_capacity"`

	// HTTP status API limiter
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"` // requests per second
	RateBurst int     `toml:"rate_burst" yaml:"rate_burst"`

	Console bool `toml:"console" yaml:"console"`
}

func Defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",

		Env:     "dev",
		Storage: "sqlite",
		DBPath:  "./data/locker.db",

		TickMs:             100,
		DigitTimeoutMs:     3000,
		SelectionTimeoutMs: 3000,
		ChildLockTimeoutMs: 60000,
		MagnetDelayMs:      1500,
		ReengageDelayMs:    100,

		QueueCapacity: 64,

		RateLimit: 10,
		RateBurst: 20,

		Console: true,
	}
}

// FromEnv returns the defaults overridden by LOCKER_* environment variables.
func FromEnv() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	normalize(&cfg)
	return cfg
}

// Load reads an optional TOML or YAML file (chosen by extension) over the
// defaults, then applies environment overrides. An empty path skips the
// file.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// LoadDotenv loads variables from path into the process environment. A
// missing file is not an error so .env stays optional.
func LoadDotenv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %s: unsupported extension (want .toml, .yaml or .yml)", path)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("LOCKER_HTTP_ADDR", cfg.HTTPAddr)
	if v, ok := os.LookupEnv("LOCKER_GRPC_ADDR"); ok {
		cfg.GRPCAddr = strings.TrimSpace(v)
	}

	cfg.Env = strings.ToLower(getenvDefault("LOCKER_ENV", cfg.Env))
	cfg.Storage = strings.ToLower(getenvDefault("LOCKER_STORAGE", cfg.Storage))
	cfg.DBPath = getenvDefault("LOCKER_DB_PATH", cfg.DBPath)

	cfg.TickMs = getenvInt("LOCKER_TICK_MS", cfg.TickMs)
	cfg.DigitTimeoutMs = getenvInt("LOCKER_DIGIT_TIMEOUT_MS", cfg.DigitTimeoutMs)
	cfg.SelectionTimeoutMs = getenvInt("LOCKER_SELECTION_TIMEOUT_MS", cfg.SelectionTimeoutMs)
	cfg.ChildLockTimeoutMs = getenvInt("LOCKER_CHILD_LOCK_TIMEOUT_MS", cfg.ChildLockTimeoutMs)
	cfg.MagnetDelayMs = getenvInt("LOCKER_MAGNET_DELAY_MS", cfg.MagnetDelayMs)
	cfg.ReengageDelayMs = getenvInt("LOCKER_REENGAGE_DELAY_MS", cfg.ReengageDelayMs)

	cfg.QueueCapacity = getenvInt("LOCKER_QUEUE_CAPACITY", cfg.QueueCapacity)

	cfg.RateLimit = getenvFloat("LOCKER_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getenvInt("LOCKER_RATE_BURST", cfg.RateBurst)

	cfg.Console = getenvBool("LOCKER_CONSOLE", cfg.Console)
}

// normalize is fail-soft: unknown values fall back to their defaults.
func normalize(cfg *Config) {
	def := Defaults()
	if cfg.Env != "dev" && cfg.Env != "prod" {
		cfg.Env = def.Env
	}
	if cfg.Storage != "sqlite" && cfg.Storage != "memory" {
		cfg.Storage = def.Storage
	}
	if cfg.TickMs <= 0 {
		cfg.TickMs = def.TickMs
	}
	if cfg.SelectionTimeoutMs <= 0 {
		cfg.SelectionTimeoutMs = cfg.DigitTimeoutMs
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
}

func (c Config) TickInterval() time.Duration     { return ms(c.TickMs) }
func (c Config) DigitTimeout() time.Duration     { return ms(c.DigitTimeoutMs) }
func (c Config) SelectionTimeout() time.Duration { return ms(c.SelectionTimeoutMs) }
func (c Config) ChildLockTimeout() time.Duration { return ms(c.ChildLockTimeoutMs) }
func (c Config) MagnetDelay() time.Duration      { return ms(c.MagnetDelayMs) }
func (c Config) ReengageDelay() time.Duration    { return ms(c.ReengageDelayMs) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}
