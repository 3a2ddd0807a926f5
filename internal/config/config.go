package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalid is returned when a loaded configuration cannot drive the server.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Scene      SceneConfig      `toml:"scene"`
	Network    NetworkConfig    `toml:"network"`
	Database   DatabaseConfig   `toml:"database"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Port      int    `toml:"port"`
	BindHost  string `toml:"bind_host"`
	StaticDir string `toml:"static_dir"` // front-end bundle, skipped if missing
	StartTime int64  // set at boot, not from config
}

// SimulationConfig holds the physics tuning constants. Iteration counts and
// the 16ms period are inherited defaults, not derived from load.
type SimulationConfig struct {
	TickRate           time.Duration `toml:"tick_rate"`
	TimeStep           float64       `toml:"time_step"` // seconds per world step
	VelocityIterations int           `toml:"velocity_iterations"`
	PositionIterations int           `toml:"position_iterations"`
	PixelsPerMeter     float64       `toml:"pixels_per_meter"`
	GravityX           float64       `toml:"gravity_x"`
	GravityY           float64       `toml:"gravity_y"`
}

type SceneConfig struct {
	Path       string `toml:"path"` // empty = built-in scene
	ScriptsDir string `toml:"scripts_dir"`
}

type NetworkConfig struct {
	InQueueSize        int           `toml:"in_queue_size"`
	OutQueueSize       int           `toml:"out_queue_size"`
	MaxMessagesPerTick int           `toml:"max_messages_per_tick"`
	MessagesPerSecond  int           `toml:"messages_per_second"` // 0 = unlimited
	ReadLimit          int64         `toml:"read_limit"`
	WriteTimeout       time.Duration `toml:"write_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables the connection journal
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	JournalFlush    time.Duration `toml:"journal_flush"`
	JournalBuffer   int           `toml:"journal_buffer"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads the TOML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q: %v", ErrInvalid, v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("STARSANDBOX_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("STARSANDBOX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate rejects values the tick loop or the world cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Server.Port)
	case c.Simulation.TickRate <= 0:
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalid)
	case c.Simulation.TimeStep <= 0:
		return fmt.Errorf("%w: time_step must be positive", ErrInvalid)
	case c.Simulation.PixelsPerMeter <= 0:
		return fmt.Errorf("%w: pixels_per_meter must be positive", ErrInvalid)
	case c.Simulation.VelocityIterations <= 0 || c.Simulation.PositionIterations <= 0:
		return fmt.Errorf("%w: solver iterations must be positive", ErrInvalid)
	}
	return nil
}

// ListenAddr is the host:port the HTTP listener binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.BindHost, strconv.Itoa(c.Server.Port))
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "Star Sandbox",
			Port:      3000,
			BindHost:  "0.0.0.0",
			StaticDir: "public",
		},
		Simulation: SimulationConfig{
			TickRate:           16 * time.Millisecond,
			TimeStep:           0.016,
			VelocityIterations: 3,
			PositionIterations: 2,
			PixelsPerMeter:     50,
			GravityX:           0,
			GravityY:           10,
		},
		Scene: SceneConfig{
			ScriptsDir: "scripts",
		},
		Network: NetworkConfig{
			InQueueSize:        32,
			OutQueueSize:       256,
			MaxMessagesPerTick: 8,
			MessagesPerSecond:  30,
			ReadLimit:          4096,
			WriteTimeout:       10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			JournalFlush:    2 * time.Second,
			JournalBuffer:   1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
