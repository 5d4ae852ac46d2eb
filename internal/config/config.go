// Package config loads radarplay settings from YAML, TOML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for radarplay.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Library  LibraryConfig  `json:"library"`
	Playback PlaybackConfig `json:"playback"`
	Redis    RedisConfig    `json:"redis"`
	Log      LogConfig      `json:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// LibraryConfig locates the recordings directory.
type LibraryConfig struct {
	Dir            string `json:"dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// PlaybackConfig tunes the scheduler.
type PlaybackConfig struct {
	Looping       bool          `json:"looping"`
	LoopDelay     time.Duration `json:"loop_delay"`
	MinFrameDelay time.Duration `json:"min_frame_delay"`
}

// RedisConfig enables mirroring playback onto Redis.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Library: LibraryConfig{
			Dir:            "recordings",
			MaxUploadBytes: 512 << 20,
		},
		Playback: PlaybackConfig{
			LoopDelay:     time.Second,
			MinFrameDelay: time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "radarplay:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Library.Dir == "" {
		return fmt.Errorf("library.dir is required")
	}
	if c.Library.MaxUploadBytes <= 0 {
		return fmt.Errorf("library.max_upload_bytes must be positive, got %d", c.Library.MaxUploadBytes)
	}
	if c.Playback.LoopDelay <= 0 {
		return fmt.Errorf("playback.loop_delay must be positive, got %s", c.Playback.LoopDelay)
	}
	if c.Playback.MinFrameDelay <= 0 {
		return fmt.Errorf("playback.min_frame_delay must be positive, got %s", c.Playback.MinFrameDelay)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled=true")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be non-negative, got %d", c.Redis.DB)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q, must be one of: auto, text, json", c.Log.Format)
	}
	return nil
}

// LoadFile reads a config file and merges it with defaults. The format is
// chosen by extension: .yaml/.yml, .toml or .json. Fields not specified in
// the file retain their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// Use a raw intermediate struct to handle duration parsing.
	var raw rawConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		return cfg, fmt.Errorf("unsupported config format %q, must be .yaml, .yml, .toml or .json", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := raw.apply(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// rawConfig is the file representation with string durations. Pointers
// tell "absent" apart from an explicit zero or false.
type rawConfig struct {
	Server struct {
		Addr string `json:"addr" yaml:"addr" toml:"addr"`
	} `json:"server" yaml:"server" toml:"server"`
	Library struct {
		Dir            string `json:"dir" yaml:"dir" toml:"dir"`
		MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	} `json:"library" yaml:"library" toml:"library"`
	Playback struct {
		Looping       *bool  `json:"looping" yaml:"looping" toml:"looping"`
		LoopDelay     string `json:"loop_delay" yaml:"loop_delay" toml:"loop_delay"`
		MinFrameDelay string `json:"min_frame_delay" yaml:"min_frame_delay" toml:"min_frame_delay"`
	} `json:"playback" yaml:"playback" toml:"playback"`
	Redis struct {
		Enabled  *bool  `json:"enabled" yaml:"enabled" toml:"enabled"`
		Addr     string `json:"addr" yaml:"addr" toml:"addr"`
		Password string `json:"password" yaml:"password" toml:"password"`
		DB       *int   `json:"db" yaml:"db" toml:"db"`
		Prefix   string `json:"prefix" yaml:"prefix" toml:"prefix"`
	} `json:"redis" yaml:"redis" toml:"redis"`
	Log struct {
		Level  string `json:"level" yaml:"level" toml:"level"`
		Format string `json:"format" yaml:"format" toml:"format"`
	} `json:"log" yaml:"log" toml:"log"`
}

func (raw rawConfig) apply(cfg *Config) error {
	if raw.Server.Addr != "" {
		cfg.Server.Addr = raw.Server.Addr
	}
	if raw.Library.Dir != "" {
		cfg.Library.Dir = raw.Library.Dir
	}
	if raw.Library.MaxUploadBytes > 0 {
		cfg.Library.MaxUploadBytes = raw.Library.MaxUploadBytes
	}
	if raw.Playback.Looping != nil {
		cfg.Playback.Looping = *raw.Playback.Looping
	}
	if raw.Playback.LoopDelay != "" {
		d, err := time.ParseDuration(raw.Playback.LoopDelay)
		if err != nil {
			return fmt.Errorf("parsing playback.loop_delay: %w", err)
		}
		cfg.Playback.LoopDelay = d
	}
	if raw.Playback.MinFrameDelay != "" {
		d, err := time.ParseDuration(raw.Playback.MinFrameDelay)
		if err != nil {
			return fmt.Errorf("parsing playback.min_frame_delay: %w", err)
		}
		cfg.Playback.MinFrameDelay = d
	}
	if raw.Redis.Enabled != nil {
		cfg.Redis.Enabled = *raw.Redis.Enabled
	}
	if raw.Redis.Addr != "" {
		cfg.Redis.Addr = raw.Redis.Addr
	}
	if raw.Redis.Password != "" {
		cfg.Redis.Password = raw.Redis.Password
	}
	if raw.Redis.DB != nil {
		cfg.Redis.DB = *raw.Redis.DB
	}
	if raw.Redis.Prefix != "" {
		cfg.Redis.Prefix = raw.Redis.Prefix
	}
	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	if raw.Log.Format != "" {
		cfg.Log.Format = raw.Log.Format
	}
	return nil
}

const exampleYAML = `server:
  addr: ":8080"
library:
  dir: recordings
  max_upload_bytes: 536870912
playback:
  looping: false
  loop_delay: 1s
  min_frame_delay: 1ms
redis:
  enabled: false
  addr: localhost:6379
  db: 0
  prefix: "radarplay:"
log:
  level: info
  format: auto
`

const exampleTOML = `[server]
addr = ":8080"

[library]
dir = "recordings"
max_upload_bytes = 536870912

[playback]
looping = false
loop_delay = "1s"
min_frame_delay = "1ms"

[redis]
enabled = false
addr = "localhost:6379"
db = 0
prefix = "radarplay:"

[log]
level = "info"
format = "auto"
`

const exampleJSON = `{
  "server": {
    "addr": ":8080"
  },
  "library": {
    "dir": "recordings",
    "max_upload_bytes": 536870912
  },
  "playback": {
    "looping": false,
    "loop_delay": "1s",
    "min_frame_delay": "1ms"
  },
  "redis": {
    "enabled": false,
    "addr": "localhost:6379",
    "db": 0,
    "prefix": "radarplay:"
  },
  "log": {
    "level": "info",
    "format": "auto"
  }
}
`

// WriteExample writes an example config file to the given path, in the
// format its extension names.
func WriteExample(path string) error {
	var example string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		example = exampleYAML
	case ".toml":
		example = exampleTOML
	case ".json":
		example = exampleJSON
	default:
		return fmt.Errorf("unsupported config format %q, must be .yaml, .yml, .toml or .json", ext)
	}
	return os.WriteFile(path, []byte(example), 0o644)
}
