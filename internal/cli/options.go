package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/radarplay/internal/config"
	"github.com/SmitUplenchwar2687/radarplay/internal/logging"
	"github.com/SmitUplenchwar2687/radarplay/internal/playback"
	"github.com/SmitUplenchwar2687/radarplay/internal/redisbus"
)

const defaultRedisPort = "6379"

// runtimeOptions holds the flags shared by commands that touch config.
// Flags only override the config file when set explicitly.
type runtimeOptions struct {
	configPath    string
	addr          string
	libraryDir    string
	looping       bool
	loopDelay     time.Duration
	minFrameDelay time.Duration
	redisEnabled  bool
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	logLevel      string
	logFormat     string
}

func (o *runtimeOptions) addConfigFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().StringVar(&o.configPath, "config", "", "config file (.yaml, .toml or .json)")
	cmd.Flags().StringVar(&o.logLevel, "log-level", def.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&o.logFormat, "log-format", def.Log.Format, "log format (auto, text, json)")
}

func (o *runtimeOptions) addLibraryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.libraryDir, "dir", config.Default().Library.Dir, "recordings directory")
}

func (o *runtimeOptions) addPlaybackFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().BoolVar(&o.looping, "loop", def.Playback.Looping, "restart at the first frame after the last")
	cmd.Flags().DurationVar(&o.loopDelay, "loop-delay", def.Playback.LoopDelay, "pause between the last frame and the restart")
	cmd.Flags().DurationVar(&o.minFrameDelay, "min-frame-delay", def.Playback.MinFrameDelay, "floor for the delay between frames")
}

func (o *runtimeOptions) addRedisFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().BoolVar(&o.redisEnabled, "redis", def.Redis.Enabled, "mirror playback onto redis")
	cmd.Flags().StringVar(&o.redisAddr, "redis-addr", def.Redis.Addr, "redis address (host or host:port)")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", def.Redis.DB, "redis database index")
	cmd.Flags().StringVar(&o.redisPrefix, "redis-prefix", def.Redis.Prefix, "prefix for redis keys and channels")
}

// resolve loads the config file, if any, applies explicitly set flags over
// it and validates the result.
func (o *runtimeOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if changed("dir") {
		cfg.Library.Dir = o.libraryDir
	}
	if changed("loop") {
		cfg.Playback.Looping = o.looping
	}
	if changed("loop-delay") {
		cfg.Playback.LoopDelay = o.loopDelay
	}
	if changed("min-frame-delay") {
		cfg.Playback.MinFrameDelay = o.minFrameDelay
	}
	if changed("redis") {
		cfg.Redis.Enabled = o.redisEnabled
	}
	if changed("redis-addr") {
		cfg.Redis.Addr = o.redisAddr
	}
	if changed("redis-password") {
		cfg.Redis.Password = o.redisPassword
	}
	if changed("redis-db") {
		cfg.Redis.DB = o.redisDB
	}
	if changed("redis-prefix") {
		cfg.Redis.Prefix = o.redisPrefix
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = o.logFormat
	}

	if cfg.Redis.Enabled {
		addr, err := normalizeRedisAddr(cfg.Redis.Addr)
		if err != nil {
			return cfg, err
		}
		cfg.Redis.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func playbackOptions(cfg config.Config, logger *slog.Logger) playback.Options {
	return playback.Options{
		LoopDelay:     cfg.Playback.LoopDelay,
		MinFrameDelay: cfg.Playback.MinFrameDelay,
		Logger:        logger,
	}
}

// openBus connects to redis when enabled. It returns nil otherwise.
func openBus(ctx context.Context, cfg config.Config) (*redisbus.Bus, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	bus, err := redisbus.New(ctx, redisbus.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return bus, nil
}

// normalizeRedisAddr accepts host or host:port and returns host:port.
func normalizeRedisAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("redis address cannot be empty")
	}
	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, defaultRedisPort), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid redis address %q: %w", addr, err)
	}
	if port == "" {
		port = defaultRedisPort
	}
	return net.JoinHostPort(host, port), nil
}
