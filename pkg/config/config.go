package config

import internalconfig "github.com/SmitUplenchwar2687/radarplay/internal/config"

// Config is the top-level radarplay configuration.
type Config = internalconfig.Config

// ServerConfig holds HTTP server settings.
type ServerConfig = internalconfig.ServerConfig

// LibraryConfig holds recording library settings.
type LibraryConfig = internalconfig.LibraryConfig

// PlaybackConfig holds scheduler timing and looping settings.
type PlaybackConfig = internalconfig.PlaybackConfig

// RedisConfig configures the optional Redis mirror.
type RedisConfig = internalconfig.RedisConfig

// LogConfig selects the log level and format.
type LogConfig = internalconfig.LogConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// LoadFile reads a YAML, TOML or JSON config file and merges it with defaults.
func LoadFile(path string) (Config, error) {
	return internalconfig.LoadFile(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
