// Package redisbus mirrors playback onto Redis: frame payloads go out over
// pub/sub and loaded sources are kept in a hash per source plus a set of
// ids, so other processes on the host can discover and follow them.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SmitUplenchwar2687/radarplay/internal/session"
)

const (
	defaultPoolSize    = 10
	defaultMaxRetries  = 3
	defaultDialTimeout = 5 * time.Second
	defaultPrefix      = "radarplay:"

	// publishTimeout bounds one PUBLISH issued from the playback path,
	// which has no caller context.
	publishTimeout = time.Second
)

// Config holds Redis connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	PoolSize    int
	MaxRetries  int
	DialTimeout time.Duration
}

// Bus is a Redis-backed session.Publisher and session.Registry.
type Bus struct {
	client redis.UniversalClient
	prefix string

	closeOnce sync.Once
	closeErr  error
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Bus, error) {
	conf, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        conf.Addr,
		Password:    conf.Password,
		DB:          conf.DB,
		PoolSize:    conf.PoolSize,
		MaxRetries:  conf.MaxRetries,
		DialTimeout: conf.DialTimeout,
	})

	b := &Bus{client: client, prefix: conf.Prefix}
	if err := b.pingWithRetry(ctx, conf.MaxRetries); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return b, nil
}

// Channel returns the pub/sub channel for stream.
func (b *Bus) Channel(stream string) string {
	return b.prefix + stream
}

// SourceKey returns the hash key describing source id.
func (b *Bus) SourceKey(id string) string {
	return b.prefix + "source:" + id
}

// SourcesKey returns the set of registered source ids.
func (b *Bus) SourcesKey() string {
	return b.prefix + "sources"
}

// Publish implements session.Publisher.
func (b *Bus) Publish(stream string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.Channel(stream), payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", stream, err)
	}
	return nil
}

// Register implements session.Registry.
func (b *Bus) Register(ctx context.Context, src session.Source) error {
	caps, err := json.Marshal(src.Capabilities)
	if err != nil {
		return fmt.Errorf("encoding capabilities: %w", err)
	}
	state, err := json.Marshal(src.InitialState)
	if err != nil {
		return fmt.Errorf("encoding initial state: %w", err)
	}

	fields := map[string]any{
		"name":             src.Name,
		"brand":            src.Brand,
		"spokes":           src.Spokes,
		"max_spoke_length": src.MaxSpokeLength,
		"pixel_depth":      src.PixelDepth,
		"start_time_ms":    src.StartTimeMs,
		"capabilities":     caps,
		"initial_state":    state,
		"spokes_stream":    b.Channel(session.SpokesStream(src.ID)),
		"state_stream":     b.Channel(session.StateStream(src.ID)),
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.SourceKey(src.ID), fields)
		pipe.SAdd(ctx, b.SourcesKey(), src.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("registering source %s: %w", src.ID, err)
	}
	return nil
}

// Unregister implements session.Registry.
func (b *Bus) Unregister(ctx context.Context, id string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.SourceKey(id))
		pipe.SRem(ctx, b.SourcesKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unregistering source %s: %w", id, err)
	}
	return nil
}

// Sources returns the ids of registered sources.
func (b *Bus) Sources(ctx context.Context) ([]string, error) {
	return b.client.SMembers(ctx, b.SourcesKey()).Result()
}

// Describe returns the stored description of source id, or nil if it is
// not registered.
func (b *Bus) Describe(ctx context.Context, id string) (map[string]string, error) {
	fields, err := b.client.HGetAll(ctx, b.SourceKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// Subscribe opens a pub/sub subscription on the given streams. The caller
// closes it.
func (b *Bus) Subscribe(ctx context.Context, streams ...string) *redis.PubSub {
	channels := make([]string, len(streams))
	for i, s := range streams {
		channels[i] = b.Channel(s)
	}
	return b.client.Subscribe(ctx, channels...)
}

// Close releases Redis resources. It is idempotent.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.client.Close()
	})
	return b.closeErr
}

func (b *Bus) pingWithRetry(ctx context.Context, maxRetries int) error {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := b.client.Ping(ctx).Err()
		if err == nil {
			return nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("ping failed with unknown error")
	}
	return lastErr
}

func normalizeConfig(cfg Config) (Config, error) {
	if cfg.Addr == "" {
		return cfg, fmt.Errorf("redis addr is required")
	}
	if cfg.DB < 0 {
		return cfg, fmt.Errorf("redis db must be non-negative, got %d", cfg.DB)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return cfg, nil
}

// ParseUint reads a numeric field written by Register.
func ParseUint(fields map[string]string, key string) (uint64, error) {
	v, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("field %q missing", key)
	}
	return strconv.ParseUint(v, 10, 64)
}
