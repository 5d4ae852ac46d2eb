// Package session owns the single active playback: it decodes uploads,
// swaps schedulers and keeps the host registration in step.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/SmitUplenchwar2687/radarplay/internal/clock"
	"github.com/SmitUplenchwar2687/radarplay/internal/metrics"
	"github.com/SmitUplenchwar2687/radarplay/internal/playback"
	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

// ErrNoRecording is returned by controls that need a loaded recording.
var ErrNoRecording = errors.New("no recording loaded")

// Options configures a Manager. Nil collaborators fall back to no-ops.
type Options struct {
	Clock     clock.Clock
	Registry  Registry
	Publisher Publisher
	Playback  playback.Options
	Looping   bool
	Logger    *slog.Logger

	// QueueSize bounds the per-session publish queue (DefaultQueueSize
	// when zero). BlockWhenFull makes delivery wait for room instead of
	// dropping; use it only with a virtual clock.
	QueueSize     int
	BlockWhenFull bool
}

// LoadResult describes a successfully loaded recording.
type LoadResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	FrameCount int    `json:"frame_count"`
}

// Status is the session view of playback. Dropped and PublishErrors come
// from the publish queue, after the scheduler has handed frames off.
type Status struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	playback.Status
	Dropped       uint64 `json:"dropped"`
	PublishErrors uint64 `json:"publish_errors"`
}

// Manager keeps exactly one scheduler active at a time.
type Manager struct {
	mu        sync.Mutex
	clock     clock.Clock
	registry  Registry
	publisher Publisher
	playOpts  playback.Options
	queueOpts QueueOptions
	logger    *slog.Logger

	looping bool
	id      string
	name    string
	sched   *playback.Scheduler
	queue   *PublishQueue
}

// NewManager creates a Manager with nothing loaded.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.Registry == nil {
		opts.Registry = NopRegistry
	}
	if opts.Publisher == nil {
		opts.Publisher = Fanout(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Playback.Logger == nil {
		opts.Playback.Logger = opts.Logger
	}
	return &Manager{
		clock:     opts.Clock,
		registry:  opts.Registry,
		publisher: opts.Publisher,
		playOpts:  opts.Playback,
		queueOpts: QueueOptions{Size: opts.QueueSize, Block: opts.BlockWhenFull, Logger: opts.Logger},
		logger:    opts.Logger,
		looping:   opts.Looping,
	}
}

// Load decodes data and makes it the active recording. name selects gzip
// handling by suffix. A decode failure leaves the current session as it
// was; the error carries the recording.Kind.
func (m *Manager) Load(ctx context.Context, name string, data []byte) (LoadResult, error) {
	rec, err := recording.DecodeNamed(name, data)
	if err != nil {
		metrics.LoadResult(recording.KindOf(err).String())
		return LoadResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked(ctx)

	id := uuid.NewString()
	// Deliveries run under the scheduler lock; the queue keeps network
	// writes off that path.
	queue := NewPublishQueue(m.publisher, m.queueOpts)
	sched := playback.New(m.clock, &StreamSink{ID: id, Publisher: queue}, m.playOpts)
	sched.SetLooping(m.looping)
	sched.Load(rec)

	if err := m.registry.Register(ctx, NewSource(id, name, rec)); err != nil {
		sched.Stop()
		queue.Close()
		metrics.LoadResult("register_failed")
		return LoadResult{}, fmt.Errorf("registering source: %w", err)
	}

	m.id, m.name, m.sched, m.queue = id, name, sched, queue
	metrics.LoadResult("ok")
	m.logger.Info("recording loaded",
		"id", id,
		"name", name,
		"frames", rec.FrameCount(),
		"duration_ms", rec.DurationMs(),
	)

	return LoadResult{
		ID:         id,
		Name:       name,
		DurationMs: rec.DurationMs(),
		FrameCount: rec.FrameCount(),
	}, nil
}

// Play starts or resumes playback.
func (m *Manager) Play() error {
	return m.withScheduler((*playback.Scheduler).Play)
}

// Pause suspends playback.
func (m *Manager) Pause() error {
	return m.withScheduler((*playback.Scheduler).Pause)
}

// Seek moves playback to positionMs from the first frame.
func (m *Manager) Seek(positionMs int64) error {
	return m.withScheduler(func(s *playback.Scheduler) { s.Seek(positionMs) })
}

// Stop ends playback and unregisters the source. Stopping with nothing
// loaded is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked(ctx)
}

// SetLooping sets looping for the current and future recordings.
func (m *Manager) SetLooping(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.looping = on
	if m.sched != nil {
		m.sched.SetLooping(on)
	}
}

// Looping reports the looping setting.
func (m *Manager) Looping() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.looping
}

// Status returns the active session's status, or an idle status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sched == nil {
		return Status{Status: playback.Status{State: playback.Idle, Looping: m.looping}}
	}
	return Status{
		ID:            m.id,
		Name:          m.name,
		Status:        m.sched.Status(),
		Dropped:       m.queue.Dropped(),
		PublishErrors: m.queue.Failed(),
	}
}

// Flush waits until every frame delivered so far has been handed to the
// Publisher. With nothing loaded it returns at once.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	q := m.queue
	m.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.Flush(ctx)
}

// Close stops playback. It is Stop with a name that suits defer.
func (m *Manager) Close(ctx context.Context) error {
	return m.Stop(ctx)
}

func (m *Manager) withScheduler(fn func(*playback.Scheduler)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sched == nil {
		return ErrNoRecording
	}
	fn(m.sched)
	return nil
}

// releaseLocked stops the active scheduler and unregisters its source.
// The scheduler is cancelled before the host hears about it so no frame
// goes out for an unregistered source.
func (m *Manager) releaseLocked(ctx context.Context) error {
	if m.sched == nil {
		return nil
	}
	m.sched.Stop()
	m.queue.Close()
	id := m.id
	m.id, m.name, m.sched, m.queue = "", "", nil, nil

	if err := m.registry.Unregister(ctx, id); err != nil {
		m.logger.Warn("unregister failed", "id", id, "error", err)
		return fmt.Errorf("unregistering source %s: %w", id, err)
	}
	m.logger.Info("playback stopped", "id", id)
	return nil
}
