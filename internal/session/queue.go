package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/SmitUplenchwar2687/radarplay/internal/metrics"
)

// DefaultQueueSize is the number of messages a PublishQueue holds before
// it starts dropping.
const DefaultQueueSize = 256

// ErrQueueClosed is returned by a PublishQueue after Close.
var ErrQueueClosed = errors.New("publish queue closed")

// QueueOptions configures a PublishQueue.
type QueueOptions struct {
	Size int
	// Block makes Publish wait for room instead of dropping. Only for
	// offline playback, where no wall-clock timing is at stake.
	Block  bool
	Logger *slog.Logger
}

type message struct {
	stream  string
	payload []byte
	ack     chan struct{} // flush marker; no payload
}

// PublishQueue is a Publisher that hands messages to a background worker,
// so a slow downstream Publisher never stalls the caller. When the queue
// is full new messages are dropped and counted. Order is preserved.
type PublishQueue struct {
	next   Publisher
	ch     chan message
	done   chan struct{}
	block  bool
	logger *slog.Logger

	closeOnce sync.Once
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewPublishQueue starts a queue in front of next. Close stops its worker.
func NewPublishQueue(next Publisher, opts QueueOptions) *PublishQueue {
	if opts.Size <= 0 {
		opts.Size = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	q := &PublishQueue{
		next:   next,
		ch:     make(chan message, opts.Size),
		done:   make(chan struct{}),
		block:  opts.Block,
		logger: opts.Logger,
	}
	go q.run()
	return q
}

// Publish enqueues payload for stream. It never waits on the downstream
// Publisher; a full queue drops the message unless the queue blocks.
func (q *PublishQueue) Publish(stream string, payload []byte) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	m := message{stream: stream, payload: payload}
	if q.block {
		select {
		case q.ch <- m:
			return nil
		case <-q.done:
			return ErrQueueClosed
		}
	}
	select {
	case q.ch <- m:
	default:
		if q.dropped.Add(1) == 1 {
			q.logger.Warn("publish queue full, dropping messages", "stream", stream)
		}
		metrics.PublishDropped()
	}
	return nil
}

// Flush waits until every message enqueued before the call has been
// handed to the downstream Publisher.
func (q *PublishQueue) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case q.ch <- message{ack: ack}:
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker and discards queued messages. A message already
// being published is allowed to finish in the background. Close does not
// wait for it.
func (q *PublishQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Dropped is the number of messages discarded because the queue was full.
func (q *PublishQueue) Dropped() uint64 { return q.dropped.Load() }

// Failed is the number of messages the downstream Publisher rejected.
func (q *PublishQueue) Failed() uint64 { return q.failed.Load() }

func (q *PublishQueue) run() {
	for {
		select {
		case <-q.done:
			return
		case m := <-q.ch:
			if m.ack != nil {
				close(m.ack)
				continue
			}
			// A close that raced with the receive wins.
			select {
			case <-q.done:
				return
			default:
			}
			if err := q.next.Publish(m.stream, m.payload); err != nil {
				q.failed.Add(1)
				metrics.PublishError()
				q.logger.Debug("publish failed", "stream", m.stream, "error", err)
			}
		}
	}
}
