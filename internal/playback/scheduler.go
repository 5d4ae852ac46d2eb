// Package playback drives timed delivery of decoded recording frames.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/radarplay/internal/clock"
	"github.com/SmitUplenchwar2687/radarplay/internal/metrics"
	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

const (
	// DefaultLoopDelay is the pause between the last frame and the restart
	// at frame 0 when looping.
	DefaultLoopDelay = time.Second
	// DefaultMinFrameDelay is the floor applied to inter-frame delays so
	// duplicate or backwards timestamps can't spin.
	DefaultMinFrameDelay = time.Millisecond
)

// Options tunes a Scheduler. Zero values select the defaults.
type Options struct {
	LoopDelay     time.Duration
	MinFrameDelay time.Duration
	Logger        *slog.Logger
}

// Status is a point-in-time view of playback.
type Status struct {
	State      State  `json:"state"`
	PositionMs int64  `json:"position_ms"`
	DurationMs int64  `json:"duration_ms"`
	FrameIndex int    `json:"frame_index"`
	FrameCount int    `json:"frame_count"`
	Looping    bool   `json:"looping"`
	SinkErrors uint64 `json:"sink_errors"`
	LastError  string `json:"last_error,omitempty"`
}

// Scheduler replays one recording into a Sink, reproducing the recorded
// gaps between frames.
//
// At most one deferred delivery is pending at any time. Every control
// operation cancels it under the same lock the delivery callback takes, and
// each callback carries the generation it was armed with, so a callback
// that lost the race to a cancel finds a stale generation and does nothing.
//
// Safe for concurrent use.
type Scheduler struct {
	mu     sync.Mutex
	clock  clock.Clock
	sink   Sink
	logger *slog.Logger

	loopDelay     time.Duration
	minFrameDelay time.Duration

	rec        *recording.Recording
	state      State
	next       int   // index of the next frame to deliver
	positionMs int64 // position of the last delivered frame, from the first frame
	looping    bool

	timer      clock.Timer
	gen        uint64
	due        time.Time // nominal delivery time of the current step
	pendingDue time.Time // nominal delivery time of the armed step

	sinkErrors uint64
	lastErr    string
}

// New creates an idle Scheduler.
func New(clk clock.Clock, sink Sink, opts Options) *Scheduler {
	if opts.LoopDelay <= 0 {
		opts.LoopDelay = DefaultLoopDelay
	}
	if opts.MinFrameDelay <= 0 {
		opts.MinFrameDelay = DefaultMinFrameDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if sink == nil {
		sink = Discard
	}
	return &Scheduler{
		clock:         clk,
		sink:          sink,
		logger:        opts.Logger,
		loopDelay:     opts.LoopDelay,
		minFrameDelay: opts.MinFrameDelay,
	}
}

// Load replaces the current recording and moves to Loaded at frame 0. Any
// pending delivery for the previous recording is cancelled first. Loading
// nil is the same as Stop.
func (s *Scheduler) Load(rec *recording.Recording) {
	if rec == nil {
		s.Stop()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.rec = rec
	s.next = 0
	s.positionMs = 0
	s.sinkErrors = 0
	s.lastErr = ""
	s.setStateLocked(Loaded)
	s.logger.Debug("recording loaded", "frames", rec.FrameCount(), "duration_ms", rec.DurationMs())
}

// Play starts or resumes delivery. The current frame goes out before Play
// returns. Playing from Finished restarts at frame 0. No-op when Idle or
// already Playing.
func (s *Scheduler) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Idle, Playing:
		return
	case Finished:
		s.next = 0
		s.positionMs = 0
	}

	if s.rec.FrameCount() == 0 {
		s.setStateLocked(Finished)
		return
	}

	s.setStateLocked(Playing)
	s.due = s.clock.Now()
	s.deliverLocked()
}

// Pause suspends delivery, keeping the cursor. No-op unless Playing.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return
	}
	s.cancelLocked()
	s.setStateLocked(Paused)
}

// Stop cancels delivery, releases the recording and returns to Idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.rec = nil
	s.next = 0
	s.positionMs = 0
	s.setStateLocked(Idle)
}

// Seek moves the cursor to the first frame at or after positionMs. While
// Playing, delivery continues from there immediately. Seeking a Finished
// recording leaves it Paused at the new position. No-op when Idle.
func (s *Scheduler) Seek(positionMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle {
		return
	}
	if positionMs < 0 {
		positionMs = 0
	}

	s.next = s.rec.Locate(positionMs)
	if s.next < s.rec.FrameCount() {
		s.positionMs = s.rec.Frames[s.next].TimestampMs - s.rec.FirstTimestampMs()
	} else {
		s.positionMs = s.rec.DurationMs()
	}

	switch s.state {
	case Playing:
		s.cancelLocked()
		s.due = s.clock.Now()
		s.deliverLocked()
	case Finished:
		s.setStateLocked(Paused)
	}
}

// SetLooping toggles looping. It takes effect at the end of the sequence.
func (s *Scheduler) SetLooping(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.looping = on
}

// Looping reports whether looping is on.
func (s *Scheduler) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.looping
}

// Status returns a snapshot of the playback state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:      s.state,
		PositionMs: s.positionMs,
		FrameIndex: s.next,
		Looping:    s.looping,
		SinkErrors: s.sinkErrors,
		LastError:  s.lastErr,
	}
	if s.rec != nil {
		st.DurationMs = s.rec.DurationMs()
		st.FrameCount = s.rec.FrameCount()
	}
	return st
}

// deliverLocked sends the frame at the cursor, then arms the next step.
// Must be called with s.mu held and s.state == Playing.
func (s *Scheduler) deliverLocked() {
	frames := s.rec.Frames
	if s.next >= len(frames) {
		s.endLocked()
		return
	}

	f := frames[s.next]
	if err := s.sink.Deliver(f); err != nil {
		s.sinkErrors++
		s.lastErr = err.Error()
		metrics.SinkError()
		s.logger.Warn("frame delivery failed", "frame", s.next, "timestamp_ms", f.TimestampMs, "error", err)
	} else {
		metrics.FrameDelivered()
	}
	s.positionMs = f.TimestampMs - frames[0].TimestampMs
	s.next++

	if s.next >= len(frames) {
		s.endLocked()
		return
	}

	gap := time.Duration(frames[s.next].TimestampMs-f.TimestampMs) * time.Millisecond
	s.armLocked(gap, s.deliverLocked)
}

// endLocked handles the end of the sequence: wrap after the loop delay, or
// finish. Must be called with s.mu held.
func (s *Scheduler) endLocked() {
	if !s.looping {
		s.setStateLocked(Finished)
		s.logger.Debug("playback finished", "frames", s.rec.FrameCount())
		return
	}
	s.armLocked(s.loopDelay, s.wrapLocked)
}

// wrapLocked restarts at frame 0. Looping is re-checked so that turning it
// off during the loop delay ends playback instead of wrapping.
func (s *Scheduler) wrapLocked() {
	if !s.looping {
		s.setStateLocked(Finished)
		return
	}
	metrics.LoopWrap()
	s.next = 0
	s.positionMs = 0
	s.deliverLocked()
}

// armLocked schedules step after gap, measured from the nominal time of
// the current step rather than from now, so late callbacks don't push the
// rest of the recording back. The delay never drops below minFrameDelay.
// Must be called with s.mu held.
func (s *Scheduler) armLocked(gap time.Duration, step func()) {
	if gap < s.minFrameDelay {
		gap = s.minFrameDelay
	}
	s.pendingDue = s.due.Add(gap)
	delay := s.pendingDue.Sub(s.clock.Now())
	if delay < s.minFrameDelay {
		delay = s.minFrameDelay
	}

	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if gen != s.gen || s.state != Playing {
			return
		}
		s.timer = nil
		s.due = s.pendingDue
		step()
	})
}

// cancelLocked drops the pending step, if any. Must be called with s.mu held.
func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) setStateLocked(st State) {
	s.state = st
	metrics.SetState(st.String())
}
