// Package playback exposes the frame scheduler for embedding.
package playback

import (
	internalplayback "github.com/SmitUplenchwar2687/radarplay/internal/playback"
	"github.com/SmitUplenchwar2687/radarplay/pkg/clock"
)

// Scheduler replays one recording into a Sink.
type Scheduler = internalplayback.Scheduler

// Options tunes a Scheduler.
type Options = internalplayback.Options

// Status is a point-in-time view of playback.
type Status = internalplayback.Status

// State is the playback lifecycle state.
type State = internalplayback.State

// Sink receives delivered frames.
type Sink = internalplayback.Sink

// SinkFunc adapts a function to a Sink.
type SinkFunc = internalplayback.SinkFunc

// Playback states.
const (
	Idle     = internalplayback.Idle
	Loaded   = internalplayback.Loaded
	Playing  = internalplayback.Playing
	Paused   = internalplayback.Paused
	Finished = internalplayback.Finished
)

// New creates an idle scheduler.
func New(clk clock.Clock, sink Sink, opts Options) *Scheduler {
	return internalplayback.New(clk, sink, opts)
}
