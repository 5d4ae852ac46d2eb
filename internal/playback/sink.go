package playback

import "github.com/SmitUplenchwar2687/radarplay/internal/recording"

// Sink receives frames in stored order. Deliver runs with the scheduler
// lock held, so it must return promptly and must not call back into the
// Scheduler. Sinks that do network I/O hand it off; see session.PublishQueue.
type Sink interface {
	Deliver(frame recording.Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(frame recording.Frame) error

func (f SinkFunc) Deliver(frame recording.Frame) error {
	return f(frame)
}

// Discard is a Sink that drops every frame.
var Discard Sink = SinkFunc(func(recording.Frame) error { return nil })
