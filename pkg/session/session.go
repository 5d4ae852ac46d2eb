// Package session exposes the single-session manager for embedding.
package session

import internalsession "github.com/SmitUplenchwar2687/radarplay/internal/session"

// Manager keeps exactly one playback active at a time.
type Manager = internalsession.Manager

// Options configures a Manager.
type Options = internalsession.Options

// Status is the session view of playback.
type Status = internalsession.Status

// LoadResult describes a successfully loaded recording.
type LoadResult = internalsession.LoadResult

// Source is what a Registry learns about a loaded recording.
type Source = internalsession.Source

// Registry announces sources to the host.
type Registry = internalsession.Registry

// Publisher carries frame and state payloads to a named stream.
type Publisher = internalsession.Publisher

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc = internalsession.PublisherFunc

// Fanout publishes to every member.
type Fanout = internalsession.Fanout

// ErrNoRecording is returned by controls that need a loaded recording.
var ErrNoRecording = internalsession.ErrNoRecording

// NewManager creates a Manager with nothing loaded.
func NewManager(opts Options) *Manager {
	return internalsession.NewManager(opts)
}

// SpokesStream names the stream that carries frame data for id.
func SpokesStream(id string) string { return internalsession.SpokesStream(id) }

// StateStream names the stream that carries state deltas for id.
func StateStream(id string) string { return internalsession.StateStream(id) }
