package server

import (
	internalserver "github.com/SmitUplenchwar2687/radarplay/internal/server"
	"github.com/SmitUplenchwar2687/radarplay/internal/stream"
)

// Server is the radarplay HTTP server.
type Server = internalserver.Server

// Options wires a Server to its collaborators.
type Options = internalserver.Options

// Hub fans published frames out to WebSocket subscribers.
type Hub = stream.Hub

// DashboardHTML is the embedded control page.
const DashboardHTML = internalserver.DashboardHTML

// New creates a new radarplay server.
func New(opts Options) *Server {
	return internalserver.New(opts)
}

// NewHub creates a new WebSocket hub. Pass it as a session Publisher to
// stream playback to subscribers.
func NewHub() *Hub {
	return stream.NewHub(nil)
}
