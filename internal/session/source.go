package session

import (
	"context"
	"errors"

	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

// Source describes a loaded recording to the host sensor API.
type Source struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Brand          uint32             `json:"brand"`
	Spokes         uint32             `json:"spokes"`
	MaxSpokeLength uint32             `json:"max_spoke_length"`
	PixelDepth     uint32             `json:"pixel_depth"`
	StartTimeMs    int64              `json:"start_time_ms"`
	Capabilities   recording.Document `json:"capabilities"`
	InitialState   recording.Document `json:"initial_state"`
}

// NewSource builds the Source for rec under id and name.
func NewSource(id, name string, rec *recording.Recording) Source {
	return Source{
		ID:             id,
		Name:           name,
		Brand:          rec.Header.Brand,
		Spokes:         rec.Header.SpokesPerRevolution,
		MaxSpokeLength: rec.Header.MaxSpokeLength,
		PixelDepth:     rec.Header.PixelDepth,
		StartTimeMs:    rec.Header.StartTimeMs,
		Capabilities:   rec.Capabilities,
		InitialState:   rec.InitialState,
	}
}

// Registry registers playback sessions as sensor sources with a host.
type Registry interface {
	Register(ctx context.Context, src Source) error
	Unregister(ctx context.Context, id string) error
}

// Publisher pushes an opaque payload to every subscriber of a named stream.
type Publisher interface {
	Publish(stream string, payload []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(stream string, payload []byte) error

func (f PublisherFunc) Publish(stream string, payload []byte) error {
	return f(stream, payload)
}

// Fanout publishes to every publisher in turn. All are tried even when
// one fails; the failures are joined.
type Fanout []Publisher

func (f Fanout) Publish(stream string, payload []byte) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(stream, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Registries registers with every registry in turn.
type Registries []Registry

func (rs Registries) Register(ctx context.Context, src Source) error {
	for i, r := range rs {
		if err := r.Register(ctx, src); err != nil {
			// Undo the ones that succeeded.
			for _, done := range rs[:i] {
				_ = done.Unregister(ctx, src.ID)
			}
			return err
		}
	}
	return nil
}

func (rs Registries) Unregister(ctx context.Context, id string) error {
	var errs []error
	for _, r := range rs {
		if err := r.Unregister(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopRegistry struct{}

func (nopRegistry) Register(context.Context, Source) error   { return nil }
func (nopRegistry) Unregister(context.Context, string) error { return nil }

// NopRegistry accepts every registration and remembers nothing.
var NopRegistry Registry = nopRegistry{}

// SpokesStream and StateStream name the streams a source publishes on.
func SpokesStream(id string) string { return id + ".spokes" }
func StateStream(id string) string  { return id + ".state" }

// StreamSink delivers frames of source ID through a Publisher: the payload
// to the spokes stream, and the state delta, when present, to the state
// stream.
type StreamSink struct {
	ID        string
	Publisher Publisher
}

func (s *StreamSink) Deliver(f recording.Frame) error {
	err := s.Publisher.Publish(SpokesStream(s.ID), f.Data)
	if f.HasStateDelta() {
		err = errors.Join(err, s.Publisher.Publish(StateStream(s.ID), f.StateDelta))
	}
	return err
}
