// Package recording exposes the recording decoder for embedding.
package recording

import internalrecording "github.com/SmitUplenchwar2687/radarplay/internal/recording"

// Recording is a fully decoded container.
type Recording = internalrecording.Recording

// Header holds the fixed-offset fields at the start of a recording.
type Header = internalrecording.Header

// Footer holds the fixed-offset fields at the end of a recording.
type Footer = internalrecording.Footer

// Frame is one timestamped record.
type Frame = internalrecording.Frame

// IndexEntry points at a frame by file offset.
type IndexEntry = internalrecording.IndexEntry

// Document is a decoded JSON object blob.
type Document = internalrecording.Document

// DecodeError reports why a recording was rejected.
type DecodeError = internalrecording.DecodeError

// Kind classifies decode failures.
type Kind = internalrecording.Kind

// EncodeOptions controls optional sections written by Encode.
type EncodeOptions = internalrecording.EncodeOptions

// Decode parses an uncompressed recording.
func Decode(buf []byte) (*Recording, error) {
	return internalrecording.Decode(buf)
}

// DecodeNamed decodes buf, gunzipping first when name ends in .gz.
func DecodeNamed(name string, buf []byte) (*Recording, error) {
	return internalrecording.DecodeNamed(name, buf)
}

// ReadFile reads and decodes the recording at path.
func ReadFile(path string) (*Recording, error) {
	return internalrecording.ReadFile(path)
}

// Encode lays out a complete recording.
func Encode(h Header, caps, state Document, frames []Frame, opts EncodeOptions) ([]byte, error) {
	return internalrecording.Encode(h, caps, state, frames, opts)
}

// KindOf returns the Kind carried by err.
func KindOf(err error) Kind {
	return internalrecording.KindOf(err)
}
