package recording

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// EncodeOptions controls optional sections written by Encode.
type EncodeOptions struct {
	// IndexEvery writes an index entry for every Nth frame (0 = no index).
	IndexEvery int
}

// Encode lays out a complete recording: header, capabilities, initial
// state, frames, optional index and footer. Section offsets in h are
// computed; the remaining header fields are written as given, with a zero
// Version defaulting to SupportedVersion. It backs fixtures and synthetic
// files, not live capture.
func Encode(h Header, caps, state Document, frames []Frame, opts EncodeOptions) ([]byte, error) {
	capsBlob, err := encodeDocument(caps)
	if err != nil {
		return nil, fmt.Errorf("encoding capabilities: %w", err)
	}
	stateBlob, err := encodeDocument(state)
	if err != nil {
		return nil, fmt.Errorf("encoding initial state: %w", err)
	}
	if uint64(len(frames)) > math.MaxUint32 {
		return nil, fmt.Errorf("too many frames: %d", len(frames))
	}

	if h.Version == 0 {
		h.Version = SupportedVersion
	}
	h.CapabilitiesOffset = HeaderSize
	h.CapabilitiesLength = uint32(len(capsBlob))
	h.InitialStateOffset = h.CapabilitiesOffset + uint64(len(capsBlob))
	h.InitialStateLength = uint32(len(stateBlob))
	h.FramesOffset = h.InitialStateOffset + uint64(len(stateBlob))

	size := int(h.FramesOffset) + FooterSize
	for _, f := range frames {
		size += f.EncodedSize()
	}

	buf := make([]byte, 0, size)
	buf = h.AppendBinary(buf)
	buf = append(buf, capsBlob...)
	buf = append(buf, stateBlob...)

	var index []IndexEntry
	for i, f := range frames {
		if opts.IndexEvery > 0 && i%opts.IndexEvery == 0 {
			index = append(index, IndexEntry{Offset: uint64(len(buf)), TimestampMs: f.TimestampMs})
		}
		buf = f.AppendBinary(buf)
	}

	footer := Footer{FrameCount: uint32(len(frames))}
	if len(frames) > 1 {
		if d := frames[len(frames)-1].TimestampMs - frames[0].TimestampMs; d > 0 {
			footer.DurationMs = uint64(d)
		}
	}
	if len(index) > 0 {
		footer.IndexOffset = uint64(len(buf))
		footer.IndexCount = uint32(len(index))
		for _, e := range index {
			buf = appendIndexEntry(buf, e)
		}
	}

	return footer.AppendBinary(buf), nil
}

func appendIndexEntry(b []byte, e IndexEntry) []byte {
	b = binary.LittleEndian.AppendUint64(b, e.Offset)
	return binary.LittleEndian.AppendUint64(b, uint64(e.TimestampMs))
}

func encodeDocument(d Document) ([]byte, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]any(d))
}
