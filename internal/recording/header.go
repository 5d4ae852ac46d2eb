package recording

import (
	"encoding/binary"
	"time"
)

// Header holds the fixed-offset fields at the start of a recording.
type Header struct {
	Version             uint16 `json:"version"`
	Flags               uint16 `json:"flags"`
	Brand               uint32 `json:"brand"`
	SpokesPerRevolution uint32 `json:"spokes_per_revolution"`
	MaxSpokeLength      uint32 `json:"max_spoke_length"`
	PixelDepth          uint32 `json:"pixel_depth"`
	StartTimeMs         int64  `json:"start_time_ms"`
	CapabilitiesOffset  uint64 `json:"capabilities_offset"`
	CapabilitiesLength  uint32 `json:"capabilities_length"`
	InitialStateOffset  uint64 `json:"initial_state_offset"`
	InitialStateLength  uint32 `json:"initial_state_length"`
	FramesOffset        uint64 `json:"frames_offset"`
}

// StartTime returns the recording start as a UTC time.
func (h Header) StartTime() time.Time {
	return time.UnixMilli(h.StartTimeMs).UTC()
}

// AppendBinary appends the HeaderSize-byte encoding of h, magic included.
func (h Header) AppendBinary(b []byte) []byte {
	var buf [HeaderSize]byte
	le := binary.LittleEndian
	copy(buf[hdrMagic:], HeaderMagic)
	le.PutUint16(buf[hdrVersion:], h.Version)
	le.PutUint16(buf[hdrFlags:], h.Flags)
	le.PutUint32(buf[hdrBrand:], h.Brand)
	le.PutUint32(buf[hdrSpokes:], h.SpokesPerRevolution)
	le.PutUint32(buf[hdrMaxSpokeLen:], h.MaxSpokeLength)
	le.PutUint32(buf[hdrPixelDepth:], h.PixelDepth)
	le.PutUint64(buf[hdrStartTime:], uint64(h.StartTimeMs))
	le.PutUint64(buf[hdrCapsOffset:], h.CapabilitiesOffset)
	le.PutUint32(buf[hdrCapsLength:], h.CapabilitiesLength)
	le.PutUint64(buf[hdrStateOffset:], h.InitialStateOffset)
	le.PutUint32(buf[hdrStateLength:], h.InitialStateLength)
	le.PutUint64(buf[hdrFramesOffset:], h.FramesOffset)
	return append(b, buf[:]...)
}

func parseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, decodeErr(MalformedContainer, 0, "file is %d bytes, header needs %d", len(buf), HeaderSize)
	}
	if string(buf[hdrMagic:hdrMagic+4]) != HeaderMagic {
		return Header{}, decodeErr(MalformedContainer, hdrMagic, "header magic %q, want %q", buf[hdrMagic:hdrMagic+4], HeaderMagic)
	}

	le := binary.LittleEndian
	h := Header{Version: le.Uint16(buf[hdrVersion:])}
	if h.Version > SupportedVersion {
		return Header{}, decodeErr(UnsupportedVersion, hdrVersion, "version %d, newest supported is %d", h.Version, SupportedVersion)
	}

	h.Flags = le.Uint16(buf[hdrFlags:])
	h.Brand = le.Uint32(buf[hdrBrand:])
	h.SpokesPerRevolution = le.Uint32(buf[hdrSpokes:])
	h.MaxSpokeLength = le.Uint32(buf[hdrMaxSpokeLen:])
	h.PixelDepth = le.Uint32(buf[hdrPixelDepth:])
	h.StartTimeMs = int64(le.Uint64(buf[hdrStartTime:]))
	h.CapabilitiesOffset = le.Uint64(buf[hdrCapsOffset:])
	h.CapabilitiesLength = le.Uint32(buf[hdrCapsLength:])
	h.InitialStateOffset = le.Uint64(buf[hdrStateOffset:])
	h.InitialStateLength = le.Uint32(buf[hdrStateLength:])
	h.FramesOffset = le.Uint64(buf[hdrFramesOffset:])
	return h, nil
}
