package recording

import (
	"encoding/binary"
	"time"
)

// Footer holds the fixed-offset fields in the last FooterSize bytes of a recording.
type Footer struct {
	IndexOffset uint64 `json:"index_offset"`
	IndexCount  uint32 `json:"index_count"`
	FrameCount  uint32 `json:"frame_count"`
	DurationMs  uint64 `json:"duration_ms"`
}

// Duration returns DurationMs as a time.Duration.
func (f Footer) Duration() time.Duration {
	return time.Duration(f.DurationMs) * time.Millisecond
}

// AppendBinary appends the FooterSize-byte encoding of f, magic included.
func (f Footer) AppendBinary(b []byte) []byte {
	var buf [FooterSize]byte
	le := binary.LittleEndian
	copy(buf[ftrMagic:], FooterMagic)
	le.PutUint64(buf[ftrIndexOffset:], f.IndexOffset)
	le.PutUint32(buf[ftrIndexCount:], f.IndexCount)
	le.PutUint32(buf[ftrFrameCount:], f.FrameCount)
	le.PutUint64(buf[ftrDuration:], f.DurationMs)
	return append(b, buf[:]...)
}

// parseFooter reads the footer from the tail of buf. It never looks at the
// header, so a truncated file is caught here even if the header is intact.
func parseFooter(buf []byte) (Footer, error) {
	if len(buf) < FooterSize {
		return Footer{}, decodeErr(MalformedContainer, 0, "file is %d bytes, footer needs %d", len(buf), FooterSize)
	}
	start := len(buf) - FooterSize
	w := buf[start:]
	if string(w[ftrMagic:ftrMagic+4]) != FooterMagic {
		return Footer{}, decodeErr(MalformedContainer, int64(start), "footer magic %q, want %q", w[ftrMagic:ftrMagic+4], FooterMagic)
	}

	le := binary.LittleEndian
	return Footer{
		IndexOffset: le.Uint64(w[ftrIndexOffset:]),
		IndexCount:  le.Uint32(w[ftrIndexCount:]),
		FrameCount:  le.Uint32(w[ftrFrameCount:]),
		DurationMs:  le.Uint64(w[ftrDuration:]),
	}, nil
}
