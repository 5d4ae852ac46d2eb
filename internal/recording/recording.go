package recording

import "sort"

// IndexEntry points at a frame by absolute file offset.
type IndexEntry struct {
	Offset      uint64 `json:"offset"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// Recording is a fully decoded container. It is immutable once returned by
// Decode; frame payloads alias the decoded buffer.
type Recording struct {
	Header       Header       `json:"header"`
	Footer       Footer       `json:"footer"`
	Capabilities Document     `json:"capabilities"`
	InitialState Document     `json:"initial_state"`
	Frames       []Frame      `json:"-"`
	Index        []IndexEntry `json:"index,omitempty"`

	// offsets[i] is the file offset of Frames[i].
	offsets []uint64
	// indexUsable is set by Decode when Index agrees with Frames.
	indexUsable bool
}

// FrameCount is the number of frames actually decoded.
func (r *Recording) FrameCount() int {
	return len(r.Frames)
}

// FirstTimestampMs returns the first frame's timestamp, or the header
// start time for an empty recording.
func (r *Recording) FirstTimestampMs() int64 {
	if len(r.Frames) == 0 {
		return r.Header.StartTimeMs
	}
	return r.Frames[0].TimestampMs
}

// DurationMs returns the footer duration, or the span between the first
// and last frame when the footer leaves it at zero.
func (r *Recording) DurationMs() int64 {
	if r.Footer.DurationMs > 0 {
		return int64(r.Footer.DurationMs)
	}
	if len(r.Frames) < 2 {
		return 0
	}
	if d := r.Frames[len(r.Frames)-1].TimestampMs - r.Frames[0].TimestampMs; d > 0 {
		return d
	}
	return 0
}

// Locate returns the index of the first frame whose timestamp is at or
// after positionMs, measured from the first frame. Positions past the end
// return FrameCount().
func (r *Recording) Locate(positionMs int64) int {
	if len(r.Frames) == 0 || positionMs <= 0 {
		return 0
	}
	target := r.FirstTimestampMs() + positionMs

	start := 0
	if r.indexUsable {
		// Last index entry before target gives a starting frame. Frames
		// are in order here, so nothing before it can be at or after target.
		i := sort.Search(len(r.Index), func(i int) bool {
			return r.Index[i].TimestampMs >= target
		})
		if i > 0 {
			start, _ = r.frameAtOffset(r.Index[i-1].Offset)
		}
	}
	for j := start; j < len(r.Frames); j++ {
		if r.Frames[j].TimestampMs >= target {
			return j
		}
	}
	return len(r.Frames)
}

// frameAtOffset maps a file offset to a frame index.
func (r *Recording) frameAtOffset(off uint64) (int, bool) {
	i := sort.Search(len(r.offsets), func(i int) bool {
		return r.offsets[i] >= off
	})
	if i < len(r.offsets) && r.offsets[i] == off {
		return i, true
	}
	return 0, false
}
