package recording

import "encoding/binary"

// Frame is one timestamped record. Data and StateDelta are opaque.
type Frame struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Flags       byte   `json:"flags"`
	Data        []byte `json:"-"`
	StateDelta  []byte `json:"-"`
}

// HasStateDelta reports whether the frame carries a state delta.
func (f Frame) HasStateDelta() bool {
	return f.Flags&FrameHasStateDelta != 0
}

// EncodedSize is the number of bytes f occupies in a recording.
func (f Frame) EncodedSize() int {
	n := frameFixedSize + len(f.Data)
	if f.HasStateDelta() {
		n += 4 + len(f.StateDelta)
	}
	return n
}

// AppendBinary appends the encoded frame.
func (f Frame) AppendBinary(b []byte) []byte {
	le := binary.LittleEndian
	b = le.AppendUint64(b, uint64(f.TimestampMs))
	b = append(b, f.Flags)
	b = le.AppendUint32(b, uint32(len(f.Data)))
	b = append(b, f.Data...)
	if f.HasStateDelta() {
		b = le.AppendUint32(b, uint32(len(f.StateDelta)))
		b = append(b, f.StateDelta...)
	}
	return b
}

// decodeFrame reads one frame at off. limit is the first byte the frame
// may not touch. It returns the frame and the offset just past it.
func decodeFrame(buf []byte, off, limit int) (Frame, int, error) {
	le := binary.LittleEndian
	if limit-off < frameFixedSize {
		return Frame{}, off, decodeErr(TruncatedFrame, int64(off), "frame header needs %d bytes, %d remain", frameFixedSize, limit-off)
	}

	f := Frame{
		TimestampMs: int64(le.Uint64(buf[off:])),
		Flags:       buf[off+8],
	}
	dataLen := int64(le.Uint32(buf[off+9:]))
	cur := off + frameFixedSize
	if dataLen > int64(limit-cur) {
		return Frame{}, off, decodeErr(TruncatedFrame, int64(off), "data length %d exceeds %d remaining bytes", dataLen, limit-cur)
	}
	f.Data = buf[cur : cur+int(dataLen) : cur+int(dataLen)]
	cur += int(dataLen)

	if f.HasStateDelta() {
		if limit-cur < 4 {
			return Frame{}, off, decodeErr(TruncatedFrame, int64(off), "state length needs 4 bytes, %d remain", limit-cur)
		}
		stateLen := int64(le.Uint32(buf[cur:]))
		cur += 4
		if stateLen > int64(limit-cur) {
			return Frame{}, off, decodeErr(TruncatedFrame, int64(off), "state length %d exceeds %d remaining bytes", stateLen, limit-cur)
		}
		f.StateDelta = buf[cur : cur+int(stateLen) : cur+int(stateLen)]
		cur += int(stateLen)
	}
	return f, cur, nil
}
