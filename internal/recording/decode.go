package recording

import "encoding/binary"

// Decode parses a complete, already decompressed recording. It either
// returns the whole Recording or a *DecodeError; nothing is recovered from
// a corrupt file. The returned frames alias buf, so callers must not
// modify buf afterwards.
func Decode(buf []byte) (*Recording, error) {
	header, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	footer, err := parseFooter(buf)
	if err != nil {
		return nil, err
	}

	rec := &Recording{Header: header, Footer: footer}

	caps, err := sliceSection(buf, "capabilities", header.CapabilitiesOffset, header.CapabilitiesLength)
	if err != nil {
		return nil, err
	}
	if rec.Capabilities, err = parseDocument("capabilities", caps, int64(header.CapabilitiesOffset)); err != nil {
		return nil, err
	}

	state, err := sliceSection(buf, "initial state", header.InitialStateOffset, header.InitialStateLength)
	if err != nil {
		return nil, err
	}
	if rec.InitialState, err = parseDocument("initial state", state, int64(header.InitialStateOffset)); err != nil {
		return nil, err
	}

	if footer.IndexCount > 0 {
		if rec.Index, err = parseIndex(buf, footer); err != nil {
			return nil, err
		}
	}

	if err := decodeFrames(buf, rec); err != nil {
		return nil, err
	}
	rec.indexUsable = indexUsable(rec)
	return rec, nil
}

// indexUsable reports whether the index can shortcut Locate: frames are in
// timestamp order, and every entry points at a decoded frame with the
// timestamp it claims, in order. Anything else falls back to a full scan.
func indexUsable(rec *Recording) bool {
	if len(rec.Index) == 0 {
		return false
	}
	for i := 1; i < len(rec.Frames); i++ {
		if rec.Frames[i].TimestampMs < rec.Frames[i-1].TimestampMs {
			return false
		}
	}
	for i, e := range rec.Index {
		if i > 0 && e.TimestampMs < rec.Index[i-1].TimestampMs {
			return false
		}
		j, ok := rec.frameAtOffset(e.Offset)
		if !ok || rec.Frames[j].TimestampMs != e.TimestampMs {
			return false
		}
	}
	return true
}

// decodeFrames walks the frame region from the header's frame offset until
// the footer's frame count is reached or the region is exhausted.
func decodeFrames(buf []byte, rec *Recording) error {
	limit := len(buf) - FooterSize
	if rec.Header.FramesOffset > uint64(limit) {
		return decodeErr(OffsetOutOfRange, int64(rec.Header.FramesOffset), "frames offset beyond frame region end %d", limit)
	}

	// Scanning stops at the index section when it follows the frames; the
	// bounds check still runs against the footer.
	stop := limit
	if rec.Footer.IndexCount > 0 && rec.Footer.IndexOffset >= rec.Header.FramesOffset && rec.Footer.IndexOffset < uint64(limit) {
		stop = int(rec.Footer.IndexOffset)
	}

	want := int(rec.Footer.FrameCount)
	capHint := (stop - int(rec.Header.FramesOffset)) / frameFixedSize
	if want < capHint {
		capHint = want
	}
	rec.Frames = make([]Frame, 0, capHint)
	rec.offsets = make([]uint64, 0, capHint)

	off := int(rec.Header.FramesOffset)
	for len(rec.Frames) < want && off < stop {
		f, next, err := decodeFrame(buf, off, limit)
		if err != nil {
			return err
		}
		rec.Frames = append(rec.Frames, f)
		rec.offsets = append(rec.offsets, uint64(off))
		off = next
	}
	return nil
}

func parseIndex(buf []byte, footer Footer) ([]IndexEntry, error) {
	size := uint64(footer.IndexCount) * IndexEntrySize
	end := footer.IndexOffset + size
	limit := uint64(len(buf) - FooterSize)
	if footer.IndexOffset > limit || end > limit || end < footer.IndexOffset {
		return nil, decodeErr(OffsetOutOfRange, int64(footer.IndexOffset), "index section [%d, %d) exceeds frame region end %d", footer.IndexOffset, end, limit)
	}

	le := binary.LittleEndian
	entries := make([]IndexEntry, footer.IndexCount)
	for i := range entries {
		p := footer.IndexOffset + uint64(i)*IndexEntrySize
		entries[i] = IndexEntry{
			Offset:      le.Uint64(buf[p:]),
			TimestampMs: int64(le.Uint64(buf[p+8:])),
		}
	}
	return entries, nil
}
