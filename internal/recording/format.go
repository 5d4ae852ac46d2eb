// Package recording decodes radar playback recordings.
//
// A recording is a single binary container:
//
//	[header, HeaderSize bytes]
//	[capabilities blob][initial state blob]
//	[frame][frame]...          back to back, no padding
//	[index entries]            optional, IndexEntrySize bytes each
//	[footer, FooterSize bytes] always the last FooterSize bytes of the file
//
// Every integer is little-endian. Blob and section positions are absolute
// file offsets taken from the header and footer. Frame payloads are opaque
// to this package.
package recording

const (
	// HeaderMagic opens every recording.
	HeaderMagic = "MRR1"
	// FooterMagic opens the footer window at the end of every recording.
	FooterMagic = "MRRF"

	// SupportedVersion is the newest format version this package decodes.
	SupportedVersion uint16 = 1

	// HeaderSize is the fixed header size; bytes past the last field are reserved.
	HeaderSize = 256
	// FooterSize is the fixed footer size, measured back from end of file.
	FooterSize = 32
	// IndexEntrySize is the size of one index entry: offset then timestamp.
	IndexEntrySize = 16

	// FrameHasStateDelta marks a frame that carries a state delta payload.
	FrameHasStateDelta byte = 1 << 0

	// frameFixedSize is timestamp + flags + data length.
	frameFixedSize = 8 + 1 + 4
)

// Header field offsets.
const (
	hdrMagic        = 0
	hdrVersion      = 4
	hdrFlags        = 6
	hdrBrand        = 8
	hdrSpokes       = 12
	hdrMaxSpokeLen  = 16
	hdrPixelDepth   = 20
	hdrStartTime    = 24
	hdrCapsOffset   = 32
	hdrCapsLength   = 40
	hdrStateOffset  = 44
	hdrStateLength  = 52
	hdrFramesOffset = 56
	hdrFieldsEnd    = 64
)

// Footer field offsets, relative to the start of the footer window.
const (
	ftrMagic       = 0
	ftrIndexOffset = 4
	ftrIndexCount  = 12
	ftrFrameCount  = 16
	ftrDuration    = 20
	ftrFieldsEnd   = 28
)
