package recording

import (
	"errors"
	"fmt"
)

// Kind classifies why a recording could not be decoded.
type Kind int

const (
	KindUnknown Kind = iota
	// MalformedContainer: header or footer magic is missing or wrong.
	MalformedContainer
	// UnsupportedVersion: the header version is newer than SupportedVersion.
	UnsupportedVersion
	// TruncatedFrame: a frame length field runs past the end of the frame region.
	TruncatedFrame
	// OffsetOutOfRange: a section offset/length falls outside the buffer.
	OffsetOutOfRange
	// InvalidPayload: the capabilities or initial state blob is not a JSON object.
	InvalidPayload
	// DecompressionFailed: the gzip wrapper is corrupt.
	DecompressionFailed
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	MalformedContainer:  "malformed_container",
	UnsupportedVersion:  "unsupported_version",
	TruncatedFrame:      "truncated_frame",
	OffsetOutOfRange:    "offset_out_of_range",
	InvalidPayload:      "invalid_payload",
	DecompressionFailed: "decompression_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. Every *DecodeError matches the sentinel of its Kind.
var (
	ErrMalformedContainer  = errors.New("malformed container")
	ErrUnsupportedVersion  = errors.New("unsupported version")
	ErrTruncatedFrame      = errors.New("truncated frame")
	ErrOffsetOutOfRange    = errors.New("offset out of range")
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrDecompressionFailed = errors.New("decompression failed")
)

var kindSentinels = map[Kind]error{
	MalformedContainer:  ErrMalformedContainer,
	UnsupportedVersion:  ErrUnsupportedVersion,
	TruncatedFrame:      ErrTruncatedFrame,
	OffsetOutOfRange:    ErrOffsetOutOfRange,
	InvalidPayload:      ErrInvalidPayload,
	DecompressionFailed: ErrDecompressionFailed,
}

// DecodeError describes a failed decode. Offset is the absolute byte
// position the decoder was looking at, or -1 when it does not apply.
type DecodeError struct {
	Kind   Kind
	Offset int64
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	s := "recording: " + e.Kind.String()
	if e.Offset >= 0 {
		s += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func decodeErr(kind Kind, offset int64, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
