package recording

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CompressedSuffix marks a gzip-wrapped recording file.
const CompressedSuffix = ".gz"

// IsCompressed reports whether name denotes a gzip-wrapped recording.
func IsCompressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), CompressedSuffix)
}

// Decompress inflates a whole gzip-wrapped recording in one pass.
func Decompress(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &DecodeError{Kind: DecompressionFailed, Offset: -1, Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Kind: DecompressionFailed, Offset: -1, Err: err}
	}
	return out, nil
}

// Compress gzips a recording buffer.
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeNamed decodes buf, inflating it first when name has the
// compressed suffix. Decoding never starts on a corrupt gzip stream.
func DecodeNamed(name string, buf []byte) (*Recording, error) {
	if IsCompressed(name) {
		raw, err := Decompress(buf)
		if err != nil {
			return nil, err
		}
		buf = raw
	}
	return Decode(buf)
}

// ReadFile reads and decodes the recording at path.
func ReadFile(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}
	rec, err := DecodeNamed(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}
