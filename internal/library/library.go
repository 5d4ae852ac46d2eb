// Package library stores uploaded recordings in a directory.
package library

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

// Extension is the suffix of an uncompressed recording file.
const Extension = ".mrr"

const lockFile = ".radarplay.lock"

var (
	ErrInvalidName = errors.New("invalid recording name")
	ErrNotFound    = errors.New("recording not found")
	ErrTooLarge    = errors.New("recording too large")
	ErrLocked      = errors.New("library is in use by another process")
)

// Entry describes one stored recording.
type Entry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	Compressed bool      `json:"compressed"`
}

// Library is a directory of recordings. Names are flat file names; there
// are no subdirectories.
type Library struct {
	dir  string
	lock *flock.Flock
}

// Open creates dir if needed and returns a Library over it.
func Open(dir string) (*Library, error) {
	if dir == "" {
		return nil, fmt.Errorf("library directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}
	return &Library{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Lock claims the directory for this process so that two servers never
// serve the same library. It fails with ErrLocked when another process
// holds it.
func (l *Library) Lock() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire library lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.dir, ErrLocked)
	}
	return nil
}

// Unlock releases the directory lock.
func (l *Library) Unlock() error {
	return l.lock.Unlock()
}

// ValidateName checks that name is a plain .mrr or .mrr.gz file name.
func ValidateName(name string) error {
	switch {
	case name == "", len(name) > 255:
		return fmt.Errorf("%w: length", ErrInvalidName)
	case strings.ContainsAny(name, `/\`), name != filepath.Base(name):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	}

	base := strings.ToLower(name)
	if recording.IsCompressed(base) {
		base = strings.TrimSuffix(base, recording.CompressedSuffix)
	}
	if !strings.HasSuffix(base, Extension) || base == Extension {
		return fmt.Errorf("%w: %q must end in %s or %s%s", ErrInvalidName, name, Extension, Extension, recording.CompressedSuffix)
	}
	return nil
}

// Save writes r to name, replacing any existing file. At most maxBytes are
// accepted when maxBytes > 0. The file appears atomically.
func (l *Library) Save(name string, r io.Reader, maxBytes int64) (Entry, error) {
	if err := ValidateName(name); err != nil {
		return Entry{}, err
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return Entry{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Entry{}, fmt.Errorf("writing %s: %w", name, err)
	}
	if maxBytes > 0 && n > maxBytes {
		return Entry{}, fmt.Errorf("%s: %w (limit %d bytes)", name, ErrTooLarge, maxBytes)
	}

	if err := os.Rename(tmp.Name(), l.path(name)); err != nil {
		return Entry{}, fmt.Errorf("storing %s: %w", name, err)
	}
	return l.stat(name)
}

// List returns the stored recordings sorted by name.
func (l *Library) List() ([]Entry, error) {
	dirents, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if !de.Type().IsRegular() || ValidateName(de.Name()) != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		entries = append(entries, entryFor(info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Read returns the raw bytes of name.
func (l *Library) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Path returns the file path of name after validating it.
func (l *Library) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return l.path(name), nil
}

// Delete removes name.
func (l *Library) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(l.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

func (l *Library) path(name string) string {
	return filepath.Join(l.dir, name)
}

func (l *Library) stat(name string) (Entry, error) {
	info, err := os.Stat(l.path(name))
	if err != nil {
		return Entry{}, err
	}
	return entryFor(info), nil
}

func entryFor(info fs.FileInfo) Entry {
	return Entry{
		Name:       info.Name(),
		Size:       info.Size(),
		ModTime:    info.ModTime().UTC(),
		Compressed: recording.IsCompressed(info.Name()),
	}
}
