package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(filepath.Join(t.TempDir(), "recordings"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return lib
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"harbour.mrr", false},
		{"Harbour.MRR", false},
		{"harbour.mrr.gz", false},
		{"2024-01-01 run 3.mrr", false},
		{"", true},
		{".mrr", true},
		{".hidden.mrr", true},
		{"../escape.mrr", true},
		{"sub/dir.mrr", true},
		{`win\dir.mrr`, true},
		{"notes.txt", true},
		{"archive.gz", true},
		{strings.Repeat("a", 300) + ".mrr", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Errorf("error %v does not wrap ErrInvalidName", err)
			}
		})
	}
}

func TestLibrary_SaveReadListDelete(t *testing.T) {
	lib := newTestLibrary(t)

	if _, err := lib.Save("b.mrr", strings.NewReader("bbbb"), 0); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	entry, err := lib.Save("a.mrr.gz", strings.NewReader("aa"), 0)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if entry.Name != "a.mrr.gz" || entry.Size != 2 || !entry.Compressed {
		t.Errorf("entry = %+v", entry)
	}

	data, err := lib.Read("b.mrr")
	if err != nil || string(data) != "bbbb" {
		t.Errorf("Read() = %q, %v", data, err)
	}

	list, err := lib.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "a.mrr.gz" || list[1].Name != "b.mrr" {
		t.Errorf("List() = %+v", list)
	}

	if err := lib.Delete("b.mrr"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := lib.Read("b.mrr"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() after Delete error = %v, want ErrNotFound", err)
	}
	if err := lib.Delete("b.mrr"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestLibrary_SaveReplaces(t *testing.T) {
	lib := newTestLibrary(t)
	lib.Save("a.mrr", strings.NewReader("old"), 0)
	lib.Save("a.mrr", strings.NewReader("new!"), 0)

	data, _ := lib.Read("a.mrr")
	if string(data) != "new!" {
		t.Errorf("Read() = %q, want new!", data)
	}
}

func TestLibrary_SaveTooLarge(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Save("big.mrr", strings.NewReader("0123456789"), 4)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Save() error = %v, want ErrTooLarge", err)
	}
	if _, err := lib.Read("big.mrr"); !errors.Is(err, ErrNotFound) {
		t.Error("oversized upload was stored")
	}

	if _, err := lib.Save("fits.mrr", strings.NewReader("0123"), 4); err != nil {
		t.Errorf("Save() at the limit error = %v", err)
	}
}

func TestLibrary_ListSkipsForeignFiles(t *testing.T) {
	lib := newTestLibrary(t)
	lib.Save("a.mrr", strings.NewReader("x"), 0)
	os.WriteFile(filepath.Join(lib.Dir(), "readme.txt"), []byte("hi"), 0o644)
	os.Mkdir(filepath.Join(lib.Dir(), "dir.mrr"), 0o755)

	if err := lib.Lock(); err != nil {
		t.Fatal(err)
	}
	defer lib.Unlock()

	list, err := lib.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "a.mrr" {
		t.Errorf("List() = %+v, want only a.mrr", list)
	}
}

func TestLibrary_RejectsInvalidNames(t *testing.T) {
	lib := newTestLibrary(t)

	if _, err := lib.Save("../x.mrr", strings.NewReader("x"), 0); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Save() error = %v", err)
	}
	if _, err := lib.Read("../x.mrr"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Read() error = %v", err)
	}
	if err := lib.Delete("x.txt"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestLibrary_Lock(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := first.Lock(); err != nil {
		t.Fatalf("first Lock() error: %v", err)
	}
	if err := second.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := second.Lock(); err != nil {
		t.Errorf("Lock() after release error = %v", err)
	}
	second.Unlock()
}
