package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite_ContentAddressed(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "files"))

	a, err := s.Write(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := s.Write(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("write again: %v", err)
	}
	if a.Path != b.Path || a.Hash != b.Hash || a.Size != 5 {
		t.Fatalf("same content must share a path: %+v %+v", a, b)
	}
	if a.Hash != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected hash %s", a.Hash)
	}
	got, err := os.ReadFile(a.Path)
	if err != nil || string(got) != "hello" {
		t.Fatalf("read back: %q %v", got, err)
	}

	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".incoming-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestImportPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(src, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	s := New(filepath.Join(dir, "files"))
	st, err := s.ImportPath(src)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if st.Size != 3 {
		t.Fatalf("size: %d", st.Size)
	}
	if _, err := s.ImportPath(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestOpen_RefusesOutsideRoot(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "files"))
	st, _ := s.Write(strings.NewReader("x"))
	f, err := s.Open(st.Path)
	if err != nil {
		t.Fatalf("open stored: %v", err)
	}
	_ = f.Close()
	if _, err := s.Open(filepath.Join(dir, "other.txt")); err == nil {
		t.Fatalf("expected refusal for path outside root")
	}
}
