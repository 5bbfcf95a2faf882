// Package filestore keeps submission file bytes content-addressed by sha256 under a root directory.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stored describes bytes that now live in the store.
type Stored struct {
	Path string
	Hash string
	Size int64
}

type Store struct {
	root string
}

func New(root string) *Store { return &Store{root: root} }

func (s *Store) Root() string { return s.root }

// Write streams r into the store. Identical content lands on the same path.
func (s *Store) Write(r io.Reader) (Stored, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return Stored{}, err
	}
	tmp, err := os.CreateTemp(s.root, ".incoming-*")
	if err != nil {
		return Stored{}, err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return Stored{}, fmt.Errorf("copy into store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Stored{}, err
	}

	sum := hex.EncodeToString(h.Sum(nil))
	dst := s.pathFor(sum)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Stored{}, err
	}
	if _, err := os.Stat(dst); err == nil {
		return Stored{Path: dst, Hash: sum, Size: n}, nil
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return Stored{}, fmt.Errorf("place blob: %w", err)
	}
	return Stored{Path: dst, Hash: sum, Size: n}, nil
}

// ImportPath copies the file at src into the store.
func (s *Store) ImportPath(src string) (Stored, error) {
	in, err := os.Open(src)
	if err != nil {
		return Stored{}, err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return Stored{}, fmt.Errorf("stat source: %w", err)
	}
	st, err := s.Write(in)
	if err != nil {
		return Stored{}, err
	}
	if st.Size != info.Size() {
		return Stored{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), st.Size)
	}
	return st, nil
}

// Open returns a reader for a stored path. Paths outside the root are refused.
func (s *Store) Open(path string) (*os.File, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return nil, fmt.Errorf("path %s is outside the file store", path)
	}
	return os.Open(path)
}

func (s *Store) pathFor(sum string) string {
	return filepath.Join(s.root, sum[:2], sum)
}
