// Package assets resolves effect paths to encoded audio bytes. Effects
// live either in a resource directory or inside a zip archive; paths are
// slash separated and relative to that root.
package assets

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

var (
	// ErrNotFound is returned when an asset does not exist in a source.
	ErrNotFound = errors.New("asset not found")
	// ErrOutsideRoot is returned for paths that escape the resource directory.
	ErrOutsideRoot = errors.New("path outside resource directory")
)

// Source reads encoded audio assets.
type Source interface {
	// Open returns the bytes of the asset at path.
	Open(path string) ([]byte, error)
	// Name describes the source for logs and the UI.
	Name() string
}

// DirSource reads assets from a directory.
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir. A leading ~ is expanded.
func NewDirSource(dir string) (*DirSource, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", dir, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return &DirSource{root: abs}, nil
}

// Root returns the absolute resource directory.
func (s *DirSource) Root() string { return s.root }

func (s *DirSource) Name() string { return s.root }

// Open reads an asset. Relative paths are resolved against the root;
// absolute paths must point below it.
func (s *DirSource) Open(p string) ([]byte, error) {
	full, err := s.Resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return data, err
}

// Resolve returns the file system path of an asset. Paths that leave the
// root, through ".." or an absolute path elsewhere, fail with ErrOutsideRoot.
func (s *DirSource) Resolve(p string) (string, error) {
	if expanded, err := homedir.Expand(p); err == nil {
		p = expanded
	}
	full := filepath.Clean(p)
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.root, filepath.FromSlash(p))
	}
	if _, ok := s.Rel(full); !ok {
		return "", fmt.Errorf("%s: %w", p, ErrOutsideRoot)
	}
	return full, nil
}

// Rel converts a file system path below the root into an asset path.
func (s *DirSource) Rel(full string) (string, bool) {
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ZipSource reads assets from a zip archive.
type ZipSource struct {
	name string

	mu    sync.Mutex
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

// OpenZip opens a zip archive as a source.
func OpenZip(file string) (*ZipSource, error) {
	expanded, err := homedir.Expand(file)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", file, err)
	}
	rc, err := zip.OpenReader(expanded)
	if err != nil {
		return nil, fmt.Errorf("open resource zip: %w", err)
	}

	z := &ZipSource{name: expanded, rc: rc, files: make(map[string]*zip.File)}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		z.files[path.Clean(f.Name)] = f
	}
	return z, nil
}

func (z *ZipSource) Name() string { return z.name }

// Open reads an archive member.
func (z *ZipSource) Open(p string) ([]byte, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.rc == nil {
		return nil, errors.New("resource zip closed")
	}
	f, ok := z.files[path.Clean(strings.TrimPrefix(p, "/"))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// List returns the supported audio members of the archive.
func (z *ZipSource) List() []Asset {
	z.mu.Lock()
	defer z.mu.Unlock()

	var out []Asset
	for name, f := range z.files {
		if !soundpool.IsSupported(name) {
			continue
		}
		out = append(out, Asset{
			Path:    name,
			Size:    int64(f.UncompressedSize64),
			ModTime: f.Modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Close releases the archive.
func (z *ZipSource) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.rc == nil {
		return nil
	}
	err := z.rc.Close()
	z.rc = nil
	return err
}
