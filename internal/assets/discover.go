package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/gitcha"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

// Asset is an audio file found in a resource root.
type Asset struct {
	Path    string // slash separated, relative to the root
	Size    int64
	ModTime time.Time
}

// Patterns returns the glob patterns matching decodable audio files.
func Patterns() []string {
	var patterns []string
	for _, ext := range soundpool.SupportedExtensions {
		patterns = append(patterns, "*"+ext, "*"+strings.ToUpper(ext))
	}
	return patterns
}

// Discover walks dir for audio files. Unless showAll is set, files ignored
// by .gitignore and hidden directories are skipped.
func Discover(dir string, showAll bool, ignore []string) ([]Asset, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var ch chan gitcha.SearchResult
	if showAll {
		ch, err = gitcha.FindAllFilesExcept(root, Patterns(), ignore)
	} else {
		ch, err = gitcha.FindFilesExcept(root, Patterns(), ignore)
	}
	if err != nil {
		return nil, fmt.Errorf("find audio files: %w", err)
	}

	var found []Asset
	seen := make(map[string]bool)
	for res := range ch {
		rel := relPath(root, res.Path)
		if seen[rel] {
			continue
		}
		seen[rel] = true
		found = append(found, Asset{
			Path:    rel,
			Size:    res.Info.Size(),
			ModTime: res.Info.ModTime(),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })

	log.Debug("Audio file search finished", "dir", root, "count", len(found))
	return found, nil
}

func relPath(root, full string) string {
	fp, err := filepath.EvalSymlinks(full)
	if err != nil {
		fp = full
	}
	rp, err := filepath.EvalSymlinks(root)
	if err != nil {
		rp = root
	}
	return filepath.ToSlash(strings.TrimPrefix(fp, rp+string(os.PathSeparator)))
}
