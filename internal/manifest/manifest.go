// Package manifest reads the YAML list of named effects a soundboard or
// game preloads.
//
//	effects:
//	  - name: jump
//	    path: sfx/jump.wav
//	    preload: true
//	    key: j
//	  - name: engine
//	    path: sfx/engine.ogg
//	    loop: true
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

// Effect is a named effect.
type Effect struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Loop    bool   `yaml:"loop"`
	Preload bool   `yaml:"preload"`
	Key     string `yaml:"key,omitempty"`
}

// Manifest is the parsed file.
type Manifest struct {
	Effects []Effect `yaml:"effects"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for i := range m.Effects {
		e := &m.Effects[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Path = strings.TrimSpace(e.Path)
		if e.Name == "" {
			e.Name = e.Path
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that names and keys are unique, paths are set and keys
// are single characters.
func (m *Manifest) Validate() error {
	var errs []error
	names := make(map[string]bool)
	keys := make(map[string]string)

	for i, e := range m.Effects {
		if e.Path == "" {
			errs = append(errs, fmt.Errorf("effect %d (%q): path is required", i+1, e.Name))
		} else if !soundpool.IsSupported(e.Path) {
			errs = append(errs, fmt.Errorf("effect %q: %s: %w", e.Name, e.Path, soundpool.ErrUnsupportedFormat))
		}
		if e.Name != "" {
			if names[e.Name] {
				errs = append(errs, fmt.Errorf("effect %q: duplicate name", e.Name))
			}
			names[e.Name] = true
		}
		if e.Key != "" {
			if utf8.RuneCountInString(e.Key) != 1 {
				errs = append(errs, fmt.Errorf("effect %q: key %q must be a single character", e.Name, e.Key))
			} else if other, ok := keys[e.Key]; ok {
				errs = append(errs, fmt.Errorf("effect %q: key %q already bound to %q", e.Name, e.Key, other))
			} else {
				keys[e.Key] = e.Name
			}
		}
	}
	return errors.Join(errs...)
}

// Lookup finds an effect by name, falling back to its path.
func (m *Manifest) Lookup(nameOrPath string) (Effect, bool) {
	for _, e := range m.Effects {
		if e.Name == nameOrPath {
			return e, true
		}
	}
	for _, e := range m.Effects {
		if e.Path == nameOrPath {
			return e, true
		}
	}
	return Effect{}, false
}

// Preloads returns the paths marked for preloading.
func (m *Manifest) Preloads() []string {
	var paths []string
	for _, e := range m.Effects {
		if e.Preload {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
