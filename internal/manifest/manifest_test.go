package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

const sample = `
effects:
  - name: jump
    path: sfx/jump.wav
    preload: true
    key: j
  - name: engine
    path: " sfx/engine.ogg "
    loop: true
  - path: ui/click.flac
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, m.Effects, 3)

	assert.Equal(t, Effect{Name: "jump", Path: "sfx/jump.wav", Preload: true, Key: "j"}, m.Effects[0])
	assert.Equal(t, "sfx/engine.ogg", m.Effects[1].Path)
	assert.True(t, m.Effects[1].Loop)
	assert.Equal(t, "ui/click.flac", m.Effects[2].Name, "name defaults to path")

	assert.Equal(t, []string{"sfx/jump.wav"}, m.Preloads())
}

func TestLookup(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	e, ok := m.Lookup("engine")
	assert.True(t, ok)
	assert.Equal(t, "sfx/engine.ogg", e.Path)

	e, ok = m.Lookup("sfx/jump.wav")
	assert.True(t, ok)
	assert.Equal(t, "jump", e.Name)

	_, ok = m.Lookup("nope")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing path", "effects:\n  - name: a\n", "path is required"},
		{"duplicate name", "effects:\n  - {name: a, path: a.wav}\n  - {name: a, path: b.wav}\n", "duplicate name"},
		{"long key", "effects:\n  - {name: a, path: a.wav, key: ab}\n", "single character"},
		{"duplicate key", "effects:\n  - {name: a, path: a.wav, key: x}\n  - {name: b, path: b.wav, key: x}\n", "already bound"},
		{"bad extension", "effects:\n  - {name: a, path: a.txt}\n", "unsupported"},
		{"bad yaml", "effects: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateUnsupportedIsSentinel(t *testing.T) {
	_, err := Parse([]byte("effects:\n  - {name: a, path: a.aiff}\n"))
	assert.ErrorIs(t, err, soundpool.ErrUnsupportedFormat)
}

func TestSaveAndLoad(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "effects.yml")
	require.NoError(t, m.Save(file))

	loaded, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
