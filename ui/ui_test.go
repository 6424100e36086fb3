package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/sfxpool/pkg/sfx"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

type call struct {
	op   string
	path string
	loop bool
}

// fakeEngine records board actions.
type fakeEngine struct {
	calls   []call
	volume  float64
	loaded  map[string]soundpool.SoundID
	looping map[soundpool.SoundID]bool
	ended   bool
	broken  map[string]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		volume:  sfx.DefaultVolume,
		loaded:  make(map[string]soundpool.SoundID),
		looping: make(map[soundpool.SoundID]bool),
		broken:  make(map[string]bool),
	}
}

func (f *fakeEngine) PlayEffect(path string, loop bool) soundpool.SoundID {
	f.calls = append(f.calls, call{"play", path, loop})
	if f.broken[path] {
		return sfx.InvalidSoundID
	}
	id, ok := f.loaded[path]
	if !ok {
		id = soundpool.SoundID(len(f.loaded) + 1)
		f.loaded[path] = id
	}
	f.looping[id] = loop
	return id
}

func (f *fakeEngine) StopEffect(id soundpool.SoundID) {
	f.calls = append(f.calls, call{op: "stop", path: f.pathOf(id)})
	delete(f.looping, id)
}

func (f *fakeEngine) UnloadEffect(path string) {
	f.calls = append(f.calls, call{op: "unload", path: path})
	delete(f.loaded, path)
}

func (f *fakeEngine) PauseAllEffects()  { f.calls = append(f.calls, call{op: "pause"}) }
func (f *fakeEngine) ResumeAllEffects() { f.calls = append(f.calls, call{op: "resume"}) }

func (f *fakeEngine) EffectsVolume() float64 { return f.volume }

func (f *fakeEngine) SetEffectsVolume(v float64) {
	f.volume = min(1, max(0, v))
}

func (f *fakeEngine) SoundFor(path string) soundpool.SoundID {
	if id, ok := f.loaded[path]; ok {
		return id
	}
	return sfx.InvalidSoundID
}

func (f *fakeEngine) IsLooping(id soundpool.SoundID) bool { return f.looping[id] }

func (f *fakeEngine) StreamState(id soundpool.SoundID) soundpool.StreamState {
	if _, ok := f.looping[id]; ok {
		return soundpool.StreamPlaying
	}
	return soundpool.StreamUnknown
}

func (f *fakeEngine) SuspendDevice() error {
	f.calls = append(f.calls, call{op: "suspend"})
	return nil
}

func (f *fakeEngine) ResumeDevice() error {
	f.calls = append(f.calls, call{op: "resume device"})
	return nil
}

func (f *fakeEngine) Backend() string { return "mock (no audio devices)" }

func (f *fakeEngine) End() error {
	f.ended = true
	return nil
}

func (f *fakeEngine) pathOf(id soundpool.SoundID) string {
	for p, i := range f.loaded {
		if i == id {
			return p
		}
	}
	return ""
}

var board = []Effect{
	{Name: "jump", Path: "sfx/jump.wav", Key: "1", Size: 2048},
	{Name: "engine", Path: "sfx/engine.ogg", Loop: true},
	{Name: "coin", Path: "sfx/coin.wav"},
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, msgs ...tea.Msg) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(model)
	}
	return m, cmd
}

func newTestModel(eng *fakeEngine) model {
	return newModel(Config{VolumeStep: 0.1}, eng, board, nil)
}

func TestPlayAndLoop(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, runes("j"), runes("l"))

	assert.Equal(t, []call{
		{"play", "sfx/jump.wav", false},
		{"play", "sfx/engine.ogg", true},
		{"play", "sfx/coin.wav", true},
	}, eng.calls)
	assert.Equal(t, 2, m.cursor)
}

func TestStopUnloadPauseResume(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)

	m, _ = press(t, m, runes("l"), runes("s"), runes("p"), runes("r"), runes("u"))

	ops := make([]string, 0, len(eng.calls))
	for _, c := range eng.calls {
		ops = append(ops, c.op)
	}
	assert.Equal(t, []string{"play", "stop", "pause", "resume", "unload"}, ops)
	assert.Equal(t, "sfx/jump.wav", eng.calls[1].path)
	assert.Equal(t, "Unloaded jump", m.status)
}

func TestVolumeKeys(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)

	_, _ = press(t, m, runes("+"), runes("+"))
	assert.InDelta(t, 0.7, eng.volume, 1e-9)

	_, _ = press(t, m, runes("-"), runes("-"), runes("-"), runes("-"), runes("-"), runes("-"), runes("-"), runes("-"))
	assert.Equal(t, 0.0, eng.volume)
}

func TestHotkey(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)

	_, _ = press(t, m, runes("1"))
	require.Len(t, eng.calls, 1)
	assert.Equal(t, "sfx/jump.wav", eng.calls[0].path)
}

func TestReservedKeysAreNotHotkeys(t *testing.T) {
	assert.True(t, reserved("s"))
	assert.True(t, reserved("enter"))
	assert.False(t, reserved("1"))
}

func TestRetriggerThrottle(t *testing.T) {
	eng := newFakeEngine()
	m := newModel(Config{RetriggerPerSec: 0.001}, eng, board, nil)

	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, eng.calls, 1)
}

func TestPlayFailureShowsError(t *testing.T) {
	eng := newFakeEngine()
	eng.broken["sfx/jump.wav"] = true
	m := newTestModel(eng)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd, "status timeout is scheduled")
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "jump")
}

func TestFilter(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)

	m, _ = press(t, m, runes("/"))
	assert.True(t, m.filtering)

	m, _ = press(t, m, runes("c"), runes("o"), runes("i"))
	require.Len(t, m.matches, 1)
	assert.Equal(t, "coin", m.effects[m.matches[0]].Name)

	// keys typed while filtering do not trigger actions
	assert.Empty(t, eng.calls)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filtering)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, eng.calls, 1)
	assert.Equal(t, "sfx/coin.wav", eng.calls[0].path)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.matches, len(board))
	sel, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "coin", sel.Name, "cursor stays on the selected effect")
}

func TestQuitEndsEngine(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)

	m, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, eng.ended)
	assert.Empty(t, m.View())
}

func TestChangeNotice(t *testing.T) {
	changes := make(chan string, 1)
	m := newModel(Config{}, newFakeEngine(), board, changes)

	m, cmd := press(t, m, effectChangedMsg("sfx/coin.wav"))
	assert.Contains(t, m.status, "sfx/coin.wav")
	assert.NotNil(t, cmd)

	m, _ = press(t, m, statusTimeoutMsg(m.statusSeq))
	assert.Empty(t, m.status)
}

func TestView(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(eng)
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 80, Height: 20}, runes("l"))

	view := m.View()
	for _, e := range board {
		assert.Contains(t, view, e.Name)
	}
	assert.Contains(t, view, "[1]")
	assert.Contains(t, view, "2.0 kB")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "loop")
	assert.Contains(t, view, "mock (no audio devices)")
}

func TestFocusSuspendsDevice(t *testing.T) {
	eng := newFakeEngine()
	m := newModel(Config{SuspendOnBlur: true}, eng, board, nil)

	_, _ = press(t, m, tea.BlurMsg{}, tea.FocusMsg{})
	assert.Equal(t, []call{{op: "suspend"}, {op: "resume device"}}, eng.calls)

	eng = newFakeEngine()
	m = newTestModel(eng)
	_, _ = press(t, m, tea.BlurMsg{}, tea.FocusMsg{})
	assert.Empty(t, eng.calls, "focus changes are ignored unless enabled")
}

func TestHotkeyClashIsReported(t *testing.T) {
	eng := newFakeEngine()
	effects := []Effect{
		{Name: "laser", Path: "sfx/laser.wav", Key: "l"},
		{Name: "coin", Path: "sfx/coin.wav", Key: "c"},
		{Name: "quack", Path: "sfx/quack.wav", Key: "q"},
	}
	m := newModel(Config{}, eng, effects, nil)

	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "l (laser)")
	assert.Contains(t, m.status, "q (quack)")
	assert.NotContains(t, m.status, "coin")

	// the board binding still wins
	_, _ = press(t, m, runes("c"), runes("l"))
	require.Len(t, eng.calls, 2)
	assert.Equal(t, call{"play", "sfx/coin.wav", false}, eng.calls[0])
	assert.Equal(t, call{"play", "sfx/laser.wav", true}, eng.calls[1], "l loops the selected row")
}

func TestScrolling(t *testing.T) {
	var many []Effect
	for _, r := range "abcdefghij" {
		many = append(many, Effect{Name: string(r), Path: string(r) + ".wav"})
	}
	m := newModel(Config{}, newFakeEngine(), many, nil)
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 60, Height: 8})
	rows := m.listHeight()
	require.Equal(t, 3, rows)

	for i := 0; i < 6; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 6, m.cursor)
	assert.Equal(t, 4, m.offset)
	assert.NotContains(t, m.View(), " a ")
}
