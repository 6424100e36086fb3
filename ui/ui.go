// Package ui provides the soundboard TUI.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/sfxpool/pkg/sfx"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

const (
	statusMessageTimeout = time.Second * 3
	ellipsis             = "…"
)

// Engine is the part of sfx.Engine the board drives.
type Engine interface {
	PlayEffect(path string, loop bool) soundpool.SoundID
	StopEffect(id soundpool.SoundID)
	UnloadEffect(path string)
	PauseAllEffects()
	ResumeAllEffects()
	EffectsVolume() float64
	SetEffectsVolume(v float64)
	SoundFor(path string) soundpool.SoundID
	IsLooping(id soundpool.SoundID) bool
	StreamState(id soundpool.SoundID) soundpool.StreamState
	SuspendDevice() error
	ResumeDevice() error
	Backend() string
	End() error
}

var _ Engine = (*sfx.Engine)(nil)

// Effect is a row on the board.
type Effect struct {
	Name string
	Path string
	Key  string // optional hotkey
	Loop bool   // enter loops instead of playing once
	Size int64  // encoded size in bytes, zero when unknown
}

// NewProgram returns a new Tea program. Paths received on changes are
// shown as reload notices; the caller is expected to have unloaded them.
func NewProgram(cfg Config, eng Engine, effects []Effect, changes <-chan string) *tea.Program {
	log.Debug("Starting soundboard", "effects", len(effects), "source", cfg.Source)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	if cfg.SuspendOnBlur {
		opts = append(opts, tea.WithReportFocus())
	}
	return tea.NewProgram(newModel(cfg, eng, effects, changes), opts...)
}

type (
	effectChangedMsg string
	statusTimeoutMsg int
)

type model struct {
	cfg     Config
	eng     Engine
	effects []Effect
	changes <-chan string

	// indices into effects, in display order
	matches []int
	cursor  int
	offset  int

	width  int
	height int

	filterInput textinput.Model
	filtering   bool

	spinner spinner.Model
	help    help.Model

	status    string
	statusErr bool
	statusSeq int

	limiters map[string]*rate.Limiter
	quitting bool
}

func newModel(cfg Config, eng Engine, effects []Effect, changes <-chan string) model {
	ti := textinput.New()
	ti.Prompt = "Find: "
	ti.PromptStyle = keyStyle
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = loopingStyle

	m := model{
		cfg:         cfg,
		eng:         eng,
		effects:     effects,
		changes:     changes,
		filterInput: ti,
		spinner:     sp,
		help:        help.New(),
		limiters:    make(map[string]*rate.Limiter),
	}
	m.applyFilter()

	if clashes := hotkeyClashes(effects); len(clashes) > 0 {
		m.status = "Hotkeys taken by the board: " + strings.Join(clashes, ", ")
		m.statusErr = true
	}
	return m
}

// hotkeyClashes lists effect hotkeys that a board binding shadows.
func hotkeyClashes(effects []Effect) []string {
	var out []string
	for _, e := range effects {
		if e.Key != "" && reserved(e.Key) {
			log.Warn("Effect hotkey clashes with a board key, ignoring it", "effect", e.Name, "key", e.Key)
			out = append(out, e.Key+" ("+e.Name+")")
		}
	}
	return out
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	return tea.Batch(cmds...)
}

func waitForChange(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return effectChangedMsg(path)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		switch msg.Button { //nolint:exhaustive
		case tea.MouseButtonWheelUp:
			m.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			m.moveCursor(1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampCursor()

	case tea.BlurMsg:
		if m.cfg.SuspendOnBlur {
			if err := m.eng.SuspendDevice(); err != nil {
				log.Error("Error suspending audio device", "error", err)
			}
		}
	case tea.FocusMsg:
		if m.cfg.SuspendOnBlur {
			if err := m.eng.ResumeDevice(); err != nil {
				log.Error("Error resuming audio device", "error", err)
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case effectChangedMsg:
		cmd := m.setStatus(fmt.Sprintf("%s changed, reloads on next play", string(msg)), false)
		return m, tea.Batch(cmd, waitForChange(m.changes))

	case statusTimeoutMsg:
		if int(msg) == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		if err := m.eng.End(); err != nil {
			log.Error("Error releasing sound pool", "error", err)
		}
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, keys.Play):
		if e, ok := m.selected(); ok {
			cmd := m.trigger(e, e.Loop)
			return m, cmd
		}
	case key.Matches(msg, keys.Loop):
		if e, ok := m.selected(); ok {
			cmd := m.trigger(e, true)
			return m, cmd
		}
	case key.Matches(msg, keys.Stop):
		if e, ok := m.selected(); ok {
			m.eng.StopEffect(m.eng.SoundFor(e.Path))
		}
	case key.Matches(msg, keys.Unload):
		if e, ok := m.selected(); ok {
			m.eng.UnloadEffect(e.Path)
			cmd := m.setStatus("Unloaded "+e.Name, false)
			return m, cmd
		}

	case key.Matches(msg, keys.PauseAll):
		m.eng.PauseAllEffects()
		cmd := m.setStatus("Loops paused", false)
		return m, cmd
	case key.Matches(msg, keys.ResumeAll):
		m.eng.ResumeAllEffects()
		cmd := m.setStatus("Loops resumed", false)
		return m, cmd

	case key.Matches(msg, keys.VolumeUp):
		m.eng.SetEffectsVolume(m.eng.EffectsVolume() + m.cfg.VolumeStep)
	case key.Matches(msg, keys.VolumeDown):
		m.eng.SetEffectsVolume(m.eng.EffectsVolume() - m.cfg.VolumeStep)

	case key.Matches(msg, keys.Filter):
		m.filtering = true
		cmd := m.filterInput.Focus()
		return m, cmd

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case msg.String() == "esc":
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.applyFilter()
		}

	default:
		if e, ok := m.hotkey(msg.String()); ok {
			cmd := m.trigger(e, e.Loop)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.SetValue("")
		fallthrough
	case "enter", "tab", "up", "down":
		m.filtering = false
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case "ctrl+c":
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// trigger plays an effect unless it was retriggered too quickly.
func (m *model) trigger(e Effect, loop bool) tea.Cmd {
	if !m.limiter(e.Path).Allow() {
		log.Debug("Retrigger throttled", "path", e.Path)
		return nil
	}
	if m.eng.PlayEffect(e.Path, loop) == sfx.InvalidSoundID {
		return m.setStatus("Cannot play "+e.Name+" (see log)", true)
	}
	return nil
}

func (m *model) limiter(path string) *rate.Limiter {
	l, ok := m.limiters[path]
	if !ok {
		limit := rate.Inf
		if m.cfg.RetriggerPerSec > 0 {
			limit = rate.Limit(m.cfg.RetriggerPerSec)
		}
		l = rate.NewLimiter(limit, 1)
		m.limiters[path] = l
	}
	return l
}

func (m model) hotkey(s string) (Effect, bool) {
	if reserved(s) {
		return Effect{}, false
	}
	for _, e := range m.effects {
		if e.Key != "" && e.Key == s {
			return e, true
		}
	}
	return Effect{}, false
}

func (m model) selected() (Effect, bool) {
	if m.cursor < 0 || m.cursor >= len(m.matches) {
		return Effect{}, false
	}
	return m.effects[m.matches[m.cursor]], true
}

func (m *model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *model) clampCursor() {
	if m.cursor >= len(m.matches) {
		m.cursor = len(m.matches) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.listHeight()
	if rows <= 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m *model) setStatus(s string, isErr bool) tea.Cmd {
	m.status = s
	m.statusErr = isErr
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg(seq)
	})
}
