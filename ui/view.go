package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/sfxpool/pkg/sfx"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

const (
	headerHeight = 2
	footerHeight = 3
	volumeWidth  = 10
	stateWidth   = 10

	// cursor, hotkey, separators, state and size
	fixedColumns = 2 + 3 + 3 + stateWidth + 8
)

func (m model) listHeight() int {
	if m.height == 0 {
		return 0
	}
	return max(1, m.height-headerHeight-footerHeight)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m model) headerView() string {
	title := titleStyle.Render("sfxpool")
	source := subtleStyle.Render(m.cfg.Source + " · " + m.eng.Backend())
	return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", m.volumeView(), " ", source)
}

func (m model) volumeView() string {
	v := m.eng.EffectsVolume()
	filled := int(math.Round(v * volumeWidth))
	return strings.Repeat(volumeFull, filled) +
		strings.Repeat(volumeEmpty, volumeWidth-filled) +
		fmt.Sprintf(" %3.0f%%", v*100)
}

func (m model) listView() string {
	if len(m.effects) == 0 {
		return subtleStyle.Render("  No effects found.")
	}
	if len(m.matches) == 0 {
		return subtleStyle.Render("  Nothing matches the filter.")
	}

	start, end := 0, len(m.matches)
	if rows := m.listHeight(); rows > 0 {
		start = m.offset
		end = min(len(m.matches), start+rows)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.rowView(m.effects[m.matches[i]], i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m model) rowView(e Effect, selected bool) string {
	cursor := "  "
	if selected {
		cursor = selectedStyle.Render("> ")
	}

	hotkey := "   "
	if e.Key != "" {
		hotkey = keyStyle.Render("[" + e.Key + "]")
	}

	size := ""
	if e.Size > 0 {
		size = humanize.Bytes(uint64(e.Size))
	}

	state := m.stateView(e)
	state += strings.Repeat(" ", max(0, stateWidth-lipgloss.Width(state)))

	nameWidth := 40
	if m.width > 0 {
		nameWidth = max(8, m.width-fixedColumns)
	}
	name := truncate.StringWithTail(e.Name, uint(nameWidth), ellipsis)
	name += strings.Repeat(" ", max(0, nameWidth-lipgloss.Width(name)))
	if selected {
		name = selectedStyle.Render(name)
	}

	return cursor + hotkey + " " + name + " " + state + " " + subtleStyle.Render(size)
}

func (m model) stateView(e Effect) string {
	id := m.eng.SoundFor(e.Path)
	if id == sfx.InvalidSoundID {
		return subtleStyle.Render("·")
	}
	switch m.eng.StreamState(id) { //nolint:exhaustive
	case soundpool.StreamPlaying:
		if m.eng.IsLooping(id) {
			return loopingStyle.Render(m.spinner.View() + " loop")
		}
		return playingStyle.Render("▶ play")
	case soundpool.StreamPaused:
		return pausedStyle.Render("‖ paused")
	default:
		return subtleStyle.Render("loaded")
	}
}

func (m model) statusView() string {
	if m.filtering || m.filterInput.Value() != "" {
		return m.filterInput.View()
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return playingStyle.Render(m.status)
}
