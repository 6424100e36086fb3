package ui

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type effectSource []Effect

func (s effectSource) String(i int) string { return s[i].Name }
func (s effectSource) Len() int { return len(s) }

// applyFilter rebuilds the visible rows from the filter text. Matches are
// ordered by fuzzy score; an empty filter shows everything in order.
func (m *model) applyFilter() {
	var prev string
	if e, ok := m.selected(); ok {
		prev = e.Path
	}

	pattern := strings.TrimSpace(m.filterInput.Value())
	m.matches = m.matches[:0]
	if pattern == "" {
		for i := range m.effects {
			m.matches = append(m.matches, i)
		}
	} else {
		for _, match := range fuzzy.FindFrom(pattern, effectSource(m.effects)) {
			m.matches = append(m.matches, match.Index)
		}
	}

	// keep the cursor on the same effect when it is still visible
	m.cursor = 0
	for i, idx := range m.matches {
		if m.effects[idx].Path == prev {
			m.cursor = i
			break
		}
	}
	m.offset = 0
	m.clampCursor()
}
