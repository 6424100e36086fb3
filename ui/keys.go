package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Play       key.Binding
	Loop       key.Binding
	Stop       key.Binding
	PauseAll   key.Binding
	ResumeAll  key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Filter     key.Binding
	Unload     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Play:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
	Loop:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
	Stop:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	PauseAll:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause loops")),
	ResumeAll:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume loops")),
	VolumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
	VolumeDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "volume down")),
	Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Unload:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unload")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Loop, k.Stop, k.Filter, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Play, k.Loop, k.Stop},
		{k.PauseAll, k.ResumeAll, k.VolumeUp, k.VolumeDown},
		{k.Filter, k.Unload, k.Help, k.Quit},
	}
}

// reserved reports whether s is bound to a board action, in which case an
// effect hotkey with the same character is ignored.
func reserved(s string) bool {
	for _, b := range []key.Binding{
		keys.Up, keys.Down, keys.Play, keys.Loop, keys.Stop, keys.PauseAll,
		keys.ResumeAll, keys.VolumeUp, keys.VolumeDown, keys.Filter,
		keys.Unload, keys.Help, keys.Quit,
	} {
		for _, k := range b.Keys() {
			if k == s {
				return true
			}
		}
	}
	return false
}
