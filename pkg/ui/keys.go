package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Activate   key.Binding
	DetailMap  key.Binding
	Back       key.Binding
	Copy       key.Binding
	Export     key.Binding
	ShrinkMap  key.Binding
	GrowMap    key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k", "shift+tab"),
			key.WithHelp("↑/k", "prev"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "tab"),
			key.WithHelp("↓/j", "next"),
		),
		Activate: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		DetailMap: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "province map"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace", "b"),
			key.WithHelp("esc", "back"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy flag"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "snapshot"),
		),
		ShrinkMap: key.NewBinding(
			key.WithKeys("<", "["),
			key.WithHelp("</>", "resize"),
		),
		GrowMap: key.NewBinding(
			key.WithKeys(">", "]"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
