package console

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Tab      key.Binding
	New      key.Binding
	Clone    key.Binding
	Start    key.Binding
	Stop     key.Binding
	Delete   key.Binding
	Export   key.Binding
	Refresh  key.Binding
	Sort     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	PrevFld  key.Binding
	NextFld  key.Binding
	Command  key.Binding
	Help     key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new draft")),
		Clone:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clone")),
		Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Sort:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "cycle sort")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		NextPage: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		PrevFld:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev field")),
		NextFld:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next field")),
		Command:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Tab, k.Command, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Tab, k.Back},
		{k.New, k.Clone, k.Start, k.Stop, k.Delete, k.Export},
		{k.Refresh, k.Sort, k.PrevPage, k.NextPage, k.PrevFld, k.NextFld},
		{k.Command, k.Help, k.Quit},
	}
}
