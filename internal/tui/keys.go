package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Open    key.Binding
	New     key.Binding
	Delete  key.Binding
	Export  key.Binding
	Preview key.Binding
	Save    key.Binding
	Back    key.Binding
	Quit    key.Binding
	Confirm key.Binding
	Submit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		New:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Delete:  key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete")),
		Export:  key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export")),
		Preview: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "preview")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save now")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Confirm: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "export")),
	}
}

func (k keyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Open, k.New, k.Delete, k.Export, k.Preview, k.Quit}
}

func (k keyMap) editHelp() []key.Binding {
	return []key.Binding{k.Back, k.Save, k.Delete, k.Export, k.Preview}
}
