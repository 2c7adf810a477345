package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit           key.Binding
	Help           key.Binding
	Cancel         key.Binding
	NextPage       key.Binding
	PrevPage       key.Binding
	PanUp          key.Binding
	PanDown        key.Binding
	PanLeft        key.Binding
	PanRight       key.Binding
	ZoomIn         key.Binding
	ZoomOut        key.Binding
	ResetView      key.Binding
	Undo           key.Binding
	Redo           key.Binding
	Remove         key.Binding
	CrossPage      key.Binding
	MagUp          key.Binding
	MagDown        key.Binding
	AddPage        key.Binding
	PageSize       key.Binding
	Orientation    key.Binding
	ExportImages   key.Binding
	ExportDocument key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:           key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Cancel:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel placement")),
		NextPage:       key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n/pgdn", "next page")),
		PrevPage:       key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p/pgup", "previous page")),
		PanUp:          key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "pan")),
		PanDown:        key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "pan")),
		PanLeft:        key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "pan")),
		PanRight:       key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "pan")),
		ZoomIn:         key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:        key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		ResetView:      key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "fit width")),
		Undo:           key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:           key.NewBinding(key.WithKeys("r", "ctrl+y"), key.WithHelp("r", "redo")),
		Remove:         key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove last callout")),
		CrossPage:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "toggle copy-to-page")),
		MagUp:          key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "magnify more")),
		MagDown:        key.NewBinding(key.WithKeys("["), key.WithHelp("[", "magnify less")),
		AddPage:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add blank page")),
		PageSize:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "A4/A3")),
		Orientation:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "portrait/landscape")),
		ExportImages:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export images")),
		ExportDocument: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export PDF")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.PrevPage, k.CrossPage, k.Undo, k.ExportImages, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPage, k.PrevPage, k.PanUp, k.PanDown, k.PanLeft, k.PanRight},
		{k.ZoomIn, k.ZoomOut, k.ResetView, k.Cancel},
		{k.CrossPage, k.MagUp, k.MagDown, k.Undo, k.Redo, k.Remove},
		{k.AddPage, k.PageSize, k.Orientation, k.ExportImages, k.ExportDocument, k.Help, k.Quit},
	}
}
