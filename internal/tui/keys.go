package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 时间轴快捷键
type KeyMap struct {
	ZoomIn        key.Binding
	ZoomOut       key.Binding
	PanLeft       key.Binding
	PanRight      key.Binding
	PrevDay       key.Binding
	NextDay       key.Binding
	Today         key.Binding
	Play          key.Binding
	Slower        key.Binding
	Faster        key.Binding
	JumpStart     key.Binding
	JumpEnd       key.Binding
	StepBack      key.Binding
	StepForward   key.Binding
	Drag          key.Binding
	NextIncident  key.Binding
	PrevIncident  key.Binding
	OpenIncident  key.Binding
	Focus         key.Binding
	ClearSelected key.Binding
	Resolve       key.Binding
	Quick1        key.Binding
	Quick2        key.Binding
	Quick3        key.Binding
	Refresh       key.Binding
	Quit          key.Binding
}

var keys = KeyMap{
	ZoomIn:        key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:       key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	PanLeft:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
	PanRight:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
	PrevDay:       key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev day")),
	NextDay:       key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next day")),
	Today:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
	Play:          key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
	Slower:        key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "slower")),
	Faster:        key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "faster")),
	JumpStart:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "start")),
	JumpEnd:       key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "end")),
	StepBack:      key.NewBinding(key.WithKeys(","), key.WithHelp(",", "cursor back")),
	StepForward:   key.NewBinding(key.WithKeys("."), key.WithHelp(".", "cursor fwd")),
	Drag:          key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "scrub")),
	NextIncident:  key.NewBinding(key.WithKeys("tab", "j"), key.WithHelp("tab", "next incident")),
	PrevIncident:  key.NewBinding(key.WithKeys("shift+tab", "k"), key.WithHelp("S-tab", "prev incident")),
	OpenIncident:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Focus:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
	ClearSelected: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Resolve:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "resolve")),
	Quick1:        key.NewBinding(key.WithKeys("1")),
	Quick2:        key.NewBinding(key.WithKeys("2")),
	Quick3:        key.NewBinding(key.WithKeys("3")),
	Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// helpBindings 底部帮助行
func (k KeyMap) helpBindings() []key.Binding {
	return []key.Binding{
		k.Play, k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.PrevDay, k.NextDay,
		k.NextIncident, k.OpenIncident, k.Resolve, k.Drag, k.Refresh, k.Quit,
	}
}
