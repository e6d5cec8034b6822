// Package keyboard dispatches key presses through a priority ordered chain
// of handlers. The first handler that reports the key as handled stops the
// chain and the caller suppresses the key's default effect.
package keyboard

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
	"mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

// Result is a handler's verdict on one key.
type Result struct {
	Handled bool
}

var (
	Handled = Result{Handled: true}
	Pass    = Result{}
)

// Handler is one link of the chain. Lower priorities run first; handlers of
// equal priority keep their registration order.
type Handler interface {
	Name() string
	Priority() int
	Handle(ctx *Context) Result
}

// History is the undo engine as seen by handlers.
type History interface {
	Record() bool
	Undo() bool
	Redo() bool
}

// Clipboard is the copy/paste engine as seen by handlers.
type Clipboard interface {
	Copy() int
	Cut() int
	Paste(at geometry.Point) int
}

// UI is implemented by the terminal front end for everything that needs
// presentation.
type UI interface {
	StartEditing(cardID string)
	StopEditing()
	EditLabel(connectionID string)
	ToggleHelp()
	Export(format string)
	Import()
	Quit()
	Status(msg string)
	// PointerWorld is the last known pointer position in world space.
	PointerWorld() (geometry.Point, bool)
}

// Flags is keyboard state that outlives a single key press.
type Flags struct {
	// ConnectionCycling makes Tab walk through connections instead of
	// cycling the selected connection's arrow type.
	ConnectionCycling bool
}

// Context is shared by every handler for one key press.
type Context struct {
	Event        keymap.Event
	IsEditing    bool
	KeyBindings  keymap.Bindings
	CtrlOrMeta   bool
	ShiftKey     bool
	AltKey       bool
	TabPressed   bool
	SpacePressed bool

	State       *store.AppState
	Cards       *store.CardStore
	Connections *store.ConnectionStore
	Canvas      *interaction.Engine
	History     History
	Clipboard   Clipboard
	Mover       *Mover
	UI          UI
	Flags       *Flags
	Log         *log.Logger
}

func (c *Context) record() {
	if c.History != nil {
		c.History.Record()
	}
}

func (c *Context) status(msg string) {
	if c.UI != nil {
		c.UI.Status(msg)
	}
}

// Is reports whether the event triggers action a.
func (c *Context) Is(a keymap.Action) bool { return c.KeyBindings.Is(a, c.Event) }

// plain is true for a key pressed without Ctrl, Cmd or Alt.
func (c *Context) plain() bool { return !c.CtrlOrMeta && !c.AltKey }

// reveal pans the canvas when card is outside the visible area.
func (c *Context) reveal(card model.Card) {
	if !c.Canvas.Viewport().WorldRect().ContainsRect(card.Rect()) {
		c.Canvas.CenterOn(card.Center())
	}
}

// Deps are the collaborators handed to every Context.
type Deps struct {
	State     *store.AppState
	Canvas    *interaction.Engine
	History   History
	Clipboard Clipboard
	Mover     *Mover
	UI        UI
	Bindings  keymap.Bindings
	Logger    *log.Logger
}

// Dispatcher owns the handler chain.
type Dispatcher struct {
	deps     Deps
	handlers []Handler
	flags    Flags
	tab      bool
	space    bool
}

// DefaultHandlers returns the standard chain.
func DefaultHandlers() []Handler {
	return []Handler{
		EditHandler{},
		NavigationHandler{},
		ConnectionHandler{},
		ViewHandler{},
		CardHandler{},
	}
}

// NewDispatcher returns a dispatcher running handlers, or the default chain
// when none are given.
func NewDispatcher(deps Deps, handlers ...Handler) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Bindings == nil {
		deps.Bindings = keymap.Defaults()
	}
	if len(handlers) == 0 {
		handlers = DefaultHandlers()
	}
	d := &Dispatcher{deps: deps}
	for _, h := range handlers {
		d.Register(h)
	}
	return d
}

// Register adds a handler keeping the chain ordered by priority.
func (d *Dispatcher) Register(h Handler) {
	d.handlers = append(d.handlers, h)
	slices.SortStableFunc(d.handlers, func(a, b Handler) int { return a.Priority() - b.Priority() })
}

// Handlers returns the handler names in dispatch order.
func (d *Dispatcher) Handlers() []string {
	names := make([]string, len(d.handlers))
	for i, h := range d.handlers {
		names[i] = h.Name()
	}
	return names
}

// SetBindings replaces the key bindings.
func (d *Dispatcher) SetBindings(b keymap.Bindings) { d.deps.Bindings = b }

// Bindings returns the active key bindings.
func (d *Dispatcher) Bindings() keymap.Bindings { return d.deps.Bindings }

// Flags exposes the persistent keyboard flags.
func (d *Dispatcher) Flags() Flags { return d.flags }

// SpacePressed reports whether Space is currently held.
func (d *Dispatcher) SpacePressed() bool { return d.space }

func (d *Dispatcher) context(ev keymap.Event, editing bool) *Context {
	return &Context{
		Event:        ev,
		IsEditing:    editing,
		KeyBindings:  d.deps.Bindings,
		CtrlOrMeta:   ev.CtrlOrMeta(),
		ShiftKey:     ev.Shift,
		AltKey:       ev.Alt,
		TabPressed:   d.tab,
		SpacePressed: d.space,
		State:        d.deps.State,
		Cards:        d.deps.State.Cards,
		Connections:  d.deps.State.Connections,
		Canvas:       d.deps.Canvas,
		History:      d.deps.History,
		Clipboard:    d.deps.Clipboard,
		Mover:        d.deps.Mover,
		UI:           d.deps.UI,
		Flags:        &d.flags,
		Log:          d.deps.Logger,
	}
}

// editExit reports whether ev is one of the keys intercepted while a text
// field has focus.
func (d *Dispatcher) editExit(ev keymap.Event) bool {
	switch {
	case ev.Key == "escape":
		return true
	case ev.Key == "enter" && ev.CtrlOrMeta():
		return true
	}
	return d.deps.Bindings.Is(keymap.NewCard, ev)
}

// KeyDown runs the chain for a key press. It returns true when a handler
// took the key and its default effect must be suppressed.
func (d *Dispatcher) KeyDown(ev keymap.Event, editing bool) bool {
	ev.Key = keymap.NormalizeKey(ev.Key)
	if editing && !d.editExit(ev) {
		return false
	}
	switch ev.Key {
	case "tab":
		d.tab = true
	case "space":
		if !editing {
			d.space = true
		}
	}
	ctx := d.context(ev, editing)
	for _, h := range d.handlers {
		if h.Handle(ctx).Handled {
			d.deps.Logger.Debug("key", "key", ev.Key, "handler", h.Name())
			return true
		}
	}
	return false
}

// KeyUp ends continuous actions started by a key press.
func (d *Dispatcher) KeyUp(ev keymap.Event) {
	switch keymap.NormalizeKey(ev.Key) {
	case "up", "down", "left", "right":
		if d.deps.Mover != nil {
			d.deps.Mover.Stop()
		}
	case "space":
		d.space = false
		if d.deps.Canvas != nil {
			d.deps.Canvas.SetSpaceHeld(false)
		}
	case "tab":
		d.tab = false
	}
}
