package keyboard

import (
	"errors"
	"slices"

	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

// ConnectionHandler drives keyboard connection mode, free-draw toggling and
// the connection selection mode.
type ConnectionHandler struct{}

func (ConnectionHandler) Name() string  { return "connection" }
func (ConnectionHandler) Priority() int { return 20 }

func (ConnectionHandler) Handle(ctx *Context) Result {
	ev := ctx.Event
	switch ctx.Canvas.Mode() {
	case interaction.KeyboardConnect:
		return handleKeyboardConnect(ctx)
	case interaction.FreeConnect:
		if ev.Key == "escape" || ctx.Is(keymap.ToggleFreeConnection) {
			ctx.Canvas.CancelTransient()
			ctx.status("free connection off")
			return Handled
		}
	case interaction.ConnectionSelection:
		if r := handleConnectionSelection(ctx); r.Handled {
			return r
		}
	}

	switch {
	case ctx.Is(keymap.StartConnection):
		id := ctx.Cards.SelectedID()
		if id == "" {
			ctx.status("select a card to connect from")
			return Handled
		}
		if ctx.Canvas.StartKeyboardConnect(id) {
			ctx.status("connect: arrows pick a target, Enter confirms, Esc cancels")
		}
		return Handled
	case ctx.Is(keymap.ToggleFreeConnection):
		ctx.Canvas.ToggleFreeConnect()
		ctx.status("free connection on: drag from card to card")
		return Handled
	case ctx.Is(keymap.EditLabel):
		if id := ctx.Connections.SelectedID(); id != "" {
			ctx.UI.EditLabel(id)
			return Handled
		}
	}
	return Pass
}

func handleKeyboardConnect(ctx *Context) Result {
	switch key := ctx.Event.Key; key {
	case "escape":
		ctx.Canvas.CancelTransient()
		ctx.status("connection cancelled")
		return Handled
	case "enter":
		target := ctx.Connections.ConnectionTarget()
		if target == "" {
			ctx.status("no target: use the arrow keys")
			return Handled
		}
		_, err := ctx.Canvas.CompleteKeyboardConnect(target)
		switch {
		case errors.Is(err, store.ErrDuplicateConnection):
			ctx.status("those cards are already connected")
		case err != nil:
			ctx.status("connection not created")
		default:
			ctx.status("connected")
		}
		return Handled
	case "up", "down", "left", "right":
		moveTarget(ctx, direction(key))
		return Handled
	}
	return Pass
}

// moveTarget moves the candidate highlight to the nearest card in dir,
// measured from the current candidate or the start card.
func moveTarget(ctx *Context, dir layout.Direction) {
	start, ok := ctx.Connections.ConnectionMode()
	if !ok {
		return
	}
	from, ok := ctx.Cards.Get(ctx.Connections.ConnectionTarget())
	if !ok {
		from, _ = ctx.Cards.Get(start)
	}
	candidates := slices.DeleteFunc(ctx.Cards.All(), func(c model.Card) bool { return c.ID == start })
	if next, ok := layout.NearestInDirection(from, candidates, dir); ok {
		ctx.Connections.SetConnectionTarget(next.ID)
		ctx.reveal(next)
	}
}

func handleConnectionSelection(ctx *Context) Result {
	ev := ctx.Event
	switch ev.Key {
	case "tab":
		if !ctx.plain() || ctx.SpacePressed {
			return Pass
		}
		selected := ctx.Connections.SelectedIDs()
		if ctx.Flags.ConnectionCycling || len(selected) != 1 {
			stepConnection(ctx, ctx.ShiftKey)
			return Handled
		}
		ctx.record()
		if a, ok := ctx.Connections.CycleArrowType(selected[0]); ok {
			ctx.status("arrow: " + string(a))
		}
		return Handled
	case "up", "left":
		if ctx.plain() {
			stepConnection(ctx, true)
			return Handled
		}
	case "down", "right":
		if ctx.plain() {
			stepConnection(ctx, false)
			return Handled
		}
	}
	return Pass
}

// stepConnection selects the next or previous connection, wrapping.
func stepConnection(ctx *Context, reverse bool) {
	conns := ctx.Connections.All()
	if len(conns) == 0 {
		ctx.status("no connections")
		return
	}
	i := slices.IndexFunc(conns, func(c model.Connection) bool { return c.ID == ctx.Connections.SelectedID() })
	switch {
	case i < 0:
		i = 0
	case reverse:
		i = (i - 1 + len(conns)) % len(conns)
	default:
		i = (i + 1) % len(conns)
	}
	ctx.State.SelectConnection(conns[i].ID, false)
	if mid, ok := ctx.State.ConnectionMidpoint(conns[i]); ok &&
		!ctx.Canvas.Viewport().WorldRect().Contains(mid) {
		ctx.Canvas.CenterOn(mid)
	}
}
