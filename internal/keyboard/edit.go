package keyboard

import (
	"fmt"

	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
)

// EditHandler owns text-edit exits and the global edit commands: undo,
// redo, clipboard and select all.
type EditHandler struct{}

func (EditHandler) Name() string  { return "edit" }
func (EditHandler) Priority() int { return 10 }

func (EditHandler) Handle(ctx *Context) Result {
	ev := ctx.Event
	if ctx.IsEditing {
		switch {
		case ev.Key == "escape", ev.Key == "enter" && ctx.CtrlOrMeta:
			ctx.UI.StopEditing()
			return Handled
		case ctx.Is(keymap.NewCard):
			ctx.UI.StopEditing()
			createCard(ctx)
			return Handled
		}
		return Pass
	}

	switch {
	case ctx.Is(keymap.Redo), ctx.CtrlOrMeta && ctx.ShiftKey && ev.Key == "z":
		leaveForHistory(ctx)
		if ctx.History == nil || !ctx.History.Redo() {
			ctx.status("nothing to redo")
		}
		return Handled
	case ctx.Is(keymap.Undo):
		leaveForHistory(ctx)
		if ctx.History == nil || !ctx.History.Undo() {
			ctx.status("nothing to undo")
		}
		return Handled
	case ctx.Is(keymap.Copy):
		if ctx.Clipboard != nil {
			ctx.status(fmt.Sprintf("copied %d cards", ctx.Clipboard.Copy()))
		}
		return Handled
	case ctx.Is(keymap.Cut):
		if ctx.Clipboard != nil {
			ctx.status(fmt.Sprintf("cut %d cards", ctx.Clipboard.Cut()))
		}
		return Handled
	case ctx.Is(keymap.Paste):
		if ctx.Clipboard != nil {
			at, ok := ctx.UI.PointerWorld()
			if !ok {
				at = ctx.Canvas.Viewport().WorldCenter()
			}
			if n := ctx.Clipboard.Paste(at); n > 0 {
				ctx.status(fmt.Sprintf("pasted %d cards", n))
			}
		}
		return Handled
	case ctx.Is(keymap.SelectAll):
		if ctx.Canvas.BaseMode() == interaction.ConnectionSelection {
			ctx.Canvas.SetMode(interaction.CardSelection)
		}
		cards := ctx.Cards.All()
		ids := make([]string, len(cards))
		for i, c := range cards {
			ids[i] = c.ID
		}
		ctx.State.SelectCards(ids, true)
		return Handled
	}
	return Pass
}

// leaveForHistory drops the transient state a snapshot restore would leave
// stale: a pending keyboard connection or free line and the move session.
func leaveForHistory(ctx *Context) {
	ctx.Canvas.CancelTransient()
	if ctx.Mover != nil {
		ctx.Mover.Reset()
	}
}

// createCard adds a card at a free spot of the visible area and opens it
// for editing.
func createCard(ctx *Context) {
	ctx.record()
	if m := ctx.Canvas.BaseMode(); m == interaction.ConnectionSelection || m == interaction.CanvasDrag {
		ctx.Canvas.SetMode(interaction.CardSelection)
	}
	c := ctx.State.CreateCard(ctx.Canvas.Viewport().WorldRect())
	ctx.UI.StartEditing(c.ID)
}
