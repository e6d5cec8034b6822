package keyboard

import (
	"fmt"

	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
)

// CardHandler runs last and owns the card commands.
type CardHandler struct{}

func (CardHandler) Name() string  { return "card" }
func (CardHandler) Priority() int { return 50 }

func (CardHandler) Handle(ctx *Context) Result {
	ev := ctx.Event
	switch {
	case ctx.Is(keymap.NewCard):
		createCard(ctx)
		return Handled
	case ctx.Is(keymap.EditCard):
		id := ctx.Cards.SelectedID()
		if id == "" {
			return Pass
		}
		ctx.UI.StartEditing(id)
		return Handled
	case ctx.Is(keymap.DeleteSelection), ev.Key == "backspace" && ctx.plain():
		if len(ctx.Cards.SelectedIDs()) == 0 && len(ctx.Connections.SelectedIDs()) == 0 {
			return Pass
		}
		ctx.record()
		ctx.State.DeleteSelection()
		return Handled
	case ctx.Is(keymap.CycleColor):
		ids := ctx.Cards.SelectedIDs()
		if len(ids) == 0 {
			return Pass
		}
		ctx.record()
		n := ctx.Cards.CycleColor(ids...)
		ctx.status(fmt.Sprintf("recolored %d cards", n))
		return Handled
	case ev.Key == "escape":
		ctx.State.ClearSelection()
		return Handled
	}

	switch ev.Key {
	case "up", "down", "left", "right":
		if ctx.Canvas.Mode() != interaction.CardMovement || ctx.Mover == nil || ctx.CtrlOrMeta {
			return Pass
		}
		if !ctx.Mover.Start(direction(ev.Key), ctx.ShiftKey) {
			return Pass
		}
		return Handled
	}
	return Pass
}
