package keyboard

import (
	"slices"

	"mindcanvas/internal/interaction"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
)

// PanStep is the screen distance an arrow key pans in canvas-drag mode.
const PanStep = 50.0

// NavigationHandler switches modes with the digit keys, cycles cards with
// Tab and walks between cards with the arrow keys.
type NavigationHandler struct{}

func (NavigationHandler) Name() string  { return "navigation" }
func (NavigationHandler) Priority() int { return 10 }

func (NavigationHandler) Handle(ctx *Context) Result {
	ev := ctx.Event
	if !ctx.plain() {
		return Pass
	}
	if len(ev.Key) == 1 {
		if m, ok := interaction.ModeForDigit(rune(ev.Key[0])); ok {
			ctx.Canvas.SetMode(m)
			ctx.status("mode: " + m.String())
			return Handled
		}
	}

	mode := ctx.Canvas.Mode()
	switch ev.Key {
	case "tab":
		if ctx.SpacePressed {
			ctx.Flags.ConnectionCycling = !ctx.Flags.ConnectionCycling
			if ctx.Flags.ConnectionCycling {
				ctx.status("tab cycles connections")
			} else {
				ctx.status("tab cycles arrow types")
			}
			return Handled
		}
		if mode == interaction.ConnectionSelection || mode.Transient() {
			return Pass
		}
		cycleCards(ctx, ctx.ShiftKey)
		return Handled
	case "up", "down", "left", "right":
		dir := direction(ev.Key)
		switch mode {
		case interaction.CardSelection:
			navigate(ctx, dir)
			return Handled
		case interaction.CanvasDrag:
			v := dir.Vector()
			ctx.Canvas.PanBy(-v.X*PanStep, -v.Y*PanStep)
			return Handled
		}
	}
	return Pass
}

func direction(key string) layout.Direction {
	switch key {
	case "up":
		return layout.Up
	case "down":
		return layout.Down
	case "left":
		return layout.Left
	}
	return layout.Right
}

func cycleCards(ctx *Context, reverse bool) {
	cards := ctx.Cards.All()
	if len(cards) == 0 {
		return
	}
	i := slices.IndexFunc(cards, func(c model.Card) bool { return c.ID == ctx.Cards.SelectedID() })
	switch {
	case i < 0:
		i = 0
	case reverse:
		i = (i - 1 + len(cards)) % len(cards)
	default:
		i = (i + 1) % len(cards)
	}
	ctx.State.SelectCard(cards[i].ID, false)
	ctx.reveal(cards[i])
}

// navigate selects the nearest card in dir, or the card closest to the
// screen center when nothing is selected.
func navigate(ctx *Context, dir layout.Direction) {
	cards := ctx.Cards.All()
	if len(cards) == 0 {
		return
	}
	current, ok := ctx.Cards.Get(ctx.Cards.SelectedID())
	if !ok {
		center := ctx.Canvas.Viewport().WorldCenter()
		best := cards[0]
		for _, c := range cards[1:] {
			if c.Center().Dist(center) < best.Center().Dist(center) {
				best = c
			}
		}
		ctx.State.SelectCard(best.ID, false)
		ctx.reveal(best)
		return
	}
	next, ok := layout.NearestInDirection(current, cards, dir)
	if !ok {
		return
	}
	ctx.State.SelectCard(next.ID, false)
	ctx.reveal(next)
}
