package keyboard

import (
	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
)

// ViewHandler covers zoom, centering and the application level commands.
type ViewHandler struct{}

func (ViewHandler) Name() string  { return "view" }
func (ViewHandler) Priority() int { return 30 }

func (ViewHandler) Handle(ctx *Context) Result {
	switch {
	case ctx.Is(keymap.ZoomIn):
		ctx.Canvas.ZoomBy(interaction.ZoomStep)
	case ctx.Is(keymap.ZoomOut):
		ctx.Canvas.ZoomBy(1 / interaction.ZoomStep)
	case ctx.Is(keymap.ResetZoom):
		ctx.Canvas.ResetZoom()
	case ctx.Is(keymap.CenterSelection):
		if !ctx.Canvas.CenterOnCards(ctx.Cards.SelectedCards()) {
			ctx.Canvas.CenterOnCards(ctx.Cards.All())
		}
	case ctx.Is(keymap.Help):
		ctx.UI.ToggleHelp()
	case ctx.Is(keymap.ExportMarkdown):
		ctx.UI.Export("markdown")
	case ctx.Is(keymap.ExportMermaid):
		ctx.UI.Export("mermaid")
	case ctx.Is(keymap.ExportPNG):
		ctx.UI.Export("png")
	case ctx.Is(keymap.ImportFile):
		ctx.UI.Import()
	case ctx.Is(keymap.Quit):
		ctx.UI.Quit()
	case ctx.Event.Key == "space" && ctx.plain():
		ctx.Canvas.SetSpaceHeld(true)
	default:
		return Pass
	}
	return Handled
}
