package exchange

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
)

const (
	// DefaultPNGScale renders at twice the world resolution.
	DefaultPNGScale = 2.0

	exportPadding = 40.0
	cardPadding   = 10.0
	fontSize      = 13.0
	arrowSize     = 10.0
	arrowAngle    = 0.5
)

var (
	inkColor   = color.RGBA{0x21, 0x25, 0x29, 0xff}
	labelPaper = color.RGBA{0xff, 0xff, 0xff, 0xe6}
)

// exportBounds returns the padded world rectangle an export covers.
func exportBounds(doc model.Document) (geometry.Rect, error) {
	b, ok := layout.BoundingBox(doc.Cards)
	if !ok {
		return geometry.Rect{}, ErrEmpty
	}
	r := b.Rect()
	return geometry.Rect{
		X: r.X - exportPadding, Y: r.Y - exportPadding,
		Width: r.Width + 2*exportPadding, Height: r.Height + 2*exportPadding,
	}, nil
}

// ExportPNG rasterizes doc at scale pixels per world unit and encodes it to
// w. Connections are drawn below cards.
func ExportPNG(w io.Writer, doc model.Document, scale float64) error {
	if scale <= 0 {
		scale = DefaultPNGScale
	}
	bounds, err := exportBounds(doc)
	if err != nil {
		return err
	}

	dc := gg.NewContext(int(math.Ceil(bounds.Width*scale)), int(math.Ceil(bounds.Height*scale)))
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(scale, scale)
	dc.Translate(-bounds.X, -bounds.Y)

	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	cards := cardIndex(doc.Cards)
	for _, conn := range doc.Connections {
		drawConnectionPNG(dc, cards, conn)
	}
	for _, c := range doc.Cards {
		drawCardPNG(dc, c)
	}
	return dc.EncodePNG(w)
}

func drawConnectionPNG(dc *gg.Context, cards map[string]model.Card, conn model.Connection) {
	a, b, ok := segment(cards, conn)
	if !ok {
		return
	}
	dc.SetLineWidth(1.5)
	dc.SetColor(inkColor)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()
	if conn.ArrowType.HasEnd() {
		drawArrowPNG(dc, a, b)
	}
	if conn.ArrowType.HasStart() {
		drawArrowPNG(dc, b, a)
	}
	if conn.Label != "" {
		mid := geometry.Midpoint(a, b)
		w, h := dc.MeasureString(conn.Label)
		dc.SetColor(labelPaper)
		dc.DrawRectangle(mid.X-w/2-4, mid.Y-h/2-3, w+8, h+6)
		dc.Fill()
		dc.SetColor(inkColor)
		dc.DrawStringAnchored(conn.Label, mid.X, mid.Y, 0.5, 0.35)
	}
}

// drawArrowPNG fills an arrow head at to, pointing away from from.
func drawArrowPNG(dc *gg.Context, from, to geometry.Point) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length

	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-arrowSize*dx+arrowSize*dy*arrowAngle, to.Y-arrowSize*dy-arrowSize*dx*arrowAngle)
	dc.LineTo(to.X-arrowSize*dx-arrowSize*dy*arrowAngle, to.Y-arrowSize*dy+arrowSize*dx*arrowAngle)
	dc.ClosePath()
	dc.Fill()
}

func drawCardPNG(dc *gg.Context, c model.Card) {
	dc.DrawRoundedRectangle(c.X, c.Y, c.Width, c.Height, 6)
	dc.SetHexColor(c.Color)
	dc.FillPreserve()
	dc.SetLineWidth(1)
	dc.SetColor(inkColor)
	dc.Stroke()

	lineHeight := dc.FontHeight() * 1.3
	maxLines := int((c.Height - 2*cardPadding) / lineHeight)
	var lines []string
	for _, para := range splitLines(c.Content) {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, dc.WordWrap(para, c.Width-2*cardPadding)...)
	}
	if len(lines) > maxLines && maxLines > 0 {
		lines = append(lines[:maxLines-1], lines[maxLines-1]+"...")
	}
	dc.Push()
	dc.DrawRectangle(c.X, c.Y, c.Width, c.Height)
	dc.Clip()
	for i, l := range lines {
		if i >= maxLines {
			break
		}
		dc.DrawString(l, c.X+cardPadding, c.Y+cardPadding+dc.FontHeight()+float64(i)*lineHeight)
	}
	dc.Pop()
}
