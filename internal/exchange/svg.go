package exchange

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/muesli/reflow/wordwrap"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/model"
)

// svgCharWidth approximates the advance of the monospace font used for
// card text.
const svgCharWidth = 7.8

// ExportSVG writes doc as a standalone SVG document in world units.
func ExportSVG(w io.Writer, doc model.Document) error {
	bounds, err := exportBounds(doc)
	if err != nil {
		return err
	}
	ox, oy := bounds.X, bounds.Y
	px := func(v, o float64) int { return int(math.Round(v - o)) }

	canvas := svg.New(w)
	canvas.Start(int(math.Ceil(bounds.Width)), int(math.Ceil(bounds.Height)))
	canvas.Rect(0, 0, int(math.Ceil(bounds.Width)), int(math.Ceil(bounds.Height)), "fill:#ffffff")

	cards := cardIndex(doc.Cards)
	ink := fmt.Sprintf("#%02x%02x%02x", inkColor.R, inkColor.G, inkColor.B)
	for _, conn := range doc.Connections {
		a, b, ok := segment(cards, conn)
		if !ok {
			continue
		}
		canvas.Line(px(a.X, ox), px(a.Y, oy), px(b.X, ox), px(b.Y, oy), "stroke:"+ink+";stroke-width:1.5")
		if conn.ArrowType.HasEnd() {
			arrowSVG(canvas, a, b, ox, oy, ink)
		}
		if conn.ArrowType.HasStart() {
			arrowSVG(canvas, b, a, ox, oy, ink)
		}
		if conn.Label != "" {
			mid := geometry.Midpoint(a, b)
			canvas.Text(px(mid.X, ox), px(mid.Y, oy), conn.Label,
				"font-family:monospace;font-size:12px;text-anchor:middle;fill:"+ink+";paint-order:stroke;stroke:#ffffff;stroke-width:4")
		}
	}

	for _, c := range doc.Cards {
		x, y := px(c.X, ox), px(c.Y, oy)
		canvas.Roundrect(x, y, int(c.Width), int(c.Height), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", c.Color, ink))
		cols := max(1, int((c.Width-2*cardPadding)/svgCharWidth))
		rows := int((c.Height - 2*cardPadding) / (fontSize * 1.3))
		lines := strings.Split(wordwrap.String(c.Content, cols), "\n")
		if len(lines) > rows && rows > 0 {
			lines = append(lines[:rows-1], lines[rows-1]+"...")
		}
		for i, l := range lines {
			if i >= rows {
				break
			}
			canvas.Text(x+int(cardPadding), y+int(cardPadding+fontSize+float64(i)*fontSize*1.3), l,
				"font-family:monospace;font-size:13px;fill:"+ink)
		}
	}
	canvas.End()
	return nil
}

func arrowSVG(canvas *svg.SVG, from, to geometry.Point, ox, oy float64, ink string) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length
	xs := []int{
		int(math.Round(to.X - ox)),
		int(math.Round(to.X - arrowSize*dx + arrowSize*dy*arrowAngle - ox)),
		int(math.Round(to.X - arrowSize*dx - arrowSize*dy*arrowAngle - ox)),
	}
	ys := []int{
		int(math.Round(to.Y - oy)),
		int(math.Round(to.Y - arrowSize*dy - arrowSize*dx*arrowAngle - oy)),
		int(math.Round(to.Y - arrowSize*dy + arrowSize*dx*arrowAngle - oy)),
	}
	canvas.Polygon(xs, ys, "fill:"+ink)
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
