package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/interaction"
	cardmodel "mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

// paint is the look of one cell. It is comparable so runs of equal cells
// can be rendered with a single style.
type paint struct {
	fg, bg  string
	bold    bool
	reverse bool
}

var (
	plainPaint     = paint{}
	linePaint      = paint{fg: "245"}
	selectedLine   = paint{fg: "212", bold: true}
	labelPaint     = paint{fg: "252"}
	drawPaint      = paint{fg: "214", bold: true}
	marqueePaint   = paint{fg: "39"}
	cardText       = "235"
	selectedBorder = "212"
	targetBorder   = "214"
)

type grid struct {
	width, height int
	runes         [][]rune
	paints        [][]paint
}

func newGrid(width, height int) *grid {
	width, height = max(width, 1), max(height, 1)
	g := &grid{width: width, height: height}
	g.runes = make([][]rune, height)
	g.paints = make([][]paint, height)
	for y := range g.runes {
		g.runes[y] = []rune(strings.Repeat(" ", width))
		g.paints[y] = make([]paint, width)
	}
	return g
}

func (g *grid) valid(x, y int) bool { return x >= 0 && y >= 0 && x < g.width && y < g.height }

func (g *grid) set(x, y int, r rune, p paint) {
	if g.valid(x, y) {
		g.runes[y][x] = r
		g.paints[y][x] = p
	}
}

func (g *grid) text(x, y int, s string, p paint) {
	for _, r := range s {
		g.set(x, y, r, p)
		x++
	}
}

// lines returns the rows, styled with lipgloss unless plain is set.
func (g *grid) lines(plain bool) []string {
	out := make([]string, g.height)
	for y := range g.runes {
		if plain {
			out[y] = strings.TrimRight(string(g.runes[y]), " ")
			continue
		}
		var b strings.Builder
		start := 0
		for x := 1; x <= g.width; x++ {
			if x < g.width && g.paints[y][x] == g.paints[y][start] {
				continue
			}
			b.WriteString(g.paints[y][start].render(string(g.runes[y][start:x])))
			start = x
		}
		out[y] = b.String()
	}
	return out
}

func (p paint) render(s string) string {
	if p == plainPaint {
		return s
	}
	st := lipgloss.NewStyle().Bold(p.bold).Reverse(p.reverse)
	if p.fg != "" {
		st = st.Foreground(lipgloss.Color(p.fg))
	}
	if p.bg != "" {
		st = st.Background(lipgloss.Color(p.bg))
	}
	return st.Render(s)
}

// renderOptions selects the overlays drawn on top of the map.
type renderOptions struct {
	// decorations draws selection, marquee, preview and handles.
	decorations bool
	editingID   string
}

// renderCanvas draws the visible part of the map into width x height cells.
// Connections go first so cards cover them.
func renderCanvas(state *store.AppState, canvas *interaction.Engine, width, height int, opts renderOptions) *grid {
	g := newGrid(width, height)
	vp := canvas.Viewport()
	cards := state.Cards.All()

	for _, conn := range state.Connections.All() {
		a, b, ok := state.ConnectionSegment(conn)
		if !ok {
			continue
		}
		p := linePaint
		if opts.decorations && state.Connections.IsSelected(conn.ID) {
			p = selectedLine
		}
		ax, ay := toCell(vp, a)
		bx, by := toCell(vp, b)
		g.line(ax, ay, bx, by, p)
		if conn.ArrowType.HasEnd() {
			x, y := g.arrowCell(ax, ay, bx, by, state, conn.EndCardID, vp)
			g.set(x, y, arrowHead(ax, ay, bx, by), p)
		}
		if conn.ArrowType.HasStart() {
			x, y := g.arrowCell(bx, by, ax, ay, state, conn.StartCardID, vp)
			g.set(x, y, arrowHead(bx, by, ax, ay), p)
		}
		if conn.Label != "" {
			mx, my := (ax+bx)/2, (ay+by)/2
			label := " " + conn.Label + " "
			lp := labelPaint
			if p == selectedLine {
				lp = p
			}
			g.text(mx-len([]rune(label))/2, my, label, lp)
		}
	}

	if opts.decorations {
		if path := canvas.DrawPath(); len(path) > 0 {
			px, py := toCell(vp, path[0])
			for _, w := range path[1:] {
				x, y := toCell(vp, w)
				g.dotted(px, py, x, y, drawPaint)
				px, py = x, y
			}
		}
	}

	var preview map[string]bool
	var target, start string
	if opts.decorations {
		preview = make(map[string]bool)
		for _, id := range canvas.BoxPreview() {
			preview[id] = true
		}
		if s, ok := state.Connections.ConnectionMode(); ok {
			start = s
			target = state.Connections.ConnectionTarget()
		}
	}

	for _, c := range cards {
		selected := opts.decorations && (state.Cards.IsSelected(c.ID) || preview[c.ID])
		border := ""
		switch {
		case c.ID == target || c.ID == start:
			border = targetBorder
		case selected:
			border = selectedBorder
		}
		g.card(vp, c, selected, border, opts.editingID == c.ID)
		if opts.decorations && state.Cards.IsSelected(c.ID) && c.ID != opts.editingID {
			h := canvas.HandleRect(c)
			hx, hy := screenCell(geometry.Point{X: h.Right() - 1, Y: h.Bottom() - 1})
			g.set(hx, hy, '◢', paint{fg: selectedBorder, bg: c.Color, bold: true})
		}
	}

	if opts.decorations {
		if r, ok := canvas.Marquee(); ok {
			x0, y0 := toCell(vp, geometry.Point{X: r.X, Y: r.Y})
			x1, y1 := toCell(vp, geometry.Point{X: r.Right(), Y: r.Bottom()})
			g.rect(x0, y0, x1, y1, marqueePaint)
		}
	}
	return g
}

// card draws a bordered box filled with the card color and its wrapped
// content. Selected cards use '#' borders.
func (g *grid) card(vp geometry.Viewport, c cardmodel.Card, selected bool, border string, editing bool) {
	x0, y0, x1, y1 := cardCells(vp, c)
	if x1 < 0 || y1 < 0 || x0 >= g.width || y0 >= g.height {
		return
	}

	fill := paint{fg: cardText, bg: c.Color}
	edge := fill
	if border != "" {
		edge = paint{fg: border, bg: c.Color, bold: true}
	}
	corner, horizontal, vertical := '+', '-', '|'
	switch {
	case editing:
		corner, horizontal, vertical = '=', '=', '‖'
	case selected:
		corner, horizontal, vertical = '#', '#', '#'
	}

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			switch {
			case (y == y0 || y == y1) && (x == x0 || x == x1):
				g.set(x, y, corner, edge)
			case y == y0 || y == y1:
				g.set(x, y, horizontal, edge)
			case x == x0 || x == x1:
				g.set(x, y, vertical, edge)
			default:
				g.set(x, y, ' ', fill)
			}
		}
	}

	innerW, innerH := x1-x0-1, y1-y0-1
	if innerW <= 0 || innerH <= 0 {
		return
	}
	lines := strings.Split(wordwrap.String(c.Content, innerW), "\n")
	for i, l := range lines {
		if i >= innerH {
			break
		}
		g.text(x0+1, y0+1+i, truncate.String(l, uint(innerW)), fill)
	}
}

// cardCells is the cell box a card is drawn in, at least 3x3.
func cardCells(vp geometry.Viewport, c cardmodel.Card) (x0, y0, x1, y1 int) {
	x0, y0 = toCell(vp, geometry.Point{X: c.X, Y: c.Y})
	x1, y1 = toCell(vp, geometry.Point{X: c.X + c.Width, Y: c.Y + c.Height})
	return x0, y0, max(x1-1, x0+2), max(y1-1, y0+2)
}

// arrowCell is the last cell of the line from (fx, fy) to (tx, ty) outside
// the target card, so the card does not hide the arrow head.
func (g *grid) arrowCell(fx, fy, tx, ty int, state *store.AppState, cardID string, vp geometry.Viewport) (int, int) {
	c, ok := state.Cards.Get(cardID)
	if !ok {
		return tx, ty
	}
	x0, y0, x1, y1 := cardCells(vp, c)
	ax, ay := fx, fy
	g.walk(fx, fy, tx, ty, func(x, y, _ int) {
		if x < x0 || x > x1 || y < y0 || y > y1 {
			ax, ay = x, y
		}
	})
	return ax, ay
}

// line draws a straight connection between two cells.
func (g *grid) line(x0, y0, x1, y1 int, p paint) {
	r := lineRune(x1-x0, y1-y0)
	g.walk(x0, y0, x1, y1, func(x, y, _ int) { g.set(x, y, r, p) })
}

func (g *grid) dotted(x0, y0, x1, y1 int, p paint) {
	g.walk(x0, y0, x1, y1, func(x, y, _ int) { g.set(x, y, '·', p) })
}

// walk visits the cells of a Bresenham line.
func (g *grid) walk(x0, y0, x1, y1 int, visit func(x, y, i int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for i := 0; ; i++ {
		visit(x0, y0, i)
		if x0 == x1 && y0 == y1 {
			return
		}
		// stop far off screen lines from spinning
		if i > 4*(g.width+g.height) && !g.valid(x0, y0) {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// rect draws the selection box frame.
func (g *grid) rect(x0, y0, x1, y1 int, p paint) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for x := x0 + 1; x < x1; x++ {
		g.set(x, y0, '─', p)
		g.set(x, y1, '─', p)
	}
	for y := y0 + 1; y < y1; y++ {
		g.set(x0, y, '│', p)
		g.set(x1, y, '│', p)
	}
	g.set(x0, y0, '┌', p)
	g.set(x1, y0, '┐', p)
	g.set(x0, y1, '└', p)
	g.set(x1, y1, '┘', p)
}

func lineRune(dx, dy int) rune {
	// cells are twice as tall as wide
	switch ax, ay := abs(dx), abs(dy)*2; {
	case ay <= ax/2:
		return '─'
	case ax <= ay/2:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// arrowHead points from (fx, fy) towards (tx, ty).
func arrowHead(fx, fy, tx, ty int) rune {
	dx, dy := tx-fx, (ty-fy)*2
	if abs(dx) >= abs(dy) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy > 0 {
		return '▼'
	}
	return '▲'
}
