package exchange

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
)

// MetadataTag marks the HTML comment carrying card geometry and
// connections in exported Markdown.
const MetadataTag = "mindcanvas-metadata"

const (
	blockSeparator = "---"
	metadataOpen   = `<span style="display:none">`
)

type mdMetadata struct {
	Cards       []mdCard       `json:"cards"`
	Connections []mdConnection `json:"connections"`
}

type mdCard struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color,omitempty"`
}

type mdConnection struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Label     string          `json:"label,omitempty"`
	ArrowType model.ArrowType `json:"arrowType,omitempty"`
}

// ExportMarkdown writes one block per card, separated by horizontal rules,
// followed by a hidden metadata comment that makes the export lossless.
// Blocks follow the connections depth first from every root card (a card
// nothing points at); unreached cards come last.
func ExportMarkdown(doc model.Document) string {
	order := markdownOrder(doc)
	meta := mdMetadata{
		Cards:       make([]mdCard, 0, len(order)),
		Connections: make([]mdConnection, 0, len(doc.Connections)),
	}
	blocks := make([]string, 0, len(order))
	for _, c := range order {
		blocks = append(blocks, escapeSeparators(c.Content))
		meta.Cards = append(meta.Cards, mdCard{
			ID: c.ID, X: c.X, Y: c.Y, Width: c.Width, Height: c.Height, Color: c.Color,
		})
	}
	for _, conn := range doc.Connections {
		meta.Connections = append(meta.Connections, mdConnection{
			ID: conn.ID, From: conn.StartCardID, To: conn.EndCardID,
			Label: conn.Label, ArrowType: conn.ArrowType,
		})
	}
	// Marshal escapes '>' so the payload can never close the comment early.
	payload, _ := json.Marshal(meta)

	var b strings.Builder
	b.WriteString(strings.Join(blocks, "\n\n"+blockSeparator+"\n\n"))
	b.WriteString("\n\n")
	b.WriteString(metadataOpen)
	b.WriteString("<!-- " + MetadataTag + " ")
	b.Write(payload)
	b.WriteString(" --></span>\n")
	return b.String()
}

func markdownOrder(doc model.Document) []model.Card {
	byID := cardIndex(doc.Cards)
	out := make(map[string][]string)
	incoming := make(map[string]bool)
	for _, conn := range doc.Connections {
		if _, ok := byID[conn.EndCardID]; !ok {
			continue
		}
		out[conn.StartCardID] = append(out[conn.StartCardID], conn.EndCardID)
		incoming[conn.EndCardID] = true
	}

	order := make([]model.Card, 0, len(doc.Cards))
	seen := make(map[string]bool, len(doc.Cards))
	var visit func(id string)
	visit = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		order = append(order, byID[id])
		for _, next := range out[id] {
			visit(next)
		}
	}
	for _, c := range doc.Cards {
		if !incoming[c.ID] {
			visit(c.ID)
		}
	}
	for _, c := range doc.Cards {
		visit(c.ID)
	}
	return order
}

// A card line that reads as a block separator gets one more leading
// backslash on export, so "---" becomes "\---" and "\---" becomes "\\---".
// Import removes exactly one.
var separatorLine = regexp.MustCompile(`^\\*` + blockSeparator + `$`)

func escapeSeparators(content string) string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if separatorLine.MatchString(strings.TrimSpace(l)) {
			at := len(l) - len(strings.TrimLeft(l, " \t"))
			lines[i] = l[:at] + `\` + l[at:]
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeSeparators(block string) string {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, `\`) && separatorLine.MatchString(trimmed) {
			at := len(l) - len(strings.TrimLeft(l, " \t"))
			lines[i] = l[:at] + l[at+1:]
		}
	}
	return strings.Join(lines, "\n")
}

var (
	metadataComment = regexp.MustCompile(`(?s)<!--\s*` + MetadataTag + `\s*(.*?)\s*-->`)
	metadataStart   = regexp.MustCompile(`<!--\s*` + MetadataTag)
)

// findMetadata locates the last metadata comment. Card text may quote the
// tag itself, but the exported payload never contains "<!--", so the real
// comment is always the last one.
func findMetadata(src string) []int {
	starts := metadataStart.FindAllStringIndex(src, -1)
	if len(starts) == 0 {
		return nil
	}
	off := starts[len(starts)-1][0]
	loc := metadataComment.FindStringSubmatchIndex(src[off:])
	if loc == nil {
		return nil
	}
	for i := range loc {
		loc[i] += off
	}
	return loc
}

// ImportMarkdown reads Markdown. With a metadata comment the cards get
// their exported geometry and connections back; without one every
// horizontal-rule or heading delimited section becomes a card on a grid and
// no connections are created.
func ImportMarkdown(src string) (model.Document, error) {
	loc := findMetadata(src)
	if loc == nil {
		return importMarkdownContent(src), nil
	}
	var meta mdMetadata
	if err := json.Unmarshal([]byte(src[loc[2]:loc[3]]), &meta); err != nil {
		line := strings.Count(src[:loc[0]], "\n") + 1
		return model.Document{}, &ParseError{Format: Markdown, Line: line, Msg: "invalid metadata", Err: err}
	}

	body := src[:loc[0]]
	if i := strings.LastIndex(body, "<span"); i >= 0 && strings.TrimSpace(body[i:]) == metadataOpen {
		body = body[:i]
	}
	blocks := splitBlocks(body)
	if len(meta.Cards) == 0 && len(blocks) == 1 && blocks[0] == "" {
		blocks = nil
	}

	n := min(len(blocks), len(meta.Cards))
	doc := model.Document{Cards: make([]model.Card, 0, len(blocks))}
	for i := 0; i < n; i++ {
		m := meta.Cards[i]
		doc.Cards = append(doc.Cards, model.Card{
			ID: m.ID, Content: blocks[i],
			X: m.X, Y: m.Y, Width: m.Width, Height: m.Height, Color: m.Color,
		}.Normalize())
	}
	if extra := blocks[n:]; len(extra) > 0 {
		origin := geometry.Point{}
		if b, ok := layout.BoundingBox(doc.Cards); ok {
			origin = geometry.Point{X: b.MinX, Y: b.MaxY + importGapY}
		}
		doc.Cards = append(doc.Cards, gridCards(extra, origin)...)
	}
	for _, c := range meta.Connections {
		arrow := c.ArrowType
		if !arrow.Valid() {
			arrow = model.ArrowEnd
		}
		doc.Connections = append(doc.Connections, model.Connection{
			ID: c.ID, StartCardID: c.From, EndCardID: c.To, Label: c.Label, ArrowType: arrow,
		})
	}
	return doc, nil
}

func splitBlocks(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var blocks []string
	var cur []string
	flush := func() {
		blocks = append(blocks, unescapeSeparators(strings.TrimSpace(strings.Join(cur, "\n"))))
		cur = cur[:0]
	}
	for _, l := range strings.Split(strings.TrimSpace(body), "\n") {
		if strings.TrimSpace(l) == blockSeparator {
			flush()
			continue
		}
		cur = append(cur, l)
	}
	flush()
	return blocks
}

func gridCards(contents []string, origin geometry.Point) []model.Card {
	size := geometry.Size{Width: model.DefaultCardWidth, Height: model.DefaultCardHeight}
	pos := layout.GridLayout(len(contents), origin, size, importGapX, 0)
	cards := make([]model.Card, len(contents))
	for i, content := range contents {
		cards[i] = model.NewCard(pos[i].X, pos[i].Y)
		cards[i].Content = content
	}
	return cards
}

func importMarkdownContent(src string) model.Document {
	source := []byte(strings.ReplaceAll(src, "\r\n", "\n"))
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var groups [][]ast.Node
	hasBreak := false
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == ast.KindThematicBreak {
			hasBreak = true
			break
		}
	}
	var cur []ast.Node
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch {
		case n.Kind() == ast.KindThematicBreak:
			groups = append(groups, cur)
			cur = nil
			continue
		case !hasBreak && n.Kind() == ast.KindHeading && len(cur) > 0:
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, n)
	}
	groups = append(groups, cur)

	var contents []string
	for _, g := range groups {
		if s := groupSource(source, g); s != "" {
			contents = append(contents, s)
		}
	}
	return model.Document{Cards: gridCards(contents, geometry.Point{})}
}

// groupSource returns the raw Markdown spanned by a run of top-level
// blocks, whole lines included.
func groupSource(src []byte, nodes []ast.Node) string {
	start, stop := -1, -1
	for _, n := range nodes {
		s, e, ok := blockSpan(src, n)
		if !ok {
			continue
		}
		if start < 0 || s < start {
			start = s
		}
		if e > stop {
			stop = e
		}
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(string(src[lineStart(src, start):lineEnd(src, max(stop-1, start))]))
}

func blockSpan(src []byte, n ast.Node) (int, int, bool) {
	if fc, ok := n.(*ast.FencedCodeBlock); ok {
		return fencedSpan(src, fc)
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
	}
	start, stop, found := 0, 0, false
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		s, e, ok := blockSpan(src, c)
		if !ok {
			continue
		}
		if !found || s < start {
			start = s
		}
		if !found || e > stop {
			stop = e
		}
		found = true
	}
	return start, stop, found
}

// fencedSpan includes both fence lines, which the parser leaves out of the
// block's segments.
func fencedSpan(src []byte, fc *ast.FencedCodeBlock) (int, int, bool) {
	lines := fc.Lines()
	var open int
	switch {
	case fc.Info != nil:
		open = lineStart(src, fc.Info.Segment.Start)
	case lines.Len() > 0:
		open = lineStart(src, max(lines.At(0).Start-1, 0))
	default:
		return 0, 0, false
	}
	next := lineEnd(src, open) + 1
	if lines.Len() > 0 {
		next = lines.At(lines.Len() - 1).Stop
		if next > 0 && next < len(src) && src[next-1] != '\n' {
			next = lineEnd(src, next) + 1
		}
	}
	stop := next
	if next < len(src) {
		fence := strings.TrimSpace(string(src[next:lineEnd(src, next)]))
		if strings.HasPrefix(fence, "```") || strings.HasPrefix(fence, "~~~") {
			stop = lineEnd(src, next)
		}
	}
	return open, min(stop, len(src)), true
}

func lineStart(src []byte, pos int) int {
	pos = min(pos, len(src))
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

func lineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	return pos
}
