package exchange

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/model"
)

// MermaidLabelLimit is the number of runes of card content kept in a node.
const MermaidLabelLimit = 30

// ExportMermaid renders doc as a left-to-right Mermaid flowchart. Every
// connection becomes one line; cards without connections are listed on
// their own. Start-only arrows are written with their endpoints swapped,
// since Mermaid has no left-pointing link.
func ExportMermaid(doc model.Document) string {
	ids := make(map[string]string, len(doc.Cards))
	nodes := make(map[string]string, len(doc.Cards))
	for i, c := range doc.Cards {
		ids[c.ID] = fmt.Sprintf("node%d", i+1)
		nodes[c.ID] = fmt.Sprintf("%s[%s]", ids[c.ID], sanitizeMermaid(c.Content))
	}

	var b strings.Builder
	b.WriteString("graph LR\n")
	linked := make(map[string]bool)
	for _, conn := range doc.Connections {
		from, ok1 := nodes[conn.StartCardID]
		to, ok2 := nodes[conn.EndCardID]
		if !ok1 || !ok2 {
			continue
		}
		linked[conn.StartCardID], linked[conn.EndCardID] = true, true
		arrow := "-->"
		switch conn.ArrowType {
		case model.ArrowNone:
			arrow = "---"
		case model.ArrowBoth:
			arrow = "<-->"
		case model.ArrowStart:
			from, to = to, from
		}
		if label := sanitizeMermaid(conn.Label); conn.Label != "" {
			arrow += " |" + strings.ReplaceAll(label, "|", "/") + "|"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", from, arrow, to)
	}
	for _, c := range doc.Cards {
		if !linked[c.ID] {
			fmt.Fprintf(&b, "    %s\n", nodes[c.ID])
		}
	}
	return b.String()
}

var mermaidBrackets = strings.NewReplacer(
	"[", "(", "]", ")", "{", "(", "}", ")",
	"\"", "", "'", "", "`", "",
	"\r\n", " ", "\n", " ", "\r", " ", "\t", " ",
)

func sanitizeMermaid(s string) string {
	s = strings.Join(strings.Fields(mermaidBrackets.Replace(s)), " ")
	if r := []rune(s); len(r) > MermaidLabelLimit {
		s = string(r[:MermaidLabelLimit]) + "..."
	}
	if s == "" {
		return " "
	}
	return s
}

var (
	mermaidHeader = regexp.MustCompile(`^(?:graph|flowchart)(?:\s+(TB|TD|BT|LR|RL))?\s*;?$`)
	// A link with inline text: "-- text -->" or "-- text ---".
	mermaidTextLink = regexp.MustCompile(`^(<?)--\s+([^|>]+?)\s+(-{2,}>|-{3,})`)
	mermaidLink     = regexp.MustCompile(`^(<?)(-{2,}|={2,}|-\.+-)(>?)`)
	mermaidPipe     = regexp.MustCompile(`^\|([^|]*)\|`)
)

var mermaidIgnored = []string{
	"classDef", "class ", "style ", "linkStyle", "click ", "subgraph", "end", "direction",
}

var mermaidClosers = []struct{ open, close string }{
	{"((", "))"}, {"([", "])"}, {"[[", "]]"}, {"[(", ")]"}, {"{{", "}}"},
	{"[", "]"}, {"(", ")"}, {"{", "}"}, {">", "]"},
}

type mermaidGraph struct {
	order    []string
	text     map[string]string
	edges    []model.Connection
	vertical bool
}

func (g *mermaidGraph) node(id, text string) {
	if _, ok := g.text[id]; !ok {
		g.order = append(g.order, id)
		g.text[id] = ""
	}
	if text != "" && g.text[id] == "" {
		g.text[id] = text
	}
}

// ImportMermaid parses a flowchart. Nodes are laid out in layers following
// the links; labels become connection labels. Styling statements are
// ignored.
func ImportMermaid(src string) (model.Document, error) {
	g := &mermaidGraph{text: make(map[string]string)}
	sc := bufio.NewScanner(strings.NewReader(src))
	header := false
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "%%") {
			continue
		}
		if !header {
			m := mermaidHeader.FindStringSubmatch(s)
			if m == nil {
				return model.Document{}, &ParseError{Format: Mermaid, Line: line, Msg: "expected graph or flowchart header"}
			}
			g.vertical = m[1] == "TB" || m[1] == "TD" || m[1] == "BT"
			header = true
			continue
		}
		if ignoredMermaid(s) {
			continue
		}
		for _, stmt := range strings.Split(s, ";") {
			if stmt = strings.TrimSpace(stmt); stmt == "" {
				continue
			}
			if err := g.statement(stmt); err != nil {
				return model.Document{}, &ParseError{Format: Mermaid, Line: line, Msg: err.Error()}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return model.Document{}, &ParseError{Format: Mermaid, Msg: "read", Err: err}
	}
	if !header {
		return model.Document{}, &ParseError{Format: Mermaid, Msg: "empty diagram"}
	}
	return g.document(), nil
}

func ignoredMermaid(s string) bool {
	for _, kw := range mermaidIgnored {
		if s == strings.TrimSpace(kw) || strings.HasPrefix(s, kw) {
			return true
		}
	}
	return false
}

// statement parses "a[x] --> |l| b[y] --- c" style chains.
func (g *mermaidGraph) statement(s string) error {
	id, text, rest, err := parseMermaidNode(s)
	if err != nil {
		return err
	}
	g.node(id, text)
	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		var arrow model.ArrowType
		var label string
		arrow, label, rest, err = parseMermaidLink(rest)
		if err != nil {
			return err
		}
		next, text, tail, err := parseMermaidNode(strings.TrimSpace(rest))
		if err != nil {
			return err
		}
		g.node(next, text)
		g.edges = append(g.edges, model.Connection{
			ID:          fmt.Sprintf("e%d", len(g.edges)+1),
			StartCardID: id,
			EndCardID:   next,
			Label:       label,
			ArrowType:   arrow,
		})
		id, rest = next, tail
	}
	return nil
}

func parseMermaidNode(s string) (id, text, rest string, err error) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	if i < 0 {
		i = len(s)
	}
	if i == 0 {
		return "", "", "", fmt.Errorf("expected node id at %q", s)
	}
	id, rest = s[:i], s[i:]
	for _, p := range mermaidClosers {
		if !strings.HasPrefix(rest, p.open) {
			continue
		}
		end := strings.Index(rest[len(p.open):], p.close)
		if end < 0 {
			return "", "", "", fmt.Errorf("unclosed %q in node %s", p.open, id)
		}
		text = rest[len(p.open) : len(p.open)+end]
		text = strings.Trim(strings.TrimSpace(text), `"`)
		rest = rest[len(p.open)+end+len(p.close):]
		break
	}
	return id, text, rest, nil
}

func parseMermaidLink(s string) (model.ArrowType, string, string, error) {
	var back, head bool
	var label string
	if m := mermaidTextLink.FindStringSubmatch(s); m != nil {
		back, head = m[1] == "<", strings.HasSuffix(m[3], ">")
		label = strings.TrimSpace(m[2])
		s = s[len(m[0]):]
	} else if m := mermaidLink.FindStringSubmatch(s); m != nil {
		back, head = m[1] == "<", m[3] == ">"
		s = s[len(m[0]):]
	} else {
		return "", "", "", fmt.Errorf("expected link at %q", s)
	}
	if m := mermaidPipe.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		label = strings.TrimSpace(m[1])
		s = strings.TrimSpace(s)[len(m[0]):]
	}
	arrow := model.ArrowNone
	switch {
	case back && head:
		arrow = model.ArrowBoth
	case back:
		arrow = model.ArrowStart
	case head:
		arrow = model.ArrowEnd
	}
	return arrow, label, s, nil
}

// Spacing between imported cards.
const (
	importGapX = 80.0
	importGapY = 60.0
)

func (g *mermaidGraph) document() model.Document {
	depth := layers(g.order, g.edges)
	rows := make(map[int]int)
	doc := model.Document{Cards: make([]model.Card, 0, len(g.order))}
	for _, id := range g.order {
		d := depth[id]
		r := rows[d]
		rows[d]++
		across := geometry.Point{
			X: float64(d) * (model.DefaultCardWidth + importGapX),
			Y: float64(r) * (model.DefaultCardHeight + importGapY),
		}
		if g.vertical {
			across = geometry.Point{
				X: float64(r) * (model.DefaultCardWidth + importGapX),
				Y: float64(d) * (model.DefaultCardHeight + importGapY),
			}
		}
		c := model.NewCard(across.X, across.Y)
		c.ID = id
		c.Content = g.text[id]
		if c.Content == "" {
			c.Content = id
		}
		doc.Cards = append(doc.Cards, c)
	}
	doc.Connections = g.edges
	return doc
}

// layers assigns each node the length of the longest link path reaching
// it from a root. Nodes on cycles keep the depth at which they were first
// reached.
func layers(order []string, edges []model.Connection) map[string]int {
	out := make(map[string][]string)
	indeg := make(map[string]int)
	for _, e := range edges {
		if e.StartCardID == e.EndCardID {
			continue
		}
		out[e.StartCardID] = append(out[e.StartCardID], e.EndCardID)
		indeg[e.EndCardID]++
	}
	depth := make(map[string]int, len(order))
	var queue []string
	for _, id := range order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		seen[id] = true
		for _, next := range out[id] {
			if depth[id]+1 > depth[next] && !seen[next] {
				depth[next] = depth[id] + 1
			}
			if indeg[next]--; indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return depth
}
