// Package exchange converts documents to and from the external formats:
// Mermaid and Markdown (both directions), JSON, and the one-way PNG and SVG
// renderings.
//
// Importers return documents that still carry the ids found in the input.
// Callers merge them with store.AppState.Import, which assigns fresh ids.
package exchange

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/model"
)

// Format names an exchange format.
type Format string

const (
	Markdown Format = "markdown"
	Mermaid  Format = "mermaid"
	JSON     Format = "json"
	PNG      Format = "png"
	SVG      Format = "svg"
)

var (
	ErrUnknownFormat = errors.New("unknown format")
	ErrExportOnly    = errors.New("format cannot be imported")
	ErrEmpty         = errors.New("nothing to export")
)

// Formats lists every format in a stable order.
func Formats() []Format { return []Format{Markdown, Mermaid, JSON, PNG, SVG} }

// ParseFormat resolves a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return Markdown, nil
	case "mermaid", "mmd":
		return Mermaid, nil
	case "json":
		return JSON, nil
	case "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return Markdown, true
	case ".mmd", ".mermaid":
		return Mermaid, true
	case ".json":
		return JSON, true
	case ".png":
		return PNG, true
	case ".svg":
		return SVG, true
	}
	return "", false
}

// Extension returns the file extension written for f.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case Mermaid:
		return ".mmd"
	}
	return "." + string(f)
}

// Importable reports whether f can be read back.
func (f Format) Importable() bool { return f == Markdown || f == Mermaid || f == JSON }

// Export writes doc to w in format f.
func Export(w io.Writer, f Format, doc model.Document) error {
	switch f {
	case Markdown:
		_, err := io.WriteString(w, ExportMarkdown(doc))
		return err
	case Mermaid:
		_, err := io.WriteString(w, ExportMermaid(doc))
		return err
	case JSON:
		return ExportJSON(w, doc)
	case PNG:
		return ExportPNG(w, doc, DefaultPNGScale)
	case SVG:
		return ExportSVG(w, doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Import reads a document in format f. A parse failure returns the error
// together with ErrorDocument, so the caller always has something to show.
func Import(r io.Reader, f Format) (model.Document, error) {
	if !f.Importable() {
		return model.Document{}, fmt.Errorf("%w: %s", ErrExportOnly, f)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", f, err)
	}
	var doc model.Document
	switch f {
	case Markdown:
		doc, err = ImportMarkdown(string(b))
	case Mermaid:
		doc, err = ImportMermaid(string(b))
	case JSON:
		doc, err = ImportJSON(b)
	}
	if err != nil {
		return ErrorDocument(err), err
	}
	return doc, nil
}

// ParseError reports malformed input. Line is 1-based, or 0 when the error
// is not tied to a line.
type ParseError struct {
	Format Format
	Line   int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse %s", e.Format)
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorColor is the fill of the card produced by ErrorDocument.
const ErrorColor = "#ffe3e3"

// ErrorDocument returns a document with a single card describing err.
func ErrorDocument(err error) model.Document {
	c := model.NewCard(0, 0)
	c.Content = "Import failed\n\n" + err.Error()
	c.Color = ErrorColor
	c.Width, c.Height = 320, 160
	return model.Document{Cards: []model.Card{c}}
}

// segment returns the edge-to-edge segment of conn, or false when an
// endpoint is missing.
func segment(cards map[string]model.Card, conn model.Connection) (geometry.Point, geometry.Point, bool) {
	a, ok1 := cards[conn.StartCardID]
	b, ok2 := cards[conn.EndCardID]
	if !ok1 || !ok2 {
		return geometry.Point{}, geometry.Point{}, false
	}
	return geometry.EdgePoint(a.Rect(), b.Center()), geometry.EdgePoint(b.Rect(), a.Center()), true
}

func cardIndex(cards []model.Card) map[string]model.Card {
	m := make(map[string]model.Card, len(cards))
	for _, c := range cards {
		m[c.ID] = c
	}
	return m
}
