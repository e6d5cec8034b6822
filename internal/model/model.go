// Package model defines the canonical mind-map entities: cards, the
// connections between them and the Document that bundles both.
//
// Connections reference cards by id only. Nothing here holds pointers into
// another entity, so every value can be copied freely and validated again
// after a bulk load.
package model

import (
	"strings"

	"github.com/google/uuid"

	"mindcanvas/internal/geometry"
)

const (
	MinCardWidth  = 160.0
	MinCardHeight = 80.0

	DefaultCardWidth  = 200.0
	DefaultCardHeight = 100.0
	DefaultContent    = "New card"
	DefaultColor      = "#ffffff"
)

// Palette is the set of card colors cycled by the color shortcut.
var Palette = []string{
	"#ffffff", "#fff3bf", "#d3f9d8", "#d0ebff",
	"#ffe3e3", "#e5dbff", "#ffe8cc", "#f1f3f5",
}

// NewID returns a fresh globally unique id.
func NewID() string { return uuid.NewString() }

// Card is a rectangular content node on the canvas.
type Card struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Color   string  `json:"color"`
}

// NewCard returns a default-sized card at (x, y) with a fresh id.
func NewCard(x, y float64) Card {
	return Card{
		ID:      NewID(),
		Content: DefaultContent,
		X:       x,
		Y:       y,
		Width:   DefaultCardWidth,
		Height:  DefaultCardHeight,
		Color:   DefaultColor,
	}
}

// Rect returns the card's world rectangle.
func (c Card) Rect() geometry.Rect {
	return geometry.Rect{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

// Center returns the card's world center.
func (c Card) Center() geometry.Point { return c.Rect().Center() }

// Normalize enforces the minimum size and a non-empty color.
func (c Card) Normalize() Card {
	c.Width, c.Height = ClampSize(c.Width, c.Height)
	if c.Color == "" {
		c.Color = DefaultColor
	}
	return c
}

// ClampSize raises w and h to the minimum card size.
func ClampSize(w, h float64) (float64, float64) {
	if w < MinCardWidth {
		w = MinCardWidth
	}
	if h < MinCardHeight {
		h = MinCardHeight
	}
	return w, h
}

// NextColor returns the palette color following c, wrapping around. Colors
// outside the palette restart at its first entry.
func NextColor(c string) string {
	for i, p := range Palette {
		if strings.EqualFold(p, c) {
			return Palette[(i+1)%len(Palette)]
		}
	}
	return Palette[0]
}

// ArrowType says which ends of a connection carry an arrow head.
type ArrowType string

const (
	ArrowNone  ArrowType = "none"
	ArrowStart ArrowType = "start"
	ArrowEnd   ArrowType = "end"
	ArrowBoth  ArrowType = "both"
)

// Next advances through none -> end -> start -> both -> none.
func (a ArrowType) Next() ArrowType {
	switch a {
	case ArrowNone:
		return ArrowEnd
	case ArrowEnd:
		return ArrowStart
	case ArrowStart:
		return ArrowBoth
	default:
		return ArrowNone
	}
}

// Valid reports whether a is one of the four known arrow types.
func (a ArrowType) Valid() bool {
	switch a {
	case ArrowNone, ArrowStart, ArrowEnd, ArrowBoth:
		return true
	}
	return false
}

// HasStart reports whether an arrow head is drawn at the start card.
func (a ArrowType) HasStart() bool { return a == ArrowStart || a == ArrowBoth }

// HasEnd reports whether an arrow head is drawn at the end card.
func (a ArrowType) HasEnd() bool { return a == ArrowEnd || a == ArrowBoth }

// Connection is an edge between two cards.
type Connection struct {
	ID          string    `json:"id"`
	StartCardID string    `json:"startCardId"`
	EndCardID   string    `json:"endCardId"`
	Label       string    `json:"label,omitempty"`
	ArrowType   ArrowType `json:"arrowType"`
}

// Touches reports whether the connection has cardID as either endpoint.
func (c Connection) Touches(cardID string) bool {
	return c.StartCardID == cardID || c.EndCardID == cardID
}

// Links reports whether the connection joins a and b in either direction.
func (c Connection) Links(a, b string) bool {
	return (c.StartCardID == a && c.EndCardID == b) || (c.StartCardID == b && c.EndCardID == a)
}

// Document is the persisted shape of a mind map.
type Document struct {
	Cards       []Card       `json:"cards"`
	Connections []Connection `json:"connections"`
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	return Document{Cards: CloneCards(d.Cards), Connections: CloneConnections(d.Connections)}
}

// Empty reports whether the document holds nothing.
func (d Document) Empty() bool { return len(d.Cards) == 0 && len(d.Connections) == 0 }

// CardByID returns the card with the given id.
func (d Document) CardByID(id string) (Card, bool) {
	for _, c := range d.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// CloneCards copies a card slice. Cards contain no reference fields so a
// slice copy is a deep copy. The result is never nil.
func CloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// CloneConnections copies a connection slice. The result is never nil.
func CloneConnections(conns []Connection) []Connection {
	out := make([]Connection, len(conns))
	copy(out, conns)
	return out
}
