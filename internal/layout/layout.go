// Package layout contains the pure placement and search functions that work
// on cards: where to put a new card, which card lies in a given direction,
// and the bounding box of a group.
package layout

import (
	"cmp"
	"math"
	"slices"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/model"
)

const (
	DefaultMargin     = 20.0
	DefaultMinSpacing = 150.0
	placementAttempts = 30

	// deviationWeight penalises candidates that sit off the requested axis.
	deviationWeight = 2.0
)

// Rand is the subset of *rand.Rand used for placement.
type Rand interface {
	Float64() float64
}

// PlacementOptions describes a random placement request.
type PlacementOptions struct {
	LastPosition geometry.Point
	MapSize      geometry.Size
	Existing     []model.Card
	// Viewport is the visible world rectangle.
	Viewport   geometry.Rect
	CardSize   geometry.Size
	Margin     float64
	MinSpacing float64
}

// RandomPlacement picks a top-left position for a new card inside the
// current viewport. The whole card stays at least Margin away from the
// viewport edges and its center keeps MinSpacing from every existing card's
// center. After 30 failed attempts it falls back to the viewport's top-left
// safe corner. The second result is false when the fallback was used.
func RandomPlacement(rng Rand, opts PlacementOptions) (geometry.Point, bool) {
	if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	}
	if opts.MinSpacing == 0 {
		opts.MinSpacing = DefaultMinSpacing
	}
	if opts.CardSize.Width <= 0 || opts.CardSize.Height <= 0 {
		opts.CardSize = geometry.Size{Width: model.DefaultCardWidth, Height: model.DefaultCardHeight}
	}

	bounds := opts.Viewport
	if bounds.Empty() {
		bounds = geometry.Rect{Width: opts.MapSize.Width, Height: opts.MapSize.Height}
	}
	if bounds.Empty() {
		return opts.LastPosition, false
	}

	safe := bounds.Inset(opts.Margin)
	minX, minY := safe.X, safe.Y
	maxX := math.Max(minX, safe.Right()-opts.CardSize.Width)
	maxY := math.Max(minY, safe.Bottom()-opts.CardSize.Height)

	for i := 0; i < placementAttempts; i++ {
		p := geometry.Point{
			X: minX + rng.Float64()*(maxX-minX),
			Y: minY + rng.Float64()*(maxY-minY),
		}
		center := geometry.Point{X: p.X + opts.CardSize.Width/2, Y: p.Y + opts.CardSize.Height/2}
		if farFromAll(center, opts.Existing, opts.MinSpacing) {
			return clampPoint(p, minX, minY, maxX, maxY), true
		}
	}
	return clampPoint(geometry.Point{X: minX, Y: minY}, minX, minY, maxX, maxY), false
}

func farFromAll(center geometry.Point, cards []model.Card, spacing float64) bool {
	for _, c := range cards {
		if center.Dist(c.Center()) < spacing {
			return false
		}
	}
	return true
}

func clampPoint(p geometry.Point, minX, minY, maxX, maxY float64) geometry.Point {
	return geometry.Point{
		X: math.Max(minX, math.Min(maxX, p.X)),
		Y: math.Max(minY, math.Min(maxY, p.Y)),
	}
}

// ClampRect moves r so it lies inside bounds. When r is larger than bounds
// the top-left edges win.
func ClampRect(r, bounds geometry.Rect) geometry.Rect {
	if r.Right() > bounds.Right() {
		r.X = bounds.Right() - r.Width
	}
	if r.Bottom() > bounds.Bottom() {
		r.Y = bounds.Bottom() - r.Height
	}
	if r.X < bounds.X {
		r.X = bounds.X
	}
	if r.Y < bounds.Y {
		r.Y = bounds.Y
	}
	return r
}

// CenteredAt returns the top-left corner of a rect of size s centered on p.
func CenteredAt(p geometry.Point, s geometry.Size) geometry.Point {
	return geometry.Point{X: p.X - s.Width/2, Y: p.Y - s.Height/2}
}

// Direction is one of the four arrow-key directions.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// Vector returns the unit step for d in world space (y grows downwards).
func (d Direction) Vector() geometry.Point {
	switch d {
	case Up:
		return geometry.Point{Y: -1}
	case Down:
		return geometry.Point{Y: 1}
	case Left:
		return geometry.Point{X: -1}
	default:
		return geometry.Point{X: 1}
	}
}

// NearestInDirection returns the candidate whose center lies in the
// half-plane of dir and minimises distance*(1+deviation*weight).
// The current card is never returned.
func NearestInDirection(current model.Card, candidates []model.Card, dir Direction) (model.Card, bool) {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b model.Card) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	origin := current.Center()
	var best model.Card
	bestScore := math.Inf(1)
	found := false

	for _, c := range sorted {
		if c.ID == current.ID {
			continue
		}
		d := c.Center().Sub(origin)
		var along, across float64
		switch dir {
		case Up:
			along, across = -d.Y, d.X
		case Down:
			along, across = d.Y, d.X
		case Left:
			along, across = -d.X, d.Y
		case Right:
			along, across = d.X, d.Y
		}
		if along <= 0 {
			continue
		}
		dist := math.Hypot(d.X, d.Y)
		deviation := math.Abs(across) / dist
		score := dist * (1 + deviation*deviationWeight)
		if score < bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, found
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Rect converts b into a geometry.Rect.
func (b Bounds) Rect() geometry.Rect {
	return geometry.Rect{X: b.MinX, Y: b.MinY, Width: b.MaxX - b.MinX, Height: b.MaxY - b.MinY}
}

// Center returns the middle of the box.
func (b Bounds) Center() geometry.Point {
	return geometry.Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// BoundingBox returns the box enclosing every card. It reports false for an
// empty slice.
func BoundingBox(cards []model.Card) (Bounds, bool) {
	if len(cards) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, c := range cards {
		b.MinX = math.Min(b.MinX, c.X)
		b.MinY = math.Min(b.MinY, c.Y)
		b.MaxX = math.Max(b.MaxX, c.X+c.Width)
		b.MaxY = math.Max(b.MaxY, c.Y+c.Height)
	}
	return b, true
}

// GridLayout returns n top-left positions in rows of columns cards starting
// at origin. columns <= 0 picks a roughly square grid.
func GridLayout(n int, origin geometry.Point, size geometry.Size, gap float64, columns int) []geometry.Point {
	if n <= 0 {
		return nil
	}
	if columns <= 0 {
		columns = int(math.Ceil(math.Sqrt(float64(n))))
	}
	out := make([]geometry.Point, n)
	for i := range out {
		col, row := i%columns, i/columns
		out[i] = geometry.Point{
			X: origin.X + float64(col)*(size.Width+gap),
			Y: origin.Y + float64(row)*(size.Height+gap),
		}
	}
	return out
}
