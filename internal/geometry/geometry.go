// Package geometry holds the coordinate types shared by the canvas core and
// the single implementation of the screen/world transform.
//
// Screen coordinates are client pixels measured from the top-left corner of
// the canvas element. World coordinates are the canvas's own unscaled space.
// Every conversion in the repository goes through WorldFromScreen and
// ScreenFromWorld so pan and zoom can never drift apart between callers.
package geometry

import "math"

const (
	// MinZoom and MaxZoom bound Viewport.Zoom.
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Point is a position in either screen or world space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale multiplies both components by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y, Width, Height float64
}

// RectFromPoints builds the normalised rectangle spanned by two corners.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point {
	return Point{r.X + r.Width/2, r.Y + r.Height/2}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// ContainsRect reports whether o lies fully inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Right() <= r.Right() && o.Y >= r.Y && o.Bottom() <= r.Bottom()
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Inset shrinks r by m on every side. The result may be empty.
func (r Rect) Inset(m float64) Rect {
	return Rect{X: r.X + m, Y: r.Y + m, Width: r.Width - 2*m, Height: r.Height - 2*m}
}

// WorldFromScreen converts a client position into world space.
func WorldFromScreen(client, pan Point, zoom float64) Point {
	return Point{
		X: (client.X - pan.X) / zoom,
		Y: (client.Y - pan.Y) / zoom,
	}
}

// ScreenFromWorld is the inverse of WorldFromScreen.
func ScreenFromWorld(world, pan Point, zoom float64) Point {
	return Point{
		X: world.X*zoom + pan.X,
		Y: world.Y*zoom + pan.Y,
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Viewport is the visible window onto the canvas. Width and Height are the
// canvas element's size in screen pixels.
type Viewport struct {
	Zoom   float64
	Pan    Point
	Width  float64
	Height float64
}

// NewViewport returns an unzoomed, unpanned viewport of the given size.
func NewViewport(width, height float64) Viewport {
	return Viewport{Zoom: 1, Width: width, Height: height}
}

// ToWorld converts a screen point using this viewport's pan and zoom.
func (v Viewport) ToWorld(p Point) Point { return WorldFromScreen(p, v.Pan, v.Zoom) }

// ToScreen converts a world point using this viewport's pan and zoom.
func (v Viewport) ToScreen(p Point) Point { return ScreenFromWorld(p, v.Pan, v.Zoom) }

// WorldRect is the part of the world currently visible.
func (v Viewport) WorldRect() Rect {
	tl := v.ToWorld(Point{})
	br := v.ToWorld(Point{v.Width, v.Height})
	return RectFromPoints(tl, br)
}

// WorldCenter is the world point at the middle of the screen.
func (v Viewport) WorldCenter() Point {
	return v.ToWorld(Point{v.Width / 2, v.Height / 2})
}

// ZoomAt changes the zoom level keeping the world point under anchor (a
// screen position) fixed on screen.
func ZoomAt(v Viewport, anchor Point, zoom float64) Viewport {
	zoom = ClampZoom(zoom)
	world := v.ToWorld(anchor)
	v.Zoom = zoom
	// anchor = world*zoom + pan  =>  pan = anchor - world*zoom
	v.Pan = Point{anchor.X - world.X*zoom, anchor.Y - world.Y*zoom}
	return v
}

// CenterOn pans so that the world point w sits in the middle of the screen.
func (v Viewport) CenterOn(w Point) Viewport {
	v.Pan = Point{v.Width/2 - w.X*v.Zoom, v.Height/2 - w.Y*v.Zoom}
	return v
}

// DistanceToSegment returns the distance from p to the segment ab.
func DistanceToSegment(p, a, b Point) float64 {
	d := b.Sub(a)
	l2 := d.X*d.X + d.Y*d.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*d.X + (p.Y-a.Y)*d.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{a.X + t*d.X, a.Y + t*d.Y})
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// EdgePoint returns where the ray from r's center towards target leaves r.
// Connections are drawn between edge points rather than centers.
func EdgePoint(r Rect, target Point) Point {
	c := r.Center()
	dx, dy := target.X-c.X, target.Y-c.Y
	if dx == 0 && dy == 0 {
		return c
	}
	hw, hh := r.Width/2, r.Height/2
	sx, sy := math.Inf(1), math.Inf(1)
	if dx != 0 {
		sx = hw / math.Abs(dx)
	}
	if dy != 0 {
		sy = hh / math.Abs(dy)
	}
	s := math.Min(sx, sy)
	return Point{c.X + dx*s, c.Y + dy*s}
}
