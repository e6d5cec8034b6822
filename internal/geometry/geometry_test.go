package geometry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenWorldRoundTrip(t *testing.T) {
	pans := []Point{{0, 0}, {120.5, -33}, {-800, 4000}}
	points := []Point{{0, 0}, {10, 20}, {-345.25, 99.75}, {1e4, -1e4}}

	for _, zoom := range []float64{0.1, 1, 5} {
		for _, pan := range pans {
			for _, p := range points {
				t.Run(fmt.Sprintf("zoom=%v/pan=%v/p=%v", zoom, pan, p), func(t *testing.T) {
					got := WorldFromScreen(ScreenFromWorld(p, pan, zoom), pan, zoom)
					assert.InDelta(t, p.X, got.X, 1e-9)
					assert.InDelta(t, p.Y, got.Y, 1e-9)
				})
			}
		}
	}
}

func TestWorldFromScreen(t *testing.T) {
	got := WorldFromScreen(Point{300, 200}, Point{100, 50}, 2)
	assert.Equal(t, Point{100, 75}, got)
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.01, MinZoom},
		{0.5, 0.5},
		{7, MaxZoom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampZoom(tt.in))
	}
}

func TestZoomAtKeepsAnchorFixed(t *testing.T) {
	v := Viewport{Zoom: 1.3, Pan: Point{-40, 75}, Width: 800, Height: 600}
	anchor := Point{512, 233}
	before := v.ToWorld(anchor)

	for _, z := range []float64{0.1, 0.7, 2.5, 5, 9} {
		nv := ZoomAt(v, anchor, z)
		after := nv.ToWorld(anchor)
		assert.InDelta(t, before.X, after.X, 1e-9, "zoom %v", z)
		assert.InDelta(t, before.Y, after.Y, 1e-9, "zoom %v", z)
		assert.LessOrEqual(t, nv.Zoom, MaxZoom)
	}
}

func TestViewportWorldRect(t *testing.T) {
	v := Viewport{Zoom: 2, Pan: Point{100, 100}, Width: 400, Height: 300}
	assert.Equal(t, Rect{X: -50, Y: -50, Width: 200, Height: 150}, v.WorldRect())
}

func TestRectContainment(t *testing.T) {
	outer := Rect{0, 0, 100, 100}
	assert.True(t, outer.ContainsRect(Rect{10, 10, 50, 50}))
	assert.True(t, outer.ContainsRect(outer))
	assert.False(t, outer.ContainsRect(Rect{60, 60, 50, 50}))
	assert.True(t, outer.Intersects(Rect{60, 60, 50, 50}))
	assert.False(t, outer.Intersects(Rect{100, 0, 10, 10}))
}

func TestDistanceToSegment(t *testing.T) {
	a, b := Point{0, 0}, Point{10, 0}
	assert.InDelta(t, 5.0, DistanceToSegment(Point{5, 5}, a, b), 1e-9)
	assert.InDelta(t, 5.0, DistanceToSegment(Point{15, 0}, a, b), 1e-9)
	assert.InDelta(t, 0.0, DistanceToSegment(Point{3, 0}, a, a.Add(Point{3, 0})), 1e-9)
}

func TestEdgePoint(t *testing.T) {
	r := Rect{0, 0, 100, 50}
	assert.Equal(t, Point{100, 25}, EdgePoint(r, Point{500, 25}))
	assert.Equal(t, Point{50, 0}, EdgePoint(r, Point{50, -300}))
	assert.Equal(t, r.Center(), EdgePoint(r, r.Center()))
}
