package main

import (
	"math"

	"mindcanvas/internal/geometry"
)

// screenPoint is the center of a terminal cell in screen pixels.
func screenPoint(x, y int) geometry.Point {
	return geometry.Point{
		X: float64(x)*cellWidth + cellWidth/2,
		Y: float64(y)*cellHeight + cellHeight/2,
	}
}

func toCell(vp geometry.Viewport, w geometry.Point) (int, int) {
	return screenCell(vp.ToScreen(w))
}

func screenCell(s geometry.Point) (int, int) {
	return int(math.Floor(s.X / cellWidth)), int(math.Floor(s.Y / cellHeight))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
