package locator

import (
	"image"

	"jordanella.com/desktop-uitest/internal/cv"
)

// DefaultRadius is the half-size of the window searched around a remembered position
const DefaultRadius = 50

// SearchStrategy decides which rectangles a locate scans, in order. The last
// rectangle returned must be the full search area so a miss in the fast path
// always falls back to a complete search. needle is the size of the image
// being searched for.
type SearchStrategy interface {
	Plan(area image.Rectangle, last cv.Point, remembered bool, needle image.Point) []image.Rectangle
	Name() string
}

// NeighborhoodFirst scans a window around the last hit before the full area.
// The window reaches Radius pixels past a needle centred on the last hit in
// every direction, so large images get a neighbourhood pass too.
type NeighborhoodFirst struct {
	Radius int
}

func (s NeighborhoodFirst) Name() string { return "neighborhood_first" }

func (s NeighborhoodFirst) Plan(area image.Rectangle, last cv.Point, remembered bool, needle image.Point) []image.Rectangle {
	if !remembered {
		return []image.Rectangle{area}
	}
	radius := s.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	reach := radius + (max(needle.X, needle.Y)+1)/2
	window := cv.Around(last, reach).Rect().Intersect(area)
	if window.Empty() || window == area {
		return []image.Rectangle{area}
	}
	return []image.Rectangle{window, area}
}

// FullScreenOnly always scans the whole area
type FullScreenOnly struct{}

func (FullScreenOnly) Name() string { return "full_screen" }

func (FullScreenOnly) Plan(area image.Rectangle, _ cv.Point, _ bool, _ image.Point) []image.Rectangle {
	return []image.Rectangle{area}
}

// ParseStrategy maps a config string to a strategy
func ParseStrategy(name string, radius int) SearchStrategy {
	if name == "full_screen" {
		return FullScreenOnly{}
	}
	return NeighborhoodFirst{Radius: radius}
}
