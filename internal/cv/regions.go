package cv

import (
	"fmt"
	"image"
)

// Region is a search rectangle in screen coordinates
type Region struct {
	Left   int `yaml:"left" json:"left"`
	Top    int `yaml:"top" json:"top"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

type Point struct {
	X, Y int
}

// Helper functions

// NewRegion creates a new region
func NewRegion(left, top, width, height int) Region {
	return Region{Left: left, Top: top, Width: width, Height: height}
}

// RegionFromRect converts an image.Rectangle to a Region
func RegionFromRect(r image.Rectangle) Region {
	return Region{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Validate rejects empty or negative-size regions
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid region dimensions: width=%d, height=%d", r.Width, r.Height)
	}
	return nil
}

// Contains checks if a point is within the region
func (r Region) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Left+r.Width && p.Y >= r.Top && p.Y < r.Top+r.Height
}

// Rect converts the region to an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Around returns the square window of the given radius centred on p. It is
// not clipped: on multi-monitor desktops coordinates may be negative.
func Around(p Point, radius int) Region {
	return Region{Left: p.X - radius, Top: p.Y - radius, Width: 2 * radius, Height: 2 * radius}
}

// Add returns p moved by q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// ImagePoint converts to image.Point
func (p Point) ImagePoint() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}
