package cv

import (
	"fmt"
	"image"
	"sync"

	"github.com/kbinani/screenshot"
)

// Capturer grabs pixels from the screen. Returned images use screen
// coordinates: the image bounds equal the captured rectangle.
type Capturer interface {
	Capture(rect image.Rectangle) (*image.RGBA, error)
	Bounds() (image.Rectangle, error)
}

// ScreenCapturer captures the virtual screen spanning all active displays
type ScreenCapturer struct {
	mu     sync.Mutex
	bounds image.Rectangle
}

// NewScreenCapturer creates a capturer for the current display layout
func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{}
}

// Bounds returns the union of all active display bounds
func (c *ScreenCapturer) Bounds() (image.Rectangle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bounds.Empty() {
		return c.bounds, nil
	}

	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	c.bounds = union
	return union, nil
}

// Capture grabs rect, clipped to the screen
func (c *ScreenCapturer) Capture(rect image.Rectangle) (*image.RGBA, error) {
	bounds, err := c.Bounds()
	if err != nil {
		return nil, err
	}
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("capture rectangle %v is outside the screen %v", rect, bounds)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	// CaptureRect returns a zero-origin image; shift it back to screen coordinates
	img.Rect = image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+img.Rect.Dx(), rect.Min.Y+img.Rect.Dy())
	return img, nil
}

// CaptureScreen grabs the whole virtual screen
func CaptureScreen(c Capturer) (*image.RGBA, error) {
	bounds, err := c.Bounds()
	if err != nil {
		return nil, err
	}
	return c.Capture(bounds)
}

// StaticCapturer serves captures from a fixed image. Tests and offline runs
// use it to locate elements in saved screenshots.
type StaticCapturer struct {
	mu       sync.Mutex
	frame    *image.RGBA
	captures int
}

// NewStaticCapturer wraps frame
func NewStaticCapturer(frame *image.RGBA) *StaticCapturer {
	return &StaticCapturer{frame: frame}
}

// SetFrame replaces the served frame
func (c *StaticCapturer) SetFrame(frame *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame
}

// Captures returns how many captures were served
func (c *StaticCapturer) Captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures
}

func (c *StaticCapturer) Bounds() (image.Rectangle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return image.Rectangle{}, fmt.Errorf("no frame loaded")
	}
	return c.frame.Bounds(), nil
}

func (c *StaticCapturer) Capture(rect image.Rectangle) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil, fmt.Errorf("no frame loaded")
	}
	rect = rect.Intersect(c.frame.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("capture rectangle outside frame")
	}
	c.captures++
	return c.frame.SubImage(rect).(*image.RGBA), nil
}
