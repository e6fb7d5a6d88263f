package locator

import (
	"fmt"
	"image"

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/logging"
)

// ImageSource supplies decoded reference images by path
type ImageSource interface {
	Load(path string) (*image.RGBA, error)
}

// Locator finds reference images on screen. Each Locate is a single attempt;
// waiting is left to the caller.
type Locator struct {
	capturer cv.Capturer
	images   ImageSource
	memory   *PositionMemory
	strategy SearchStrategy
	method   cv.MatchMethod
	logger   *logging.Logger
}

// Option configures a Locator
type Option func(*Locator)

// WithStrategy sets the search strategy
func WithStrategy(s SearchStrategy) Option {
	return func(l *Locator) { l.strategy = s }
}

// WithMemory shares a position memory
func WithMemory(m *PositionMemory) Option {
	return func(l *Locator) { l.memory = m }
}

// WithMatchMethod sets the matching algorithm
func WithMatchMethod(m cv.MatchMethod) Option {
	return func(l *Locator) { l.method = m }
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// New creates a locator over capturer and images
func New(capturer cv.Capturer, images ImageSource, opts ...Option) *Locator {
	l := &Locator{
		capturer: capturer,
		images:   images,
		memory:   NewPositionMemory(),
		strategy: NeighborhoodFirst{Radius: DefaultRadius},
		method:   cv.MatchMethodSSD,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Memory returns the position memory
func (l *Locator) Memory() *PositionMemory {
	return l.memory
}

// Locate searches for the image at path once. It returns nil, nil when no
// location reaches confidence, and an error only for invalid arguments,
// image load failures and capture failures. A hit is remembered for path.
func (l *Locator) Locate(path string, confidence float64, region *cv.Region) (*cv.MatchResult, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %.2f out of range [0,1]", confidence)
	}
	if region != nil {
		if err := region.Validate(); err != nil {
			return nil, err
		}
	}

	needle, err := l.images.Load(path)
	if err != nil {
		return nil, err
	}

	area, err := l.capturer.Bounds()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen bounds: %w", err)
	}
	if region != nil {
		area = region.Rect().Intersect(area)
		if area.Empty() {
			return nil, fmt.Errorf("search region %+v is outside the screen", *region)
		}
	}

	last, remembered := l.memory.Get(path)
	size := needle.Bounds().Size()
	config := &cv.MatchConfig{Method: l.method, Threshold: confidence}

	for i, rect := range l.strategy.Plan(area, last, remembered, size) {
		if rect.Dx() < size.X || rect.Dy() < size.Y {
			continue
		}

		haystack, err := l.capturer.Capture(rect)
		if err != nil {
			return nil, fmt.Errorf("failed to capture screen: %w", err)
		}

		result := cv.FindTemplate(haystack, needle, config)
		if !result.Found {
			continue
		}

		l.memory.Set(path, result.Center)
		l.logger.DebugWithContext("element located", map[string]interface{}{
			"element":    path,
			"x":          result.Center.X,
			"y":          result.Center.Y,
			"confidence": fmt.Sprintf("%.3f", result.Confidence),
			"pass":       i + 1,
		})
		return result, nil
	}

	return nil, nil
}

// Exists reports whether path is currently visible. Load and capture
// failures count as not visible.
func (l *Locator) Exists(path string, confidence float64, region *cv.Region) bool {
	result, err := l.Locate(path, confidence, region)
	if err != nil {
		l.logger.Error("locate failed", err)
		return false
	}
	return result != nil
}
