package cv

import (
	"image"
	"image/color"
	"math"
)

// MatchResult contains template matching results
type MatchResult struct {
	Found      bool
	Location   image.Point     // Top-left corner of the best match
	Center     Point           // Centre of the matched area, used as the click target
	Region     image.Rectangle // Matched area
	Confidence float64
}

// MatchMethod defines template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

func (m MatchMethod) String() string {
	switch m {
	case MatchMethodSAD:
		return "sad"
	case MatchMethodNCC:
		return "ncc"
	default:
		return "ssd"
	}
}

// ParseMatchMethod maps a config string to a MatchMethod, defaulting to SSD
func ParseMatchMethod(s string) MatchMethod {
	switch s {
	case "sad", "SAD":
		return MatchMethodSAD
	case "ncc", "NCC":
		return MatchMethodNCC
	default:
		return MatchMethodSSD
	}
}

// MatchConfig configures template matching
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	SearchRegion *image.Rectangle // Optional: limit search area
}

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodSSD,
		Threshold: 0.8,
	}
}

// FindTemplate finds the best match of needle inside haystack.
// Coordinates are those of the haystack, so a haystack captured from a screen
// sub-rectangle yields screen coordinates. Found is set only when the best
// score reaches the threshold.
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	haystackBounds := haystack.Bounds()
	needleBounds := needle.Bounds()

	needleWidth := needleBounds.Dx()
	needleHeight := needleBounds.Dy()

	if needleWidth == 0 || needleHeight == 0 {
		return &MatchResult{}
	}
	if needleWidth > haystackBounds.Dx() || needleHeight > haystackBounds.Dy() {
		return &MatchResult{}
	}

	searchBounds := haystackBounds
	if config.SearchRegion != nil {
		searchBounds = config.SearchRegion.Intersect(haystackBounds)
		if searchBounds.Empty() {
			return &MatchResult{}
		}
	}

	maxY := searchBounds.Max.Y - needleHeight
	maxX := searchBounds.Max.X - needleWidth
	if maxY < searchBounds.Min.Y || maxX < searchBounds.Min.X {
		// Template doesn't fit in search region
		return &MatchResult{}
	}

	m := newMatcher(haystack, needle, config)

	bestScore := -1.0
	bestLocation := image.Point{}

	for y := searchBounds.Min.Y; y <= maxY; y++ {
		for x := searchBounds.Min.X; x <= maxX; x++ {
			score, ok := m.score(x, y)
			if !ok {
				continue
			}
			if score > bestScore {
				bestScore = score
				bestLocation = image.Point{X: x, Y: y}
				m.tighten(score)
				if score >= 1.0 {
					return m.result(bestLocation, bestScore)
				}
			}
		}
	}

	if bestScore < 0 {
		return &MatchResult{}
	}
	return m.result(bestLocation, bestScore)
}

// matcher holds per-search state. For SAD and SSD it keeps an error budget so
// candidates that cannot beat both the threshold and the best score so far are
// abandoned early.
type matcher struct {
	haystack, needle *image.RGBA
	method           MatchMethod
	threshold        float64
	width, height    int
	maxError         float64
	budget           float64
}

func newMatcher(haystack, needle *image.RGBA, config *MatchConfig) *matcher {
	b := needle.Bounds()
	m := &matcher{
		haystack:  haystack,
		needle:    needle,
		method:    config.Method,
		threshold: config.Threshold,
		width:     b.Dx(),
		height:    b.Dy(),
	}
	switch m.method {
	case MatchMethodSAD:
		m.maxError = float64(m.width * m.height * 3 * 255)
	default:
		m.maxError = float64(m.width * m.height * 3 * 255 * 255)
	}
	// Candidates scoring below the threshold are still scored exactly until a
	// better one is seen, so the reported best confidence stays meaningful.
	m.budget = math.Inf(1)
	return m
}

// tighten lowers the error budget once a score at or above the threshold is known
func (m *matcher) tighten(score float64) {
	if score < m.threshold {
		return
	}
	m.budget = (1.0 - score) * m.maxError
}

func (m *matcher) result(loc image.Point, score float64) *MatchResult {
	region := image.Rect(loc.X, loc.Y, loc.X+m.width, loc.Y+m.height)
	return &MatchResult{
		Found:      score >= m.threshold,
		Location:   loc,
		Center:     Point{X: loc.X + m.width/2, Y: loc.Y + m.height/2},
		Region:     region,
		Confidence: score,
	}
}

func (m *matcher) score(x, y int) (float64, bool) {
	switch m.method {
	case MatchMethodSAD:
		return m.matchSAD(x, y)
	case MatchMethodNCC:
		return m.matchNCC(x, y), true
	default:
		return m.matchSSD(x, y)
	}
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func (m *matcher) matchSAD(x, y int) (float64, bool) {
	var sad uint64
	nb := m.needle.Bounds()

	for ny := 0; ny < m.height; ny++ {
		hIdx := m.haystack.PixOffset(x, y+ny)
		nIdx := m.needle.PixOffset(nb.Min.X, nb.Min.Y+ny)
		for nx := 0; nx < m.width; nx++ {
			sad += uint64(abs(int(m.haystack.Pix[hIdx]) - int(m.needle.Pix[nIdx])))
			sad += uint64(abs(int(m.haystack.Pix[hIdx+1]) - int(m.needle.Pix[nIdx+1])))
			sad += uint64(abs(int(m.haystack.Pix[hIdx+2]) - int(m.needle.Pix[nIdx+2])))
			hIdx += 4
			nIdx += 4
		}
		if float64(sad) > m.budget {
			return 0, false
		}
	}

	return 1.0 - (float64(sad) / m.maxError), true
}

// matchSSD - Sum of Squared Differences (balanced)
func (m *matcher) matchSSD(x, y int) (float64, bool) {
	var ssd uint64
	nb := m.needle.Bounds()

	for ny := 0; ny < m.height; ny++ {
		hIdx := m.haystack.PixOffset(x, y+ny)
		nIdx := m.needle.PixOffset(nb.Min.X, nb.Min.Y+ny)
		for nx := 0; nx < m.width; nx++ {
			dr := int(m.haystack.Pix[hIdx]) - int(m.needle.Pix[nIdx])
			dg := int(m.haystack.Pix[hIdx+1]) - int(m.needle.Pix[nIdx+1])
			db := int(m.haystack.Pix[hIdx+2]) - int(m.needle.Pix[nIdx+2])
			ssd += uint64(dr*dr + dg*dg + db*db)
			hIdx += 4
			nIdx += 4
		}
		if float64(ssd) > m.budget {
			return 0, false
		}
	}

	return 1.0 - (float64(ssd) / m.maxError), true
}

// matchNCC - Normalized Cross-Correlation (slowest, most accurate)
func (m *matcher) matchNCC(x, y int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	pixelCount := float64(m.width * m.height * 3)
	nb := m.needle.Bounds()

	for ny := 0; ny < m.height; ny++ {
		hIdx := m.haystack.PixOffset(x, y+ny)
		nIdx := m.needle.PixOffset(nb.Min.X, nb.Min.Y+ny)
		for nx := 0; nx < m.width; nx++ {
			for c := 0; c < 3; c++ {
				h := float64(m.haystack.Pix[hIdx+c])
				n := float64(m.needle.Pix[nIdx+c])

				sumH += h
				sumN += n
				sumHN += h * n
				sumHH += h * h
				sumNN += n * n
			}
			hIdx += 4
			nIdx += 4
		}
	}

	numerator := sumHN - (sumH * sumN / pixelCount)
	denomH := math.Sqrt(sumHH - (sumH * sumH / pixelCount))
	denomN := math.Sqrt(sumNN - (sumN * sumN / pixelCount))

	if denomH == 0 || denomN == 0 {
		// Flat patches: identical flat colours are a perfect match
		if denomH == denomN && sumH == sumN {
			return 1.0
		}
		return 0
	}

	// Correlation coefficient (-1 to 1, normalize to 0-1)
	correlation := numerator / (denomH * denomN)
	return (correlation + 1.0) / 2.0
}

// Helper functions

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToRGBA converts any decoded image to *image.RGBA, returning the input when
// it already is one
func ToRGBA(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok {
		return r
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}

// CropRegion extracts a rectangular region from an image into a new
// zero-origin image
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cropped.SetRGBA(x-rect.Min.X, y-rect.Min.Y, img.RGBAAt(x, y))
		}
	}

	return cropped
}

// DrawRect outlines rect on img, used to mark a match on failure screenshots
func DrawRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.SetRGBA(x, rect.Min.Y, col)
		img.SetRGBA(x, rect.Max.Y-1, col)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.SetRGBA(rect.Min.X, y, col)
		img.SetRGBA(rect.Max.X-1, y, col)
	}
}
