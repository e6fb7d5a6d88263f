package cv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	gray  = color.RGBA{128, 128, 128, 255}
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{220, 20, 20, 255}
)

func fill(rect image.Rectangle, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(rect)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// checker builds a 2px red/white checkerboard template
func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/2+y/2)%2 == 0 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, white)
			}
		}
	}
	return img
}

func paste(dst, src *image.RGBA, at image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(at.X+x, at.Y+y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
}

func TestFindTemplateExactMatch(t *testing.T) {
	for _, method := range []MatchMethod{MatchMethodSAD, MatchMethodSSD, MatchMethodNCC} {
		t.Run(method.String(), func(t *testing.T) {
			screen := fill(image.Rect(0, 0, 120, 80), gray)
			needle := checker(10, 8)
			paste(screen, needle, image.Point{X: 70, Y: 30})

			result := FindTemplate(screen, needle, &MatchConfig{Method: method, Threshold: 0.9})

			require.True(t, result.Found)
			assert.Equal(t, image.Point{X: 70, Y: 30}, result.Location)
			assert.Equal(t, Point{X: 75, Y: 34}, result.Center)
			assert.Equal(t, image.Rect(70, 30, 80, 38), result.Region)
			assert.InDelta(t, 1.0, result.Confidence, 1e-9)
		})
	}
}

func TestFindTemplateBelowThreshold(t *testing.T) {
	screen := fill(image.Rect(0, 0, 60, 40), gray)
	needle := checker(10, 8)

	result := FindTemplate(screen, needle, &MatchConfig{Method: MatchMethodSSD, Threshold: 0.9})

	assert.False(t, result.Found)
	assert.Less(t, result.Confidence, 0.9)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestFindTemplateRespectsSearchRegion(t *testing.T) {
	screen := fill(image.Rect(0, 0, 120, 80), gray)
	needle := checker(10, 8)
	paste(screen, needle, image.Point{X: 70, Y: 30})

	left := image.Rect(0, 0, 60, 80)
	result := FindTemplate(screen, needle, &MatchConfig{Method: MatchMethodSSD, Threshold: 0.9, SearchRegion: &left})
	assert.False(t, result.Found)

	right := image.Rect(60, 20, 100, 50)
	result = FindTemplate(screen, needle, &MatchConfig{Method: MatchMethodSSD, Threshold: 0.9, SearchRegion: &right})
	require.True(t, result.Found)
	assert.True(t, result.Center.ImagePoint().In(right))
}

func TestFindTemplateOffsetHaystack(t *testing.T) {
	// A capture of a screen sub-rectangle keeps screen coordinates
	screen := fill(image.Rect(0, 0, 200, 100), gray)
	needle := checker(6, 6)
	paste(screen, needle, image.Point{X: 150, Y: 60})
	sub := screen.SubImage(image.Rect(100, 40, 200, 100)).(*image.RGBA)

	result := FindTemplate(sub, needle, nil)

	require.True(t, result.Found)
	assert.Equal(t, image.Point{X: 150, Y: 60}, result.Location)
}

func TestFindTemplateNeedleTooLarge(t *testing.T) {
	screen := fill(image.Rect(0, 0, 5, 5), gray)
	result := FindTemplate(screen, checker(10, 10), nil)
	assert.False(t, result.Found)
}

func TestCropRegion(t *testing.T) {
	screen := fill(image.Rect(0, 0, 50, 50), gray)
	needle := checker(4, 4)
	paste(screen, needle, image.Point{X: 10, Y: 20})

	cropped := CropRegion(screen, image.Rect(10, 20, 14, 24))

	assert.Equal(t, image.Rect(0, 0, 4, 4), cropped.Bounds())
	assert.Equal(t, needle.Pix, cropped.Pix)
}

func TestRegionHelpers(t *testing.T) {
	r := NewRegion(10, 10, 100, 50)
	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.False(t, r.Contains(Point{X: 110, Y: 10}))
	assert.Equal(t, image.Rect(10, 10, 110, 60), r.Rect())
	assert.Error(t, NewRegion(0, 0, 0, 10).Validate())

	around := Around(Point{X: 20, Y: 200}, 50)
	assert.Equal(t, Region{Left: -30, Top: 150, Width: 100, Height: 100}, around)
	assert.True(t, around.Contains(Point{X: 20, Y: 200}))

	left := Around(Point{X: -1000, Y: 5}, 50)
	assert.True(t, left.Contains(Point{X: -1000, Y: 5}))
}

func TestCompareImages(t *testing.T) {
	a := checker(20, 20)

	same := CompareImages(a, checker(20, 20), 0.95)
	assert.InDelta(t, 1.0, same.Similarity, 1e-9)
	assert.Nil(t, same.Diff)

	b := checker(20, 20)
	paste(b, fill(image.Rect(0, 0, 10, 10), gray), image.Point{})
	changed := CompareImages(a, b, 0.95)
	assert.Less(t, changed.Similarity, 0.95)
	require.NotNil(t, changed.Diff)
	assert.Equal(t, uint8(255), changed.Diff.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), changed.Diff.GrayAt(15, 15).Y)

	// Different sizes are resized before comparing
	scaled := CompareImages(fill(image.Rect(0, 0, 10, 10), gray), fill(image.Rect(0, 0, 20, 20), gray), 0.95)
	assert.InDelta(t, 1.0, scaled.Similarity, 0.01)
}

func TestStaticCapturer(t *testing.T) {
	frame := fill(image.Rect(0, 0, 40, 30), gray)
	c := NewStaticCapturer(frame)

	img, err := c.Capture(image.Rect(10, 10, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(10, 10, 40, 30), img.Bounds())
	assert.Equal(t, 1, c.Captures())

	_, err = c.Capture(image.Rect(100, 100, 120, 120))
	assert.Error(t, err)
}
