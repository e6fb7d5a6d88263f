package cv

import (
	"image"

	"github.com/disintegration/gift"
)

// diffCutoff is the grey level above which a pixel counts as changed in the diff mask
const diffCutoff = 30

// Comparison is the outcome of comparing two images of the same scene
type Comparison struct {
	Similarity float64
	// Diff marks changed pixels in white; nil when the images are similar enough
	Diff *image.Gray
}

// CompareImages scores how alike two images are (1 = identical). When the
// sizes differ, actual is resized to expected's size first.
func CompareImages(expected, actual image.Image, threshold float64) Comparison {
	eb := expected.Bounds()
	if actual.Bounds().Size() != eb.Size() {
		g := gift.New(gift.Resize(eb.Dx(), eb.Dy(), gift.LinearResampling))
		resized := image.NewRGBA(g.Bounds(actual.Bounds()))
		g.Draw(resized, actual)
		actual = resized
	}

	e := ToRGBA(expected)
	a := ToRGBA(actual)
	ab := a.Bounds()

	absDiff := image.NewRGBA(image.Rect(0, 0, eb.Dx(), eb.Dy()))
	var total uint64
	for y := 0; y < eb.Dy(); y++ {
		ei := e.PixOffset(eb.Min.X, eb.Min.Y+y)
		ai := a.PixOffset(ab.Min.X, ab.Min.Y+y)
		di := absDiff.PixOffset(0, y)
		for x := 0; x < eb.Dx(); x++ {
			for c := 0; c < 3; c++ {
				d := abs(int(e.Pix[ei+c]) - int(a.Pix[ai+c]))
				absDiff.Pix[di+c] = uint8(d)
				total += uint64(d)
			}
			absDiff.Pix[di+3] = 255
			ei += 4
			ai += 4
			di += 4
		}
	}

	pixels := float64(eb.Dx() * eb.Dy() * 3 * 255)
	if pixels == 0 {
		return Comparison{}
	}
	cmp := Comparison{Similarity: 1 - float64(total)/pixels}
	if cmp.Similarity >= threshold {
		return cmp
	}

	g := gift.New(gift.Grayscale())
	gray := image.NewGray(g.Bounds(absDiff.Bounds()))
	g.Draw(gray, absDiff)
	for i, v := range gray.Pix {
		if v > diffCutoff {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	cmp.Diff = gray
	return cmp
}
