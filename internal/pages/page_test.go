package pages

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/desktop-uitest/internal/actions"
	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/input"
	"jordanella.com/desktop-uitest/internal/poll"
	"jordanella.com/desktop-uitest/internal/uierr"
	"jordanella.com/desktop-uitest/pkg/templates"
)

const pagesYAML = `
pages:
  - name: main
    area: common
    elements:
      open: open.png
      missing: missing.png
      hidden:
        path: open.png
        region: {left: 0, top: 0, width: 50, height: 120}
  - name: scanner
    area: scan
    elements:
      start: open.png
`

func icon() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 12, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 12; x++ {
			c := color.RGBA{250, 250, 250, 255}
			if (x+y)%3 == 0 {
				c = color.RGBA{10, 90, 10, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writeIcon(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func newPage(t *testing.T, name string, opts ...actions.Option) (*Page, *input.Recorder) {
	t.Helper()
	dir := t.TempDir()
	writeIcon(t, filepath.Join(dir, "common", "open.png"), icon())
	writeIcon(t, filepath.Join(dir, "scan", "open.png"), icon())
	blue := image.NewRGBA(image.Rect(0, 0, 12, 6))
	for i := 0; i < len(blue.Pix); i += 4 {
		blue.Pix[i+2], blue.Pix[i+3] = 255, 255
	}
	writeIcon(t, filepath.Join(dir, "common", "missing.png"), blue)

	screen := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for i := 0; i < len(screen.Pix); i += 4 {
		screen.Pix[i], screen.Pix[i+1], screen.Pix[i+2], screen.Pix[i+3] = 128, 128, 128, 255
	}
	ic := icon()
	for y := 0; y < 6; y++ {
		for x := 0; x < 12; x++ {
			screen.SetRGBA(100+x, 20+y, ic.RGBAAt(x, y))
		}
	}

	registry := templates.NewElementRegistry(dir).WithDefaultConfidence(0.9)
	require.NoError(t, registry.LoadFromBytes([]byte(pagesYAML)))

	rec := input.NewRecorder()
	opts = append([]actions.Option{
		actions.WithClock(poll.NewManualClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))),
	}, opts...)
	engine := actions.NewEngine(cv.NewStaticCapturer(screen), rec, opts...)

	page, err := Open(engine, registry, name, time.Second)
	require.NoError(t, err)
	return page, rec
}

func TestPageClickAndFind(t *testing.T) {
	page, rec := newPage(t, "main")

	result, err := page.Find("open")
	require.NoError(t, err)
	assert.Equal(t, cv.Point{X: 106, Y: 23}, result.Center)

	require.NoError(t, page.Click("open"))
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 106, events[0].X)
	assert.Equal(t, 23, events[0].Y)

	require.NoError(t, page.DoubleClick("open"))
	assert.Equal(t, 2, rec.Events()[1].Clicks)
}

func TestPageWaitAndVisible(t *testing.T) {
	page, _ := newPage(t, "main")

	assert.True(t, page.Wait("open"))
	assert.True(t, page.Visible("open"))
	assert.False(t, page.Wait("missing"))
	assert.False(t, page.Visible("missing"))
	assert.False(t, page.Wait("not_registered"))
}

func TestPageMissingElement(t *testing.T) {
	page, _ := newPage(t, "main")

	err := page.Click("missing")
	assert.True(t, uierr.IsNotFound(err))

	err = page.Click("not_registered")
	require.Error(t, err)
	assert.False(t, uierr.IsNotFound(err))
}

func TestPageTypeAndPressKey(t *testing.T) {
	page, rec := newPage(t, "main")

	require.NoError(t, page.Type("hello"))
	require.NoError(t, page.PressKey("enter"))
	assert.Equal(t, []input.EventKind{input.EventType, input.EventKeyTap}, rec.Kinds())
}

type textReader struct {
	bounds image.Rectangle
}

func (r *textReader) ReadText(img image.Image) (string, error) {
	r.bounds = img.Bounds()
	return "Open", nil
}

func TestPageReadTextUsesElementRegion(t *testing.T) {
	reader := &textReader{}
	page, _ := newPage(t, "main", actions.WithTextReader(reader))

	text, err := page.ReadText("open")
	require.NoError(t, err)
	assert.Equal(t, "Open", text)
	assert.Equal(t, image.Rect(100, 20, 112, 26), reader.bounds)

	_, err = page.ReadText("hidden")
	assert.True(t, uierr.IsNotFound(err))
}

func TestPageDoTagsDomain(t *testing.T) {
	scanner, _ := newPage(t, "scanner")
	assert.Equal(t, uierr.DomainScan, scanner.Domain())

	err := scanner.Do("start_scan", func(p *Page) error {
		return p.Click("start")
	})
	require.NoError(t, err)

	base := errors.New("device busy")
	err = scanner.Do("start_scan", func(p *Page) error { return base })
	var opErr *uierr.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, uierr.DomainScan, opErr.Domain)
	assert.Equal(t, "start_scan", opErr.Operation)
	assert.ErrorIs(t, err, base)

	main, _ := newPage(t, "main")
	assert.Equal(t, base, main.Do("anything", func(p *Page) error { return base }))
}

func TestOpenUnknownPage(t *testing.T) {
	registry := templates.NewElementRegistry(t.TempDir())
	engine := actions.NewEngine(cv.NewStaticCapturer(image.NewRGBA(image.Rect(0, 0, 10, 10))), input.NewRecorder())
	_, err := Open(engine, registry, "nope", time.Second)
	assert.Error(t, err)
}
