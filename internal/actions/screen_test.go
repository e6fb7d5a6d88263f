package actions

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/logging"
	"jordanella.com/desktop-uitest/internal/uierr"
)

func decodePNGFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestTakeScreenshot(t *testing.T) {
	f := newFixture(t)

	path, err := f.engine.TakeScreenshot("login", nil)
	require.NoError(t, err)

	assert.Equal(t, "login_20260102_030405.png", filepath.Base(path))
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, f.clock.Sleeps(), "settles before capturing")
	assert.Equal(t, image.Pt(300, 200), decodePNGFile(t, path).Bounds().Size())
}

func TestTakeScreenshotRegion(t *testing.T) {
	f := newFixture(t)
	region := cv.NewRegion(10, 20, 40, 30)

	path, err := f.engine.TakeScreenshot("toolbar", &region)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 30), decodePNGFile(t, path).Bounds().Size())

	bad := cv.NewRegion(0, 0, 0, 10)
	_, err = f.engine.TakeScreenshot("toolbar", &bad)
	assert.Error(t, err)
}

func TestFailureReportedWithScreenshot(t *testing.T) {
	f := newFixture(t)
	reporter := logging.NewFailureReporter(logging.NewNopLogger()).WithScreenshots(f.engine)
	f.engine.reporter = reporter

	err := f.engine.ClickElement(f.save, 0)
	require.Error(t, err)

	failures := reporter.RecentFailures(1)
	require.Len(t, failures, 1)
	report := failures[0]
	assert.Equal(t, logging.FailureCategoryElement, report.Category)
	assert.Equal(t, "click_element", report.Operation)
	assert.Equal(t, f.save, report.Element)
	assert.True(t, strings.HasPrefix(filepath.Base(report.Screenshot), "failure_click_element_"))
	assert.FileExists(t, report.Screenshot)
}

func TestCompareImages(t *testing.T) {
	f := newFixture(t)
	copyPath := writePNGFile(t, filepath.Join(f.dir, "save_copy.png"), saveButton())

	same, err := f.engine.CompareImages(f.save, copyPath, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same.Similarity, 1e-9)
	assert.Nil(t, same.Diff)

	different, err := f.engine.CompareImages(f.save, f.ok, 0.95)
	require.NoError(t, err)
	assert.Less(t, different.Similarity, 0.95)
	assert.NotNil(t, different.Diff)

	_, err = f.engine.CompareImages(f.save, filepath.Join(f.dir, "nope.png"), 0.95)
	var matchErr *uierr.ImageMatchError
	require.True(t, errors.As(err, &matchErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestVerifyScreen(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 30, Y: 40})
	region := cv.NewRegion(30, 40, 10, 8)

	comparison, err := f.engine.VerifyScreen(f.save, &region, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, comparison.Similarity, 1e-9)

	_, err = f.engine.VerifyScreen(f.ok, &region, 0.95)
	var matchErr *uierr.ImageMatchError
	require.True(t, errors.As(err, &matchErr))
	assert.Equal(t, 0.95, matchErr.Threshold)
	assert.Less(t, matchErr.Similarity, 0.95)
}

type fakeReader struct {
	size   image.Point
	bounds image.Rectangle
	text   string
	err    error
}

func (r *fakeReader) ReadText(img image.Image) (string, error) {
	r.bounds = img.Bounds()
	r.size = r.bounds.Size()
	return r.text, r.err
}

func TestReadElementText(t *testing.T) {
	reader := &fakeReader{text: "Saved"}
	f := newFixture(t, WithTextReader(reader))
	f.show(saveButton(), image.Point{X: 60, Y: 60})

	text, err := f.engine.ReadElementText(f.save, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Saved", text)
	assert.Equal(t, image.Pt(10, 8), reader.size)

	reader.err = errors.New("engine crashed")
	_, err = f.engine.ReadElementText(f.save, time.Second)
	var opErr *uierr.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, uierr.DomainOCR, opErr.Domain)
}

func TestReadTemplateTextHonoursRegion(t *testing.T) {
	reader := &fakeReader{text: "Total"}
	f := newFixture(t, WithTextReader(reader))
	f.show(saveButton(), image.Point{X: 10, Y: 20})
	f.show(saveButton(), image.Point{X: 200, Y: 20})

	field := cv.Template{Path: f.save}.InRegion(150, 0, 150, 200)
	text, err := f.engine.ReadTemplateText(field, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Total", text)
	assert.Equal(t, image.Rect(200, 20, 210, 28), reader.bounds)
}

func TestReadElementTextWithoutReader(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 60, Y: 60})

	_, err := f.engine.ReadElementText(f.save, time.Second)
	var opErr *uierr.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, uierr.DomainOCR, opErr.Domain)
}
