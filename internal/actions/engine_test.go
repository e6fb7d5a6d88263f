package actions

import (
	"bytes"
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

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/input"
	"jordanella.com/desktop-uitest/internal/locator"
	"jordanella.com/desktop-uitest/internal/logging"
	"jordanella.com/desktop-uitest/internal/poll"
	"jordanella.com/desktop-uitest/internal/uierr"
)

var (
	gray   = color.RGBA{128, 128, 128, 255}
	white  = color.RGBA{255, 255, 255, 255}
	red    = color.RGBA{220, 20, 20, 255}
	blue   = color.RGBA{20, 20, 220, 255}
	black  = color.RGBA{0, 0, 0, 255}
	origin = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

// pattern builds a 10x8 two-colour image, checkerboard or striped
func pattern(a, b color.RGBA, striped bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 10, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 10; x++ {
			first := (x/2+y/2)%2 == 0
			if striped {
				first = x%2 == 0
			}
			if first {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}

func saveButton() *image.RGBA { return pattern(red, white, false) }
func okButton() *image.RGBA   { return pattern(blue, black, true) }

func paste(dst, src *image.RGBA, at image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(at.X+x, at.Y+y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
}

func blankScreen() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = gray.R, gray.G, gray.B, 255
	}
	return img
}

func writePNGFile(t *testing.T, path string, img image.Image) string {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

type fixture struct {
	engine   *Engine
	screen   *image.RGBA
	capturer *cv.StaticCapturer
	input    *input.Recorder
	clock    *poll.ManualClock
	dir      string
	save     string
	ok       string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		screen: blankScreen(),
		input:  input.NewRecorder(),
		clock:  poll.NewManualClock(origin),
		dir:    dir,
	}
	f.capturer = cv.NewStaticCapturer(f.screen)
	f.save = writePNGFile(t, filepath.Join(dir, "save_button.png"), saveButton())
	f.ok = writePNGFile(t, filepath.Join(dir, "ok_button.png"), okButton())

	base := []Option{
		WithClock(f.clock),
		WithConfidence(0.9),
		WithPollInterval(500 * time.Millisecond),
		WithScreenshots(filepath.Join(dir, "screenshots"), 500*time.Millisecond),
	}
	f.engine = NewEngine(f.capturer, f.input, append(base, opts...)...)
	return f
}

func (f *fixture) show(img *image.RGBA, at image.Point) {
	paste(f.screen, img, at)
}

type stepRecord struct {
	action  string
	target  string
	success bool
}

type fakeSteps struct {
	records []stepRecord
}

func (s *fakeSteps) RecordStep(action, target string, success bool, _ time.Duration, _ error) error {
	s.records = append(s.records, stepRecord{action, target, success})
	return nil
}

func TestClickElementClicksMatchCentreOnce(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 120, Y: 60})

	err := f.engine.ClickElement(f.save, 5*time.Second)
	require.NoError(t, err)

	events := f.input.Events()
	require.Len(t, events, 1)
	assert.Equal(t, input.EventClick, events[0].Kind)
	assert.Equal(t, 125, events[0].X)
	assert.Equal(t, 64, events[0].Y)
	assert.Equal(t, input.ButtonLeft, events[0].Button)
	assert.Equal(t, 1, events[0].Clicks)
	assert.Empty(t, f.clock.Sleeps(), "found on first poll")

	pos, ok := f.engine.Memory().Get(f.save)
	require.True(t, ok)
	assert.Equal(t, cv.Point{X: 125, Y: 64}, pos)
}

func TestClickElementNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.engine.ClickElement(f.save, 2*time.Second)

	var notFound *uierr.ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, f.save, notFound.Element)
	assert.Equal(t, 2*time.Second, notFound.Timeout)
	assert.Zero(t, f.input.Count(input.EventClick))
	assert.Equal(t, 2*time.Second, f.clock.Slept())
}

func TestClickElementMissingImage(t *testing.T) {
	f := newFixture(t)

	err := f.engine.ClickElement(filepath.Join(f.dir, "missing.png"), time.Second)

	var loadErr *uierr.ImageLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, f.clock.Sleeps(), "load failures are not retried")
}

func TestClickElementInputFailure(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 10, Y: 10})
	f.input.Fail(input.EventClick, errors.New("display locked"))

	err := f.engine.ClickElement(f.save, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display locked")
}

func TestDoubleAndRightClick(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 40, Y: 40})

	require.NoError(t, f.engine.DoubleClickElement(f.save, time.Second))
	require.NoError(t, f.engine.RightClickElement(f.save, time.Second))

	events := f.input.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Clicks)
	assert.Equal(t, input.ButtonRight, events[1].Button)
}

func TestWaitForElementTimesOut(t *testing.T) {
	f := newFixture(t)

	start := f.clock.Now()
	found := f.engine.WaitForElement(f.save, 2*time.Second)
	elapsed := f.clock.Now().Sub(start)

	assert.False(t, found)
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	assert.LessOrEqual(t, elapsed, 2500*time.Millisecond)
	assert.Equal(t, 4, f.capturer.Captures(), "one capture per poll")
}

func TestWaitForElementFound(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 200, Y: 150})

	assert.True(t, f.engine.WaitForElement(f.save, 2*time.Second))
	assert.Empty(t, f.clock.Sleeps())
}

func TestRememberedPositionSearchedFirst(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 120, Y: 60})
	require.NoError(t, f.engine.ClickElement(f.save, time.Second))
	capturesAfterFirst := f.capturer.Captures()

	require.NoError(t, f.engine.ClickElement(f.save, time.Second))
	assert.Equal(t, capturesAfterFirst+1, f.capturer.Captures(), "hit in the neighbourhood window")

	// Element moves far away: neighbourhood misses, full screen finds it
	f.screen = blankScreen()
	f.show(saveButton(), image.Point{X: 250, Y: 170})
	f.capturer.SetFrame(f.screen)
	require.NoError(t, f.engine.ClickElement(f.save, time.Second))

	events := f.input.Events()
	last := events[len(events)-1]
	assert.Equal(t, 255, last.X)
	assert.Equal(t, 174, last.Y)
}

func TestFullScreenStrategy(t *testing.T) {
	f := newFixture(t, WithSearchStrategy(locator.FullScreenOnly{}))
	f.show(saveButton(), image.Point{X: 120, Y: 60})

	require.NoError(t, f.engine.ClickElement(f.save, time.Second))
	require.NoError(t, f.engine.ClickElement(f.save, time.Second))
	assert.Equal(t, 2, f.capturer.Captures())
}

func TestElementExistsAndPosition(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.engine.ElementExists(f.save))

	f.show(saveButton(), image.Point{X: 70, Y: 30})
	assert.True(t, f.engine.ElementExists(f.save))

	pos, err := f.engine.ElementPosition(f.save, time.Second)
	require.NoError(t, err)
	assert.Equal(t, cv.Point{X: 75, Y: 34}, pos)
}

func TestVerifyElementVisible(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 70, Y: 30})

	require.NoError(t, f.engine.VerifyElementVisible(f.save, cv.NewRegion(0, 0, 100, 100), time.Second))

	err := f.engine.VerifyElementVisible(f.save, cv.NewRegion(0, 0, 75, 100), time.Second)
	var notVisible *uierr.ElementNotVisibleError
	require.True(t, errors.As(err, &notVisible))
	assert.Equal(t, f.save, notVisible.Element)

	err = f.engine.VerifyElementVisible(f.ok, cv.NewRegion(0, 0, 100, 100), time.Second)
	assert.True(t, uierr.IsNotFound(err))
}

func TestTemplateRegionAndConfidence(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 200, Y: 20})

	left := cv.Template{Path: f.save}.InRegion(0, 0, 150, 200)
	right := cv.Template{Path: f.save}.InRegion(150, 0, 150, 200)
	assert.False(t, f.engine.TemplateExists(left))
	assert.True(t, f.engine.TemplateExists(right))

	result, err := f.engine.FindTemplate(right.WithConfidence(0.99), time.Second)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(200, 20), result.Location)
}

func TestWaitForElementDisappear(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.engine.WaitForElementDisappear(f.save, time.Second))

	f.show(saveButton(), image.Point{X: 10, Y: 10})
	assert.False(t, f.engine.WaitForElementDisappear(f.save, time.Second))
	assert.Equal(t, time.Second, f.clock.Slept())
}

func TestWaitForDisappearRejectsUnreadableImage(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(f.dir, "no_such_file.png")

	assert.False(t, f.engine.WaitForElementDisappear(missing, 2*time.Second))

	err := f.engine.WaitForTemplateDisappear(cv.Template{Path: missing}, 2*time.Second)
	var loadErr *uierr.ImageLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Empty(t, f.clock.Sleeps(), "load failures are not retried")

	err = f.engine.Actions().WaitUntilGone(missing, time.Second).Execute()
	require.True(t, errors.As(err, &loadErr))
}

func TestWaitForTemplateDisappearHonoursRegion(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 200, Y: 20})

	left := cv.Template{Path: f.save}.InRegion(0, 0, 150, 200)
	require.NoError(t, f.engine.WaitForTemplateDisappear(left, time.Second))

	right := cv.Template{Path: f.save}.InRegion(150, 0, 150, 200)
	err := f.engine.WaitForTemplateDisappear(right, time.Second)
	assert.True(t, uierr.IsTimeout(err))
	assert.Contains(t, err.Error(), "still visible")
}

func TestWaitForAnyElement(t *testing.T) {
	f := newFixture(t)
	f.show(okButton(), image.Point{X: 200, Y: 100})

	found, err := f.engine.WaitForAnyElement([]string{f.save, f.ok}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, f.ok, found)

	_, err = f.engine.WaitForAnyElement(nil, time.Second)
	assert.Error(t, err)
}

func TestWaitForAllElementsReportsMissing(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 20, Y: 20})

	err := f.engine.WaitForAllElements([]string{f.save, f.ok}, time.Second)

	var notFound *uierr.ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, f.ok, notFound.Element)

	f.show(okButton(), image.Point{X: 200, Y: 100})
	assert.NoError(t, f.engine.WaitForAllElements([]string{f.save, f.ok}, time.Second))
}

func TestDragAndDrop(t *testing.T) {
	f := newFixture(t, WithDragDuration(50*time.Millisecond))
	f.show(saveButton(), image.Point{X: 20, Y: 20})
	f.show(okButton(), image.Point{X: 200, Y: 120})

	require.NoError(t, f.engine.DragAndDrop(f.save, f.ok, time.Second))

	kinds := f.input.Kinds()
	require.Len(t, kinds, 8)
	assert.Equal(t, input.EventMove, kinds[0])
	assert.Equal(t, input.EventMouseDown, kinds[1])
	assert.Equal(t, input.EventMouseUp, kinds[7])

	events := f.input.Events()
	assert.Equal(t, 25, events[0].X)
	assert.Equal(t, 24, events[0].Y)
	assert.Equal(t, 205, events[6].X)
	assert.Equal(t, 124, events[6].Y)
	assert.Equal(t, 50*time.Millisecond, f.clock.Slept())
}

func TestDragAndDropOffset(t *testing.T) {
	f := newFixture(t, WithDragDuration(20*time.Millisecond))
	f.show(saveButton(), image.Point{X: 20, Y: 20})
	f.show(okButton(), image.Point{X: 200, Y: 120})

	err := f.engine.DragAndDropOffset(f.save, f.ok, cv.Point{X: 2, Y: -1}, cv.Point{X: -3, Y: 4}, time.Second)
	require.NoError(t, err)

	events := f.input.Events()
	require.Len(t, events, 5)
	assert.Equal(t, 27, events[0].X)
	assert.Equal(t, 23, events[0].Y)
	assert.Equal(t, input.EventMouseDown, events[1].Kind)
	assert.Equal(t, 202, events[3].X)
	assert.Equal(t, 128, events[3].Y)
	assert.Equal(t, input.EventMouseUp, events[4].Kind)
}

// failingMover fails every move after the first
type failingMover struct {
	*input.Recorder
	moves int
}

func (m *failingMover) Move(x, y int) error {
	m.moves++
	if m.moves > 1 {
		return errors.New("pointer lost")
	}
	return m.Recorder.Move(x, y)
}

func TestDragReleasesButtonWhenMoveFails(t *testing.T) {
	rec := input.NewRecorder()
	engine := NewEngine(cv.NewStaticCapturer(blankScreen()), &failingMover{Recorder: rec},
		WithClock(poll.NewManualClock(origin)))

	err := engine.Drag(cv.Point{X: 1, Y: 1}, cv.Point{X: 50, Y: 50}, 30*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pointer lost")
	assert.Equal(t, []input.EventKind{input.EventMove, input.EventMouseDown, input.EventMouseUp}, rec.Kinds())
}

func TestDragValidation(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.engine.Drag(cv.Point{}, cv.Point{X: 1, Y: 1}, -time.Second))
	assert.Empty(t, f.input.Kinds())

	require.NoError(t, f.engine.Drag(cv.Point{}, cv.Point{X: 10, Y: 0}, 0))
	assert.Equal(t, []input.EventKind{input.EventMove, input.EventMouseDown, input.EventMove, input.EventMouseUp}, f.input.Kinds())
}

func TestScrollElement(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 100, Y: 100})

	require.NoError(t, f.engine.ScrollElement(f.save, 3, input.ScrollDown, time.Second))

	events := f.input.Events()
	require.Len(t, events, 2)
	assert.Equal(t, input.EventMove, events[0].Kind)
	assert.Equal(t, 105, events[0].X)
	assert.Equal(t, input.EventScroll, events[1].Kind)
	assert.Equal(t, 3, events[1].Amount)
	assert.Equal(t, input.ScrollDown, events[1].Direction)
}

func TestScrollToElement(t *testing.T) {
	f := newFixture(t)

	err := f.engine.ScrollToElement(f.save, input.ScrollDown, 3)
	assert.True(t, uierr.IsNotFound(err))
	assert.Equal(t, 3, f.input.Count(input.EventScroll))
	assert.Equal(t, []time.Duration{scrollSettle, scrollSettle, scrollSettle}, f.clock.Sleeps())

	f.show(saveButton(), image.Point{X: 5, Y: 5})
	f.input.Reset()
	require.NoError(t, f.engine.ScrollToElement(f.save, input.ScrollDown, 3))
	assert.Zero(t, f.input.Count(input.EventScroll))

	assert.Error(t, f.engine.ScrollToElement(f.save, input.ScrollDown, 0))
}

func TestTypeText(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.TypeText("report.txt", 10*time.Millisecond, true))
	require.NoError(t, f.engine.TypeText("报告", 0, false))

	events := f.input.Events()
	require.Len(t, events, 3)
	assert.Equal(t, input.EventType, events[0].Kind)
	assert.Equal(t, "report.txt", events[0].Text)
	assert.Equal(t, 10*time.Millisecond, events[0].Interval)
	assert.Equal(t, input.EventKeyTap, events[1].Kind)
	assert.Equal(t, "enter", events[1].Key)
	assert.Equal(t, input.EventPaste, events[2].Kind)
	assert.Equal(t, "报告", events[2].Text)
}

func TestTypeTextIsNotJournaled(t *testing.T) {
	steps := &fakeSteps{}
	var logs bytes.Buffer
	f := newFixture(t, WithStepRecorder(steps), WithLogger(logging.NewLogger("engine").SetMinLevel(logging.LogLevelDebug).SetOutput(&logs)))

	require.NoError(t, f.engine.TypeText("hunter2 пароль", 0, false))

	require.Len(t, steps.records, 1)
	assert.Equal(t, stepRecord{"type_text", "14 chars", true}, steps.records[0])
	assert.NotContains(t, logs.String(), "hunter2")
}

func TestPressKey(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.PressKey("tab", 3, 100*time.Millisecond))
	assert.Equal(t, 3, f.input.Count(input.EventKeyTap))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, f.clock.Sleeps())

	assert.Error(t, f.engine.PressKey("tab", 0, 0))
}

func TestHotkeyAndKeyToggle(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Hotkey("s", "ctrl"))
	require.NoError(t, f.engine.KeyDown("shift"))
	require.NoError(t, f.engine.KeyUp("shift"))

	events := f.input.Events()
	require.Len(t, events, 3)
	assert.Equal(t, []string{"ctrl"}, events[0].Modifiers)
	assert.Equal(t, input.EventKeyDown, events[1].Kind)
	assert.Equal(t, input.EventKeyUp, events[2].Kind)
}

func TestRetry(t *testing.T) {
	f := newFixture(t, WithRetries(3, time.Second))

	calls := 0
	err := f.engine.Retry("flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2*time.Second, f.clock.Slept())
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.show(saveButton(), image.Point{X: 5, Y: 5})
	require.NoError(t, f.engine.ClickElement(f.save, time.Second))
	require.Equal(t, 1, f.engine.Cache().Len())
	require.Equal(t, 1, f.engine.Memory().Len())

	first, err := f.engine.Cache().Load(f.save)
	require.NoError(t, err)

	f.engine.Reset()
	assert.Zero(t, f.engine.Cache().Len())
	assert.Zero(t, f.engine.Memory().Len())

	second, err := f.engine.Cache().Load(f.save)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestStepsAreJournaled(t *testing.T) {
	steps := &fakeSteps{}
	f := newFixture(t, WithStepRecorder(steps))
	f.show(saveButton(), image.Point{X: 5, Y: 5})

	require.NoError(t, f.engine.ClickElement(f.save, time.Second))
	require.Error(t, f.engine.ClickElement(f.ok, 0))

	assert.Equal(t, []stepRecord{
		{"click_element", f.save, true},
		{"click_element", f.ok, false},
	}, steps.records)
}
