package actions

import (
	"image"
	"time"

	"jordanella.com/desktop-uitest/internal/config"
	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/input"
	"jordanella.com/desktop-uitest/internal/locator"
	"jordanella.com/desktop-uitest/internal/logging"
	"jordanella.com/desktop-uitest/internal/poll"
	"jordanella.com/desktop-uitest/pkg/templates"
)

// StepRecorder persists the outcome of every engine step
type StepRecorder interface {
	RecordStep(action, target string, success bool, duration time.Duration, err error) error
}

// TextReader extracts text from an image
type TextReader interface {
	ReadText(img image.Image) (string, error)
}

// Engine drives a desktop application through reference images. It owns
// the image cache, the position memory and the input backend of one test
// run. Operations run one at a time.
type Engine struct {
	capturer cv.Capturer
	input    input.Inputter
	cache    *templates.ImageCache
	memory   *locator.PositionMemory
	locator  *locator.Locator
	poller   *poll.Poller
	clock    poll.Clock
	logger   *logging.Logger
	reporter *logging.FailureReporter
	steps    StepRecorder
	ocr      TextReader

	strategy locator.SearchStrategy
	method   cv.MatchMethod

	confidence      float64
	interval        time.Duration
	screenshotDir   string
	screenshotDelay time.Duration
	maxRetries      int
	retryDelay      time.Duration
	typeInterval    time.Duration
	dragDuration    time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source for waits, retries and drags
func WithClock(clock poll.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithImageCache shares an image cache
func WithImageCache(cache *templates.ImageCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithReporter reports every failed step
func WithReporter(reporter *logging.FailureReporter) Option {
	return func(e *Engine) { e.reporter = reporter }
}

// WithStepRecorder journals every step
func WithStepRecorder(recorder StepRecorder) Option {
	return func(e *Engine) { e.steps = recorder }
}

// WithTextReader enables ReadElementText
func WithTextReader(reader TextReader) Option {
	return func(e *Engine) { e.ocr = reader }
}

// WithSearchStrategy sets how the locator uses remembered positions
func WithSearchStrategy(strategy locator.SearchStrategy) Option {
	return func(e *Engine) { e.strategy = strategy }
}

// WithMatchMethod sets the template matching algorithm
func WithMatchMethod(method cv.MatchMethod) Option {
	return func(e *Engine) { e.method = method }
}

// WithConfidence sets the default match threshold
func WithConfidence(confidence float64) Option {
	return func(e *Engine) { e.confidence = confidence }
}

// WithPollInterval sets the pause between locate attempts
func WithPollInterval(interval time.Duration) Option {
	return func(e *Engine) { e.interval = interval }
}

// WithScreenshots sets where screenshots go and how long to settle before one
func WithScreenshots(dir string, delay time.Duration) Option {
	return func(e *Engine) {
		e.screenshotDir = dir
		e.screenshotDelay = delay
	}
}

// WithRetries sets the attempts and delay used by Retry
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(e *Engine) {
		e.maxRetries = maxRetries
		e.retryDelay = delay
	}
}

// WithTyping sets the pause between typed characters
func WithTyping(interval time.Duration) Option {
	return func(e *Engine) { e.typeInterval = interval }
}

// WithDragDuration sets how long DragAndDrop takes to reach its target
func WithDragDuration(d time.Duration) Option {
	return func(e *Engine) { e.dragDuration = d }
}

// FromSettings applies the matching, timing and screenshot settings
func FromSettings(s *config.Settings) Option {
	return func(e *Engine) {
		e.confidence = s.Confidence
		e.method = cv.ParseMatchMethod(s.MatchMethod)
		e.strategy = locator.ParseStrategy(s.SearchStrategy, s.NeighborhoodRadius)
		e.interval = s.PollInterval
		e.screenshotDir = s.ScreenshotDir
		e.screenshotDelay = s.ScreenshotDelay
		e.maxRetries = s.MaxRetries
		e.retryDelay = s.RetryDelay
		e.typeInterval = s.TypeInterval
		e.dragDuration = s.DragDuration
	}
}

// NewEngine creates an engine that sees the screen through capturer and
// acts through in
func NewEngine(capturer cv.Capturer, in input.Inputter, opts ...Option) *Engine {
	e := &Engine{
		capturer:        capturer,
		input:           in,
		memory:          locator.NewPositionMemory(),
		clock:           poll.RealClock(),
		logger:          logging.NewNopLogger(),
		strategy:        locator.NeighborhoodFirst{Radius: locator.DefaultRadius},
		method:          cv.MatchMethodSSD,
		confidence:      0.8,
		interval:        poll.DefaultInterval,
		screenshotDir:   "screenshots",
		screenshotDelay: 500 * time.Millisecond,
		maxRetries:      3,
		retryDelay:      time.Second,
		dragDuration:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = templates.NewImageCache()
	}

	e.poller = poll.NewPoller(e.clock, e.logger.Named("poll"))
	e.locator = locator.New(capturer, e.cache,
		locator.WithMemory(e.memory),
		locator.WithStrategy(e.strategy),
		locator.WithMatchMethod(e.method),
		locator.WithLogger(e.logger.Named("locator")),
	)
	return e
}

// Cache returns the image cache
func (e *Engine) Cache() *templates.ImageCache { return e.cache }

// Memory returns the position memory
func (e *Engine) Memory() *locator.PositionMemory { return e.memory }

// Locator returns the single-shot locator
func (e *Engine) Locator() *locator.Locator { return e.locator }

// Poller returns the wait and retry loop runner
func (e *Engine) Poller() *poll.Poller { return e.poller }

// Logger returns the engine logger
func (e *Engine) Logger() *logging.Logger { return e.logger }

// Confidence returns the default match threshold
func (e *Engine) Confidence() float64 { return e.confidence }

// Reset drops every cached image and remembered position
func (e *Engine) Reset() {
	e.cache.Clear()
	e.memory.Clear()
	e.logger.Debug("image cache and position memory cleared")
}

// Retry runs action with the configured attempts and delay
func (e *Engine) Retry(operation string, action func() error) error {
	return e.poller.RetryAction(operation, e.maxRetries, e.retryDelay, action)
}

func (e *Engine) template(path string) cv.Template {
	return cv.Template{Name: path, Path: path}
}

func (e *Engine) confidenceFor(t cv.Template) float64 {
	if t.Confidence > 0 {
		return t.Confidence
	}
	return e.confidence
}

// finish journals a step, reports it when it failed and returns err
func (e *Engine) finish(action, target string, start time.Time, err error) error {
	duration := e.clock.Now().Sub(start)

	if e.steps != nil {
		if recErr := e.steps.RecordStep(action, target, err == nil, duration, err); recErr != nil {
			e.logger.Error("failed to record step", recErr)
		}
	}

	if err != nil {
		if e.reporter != nil {
			e.reporter.ReportError(action, target, err)
		} else {
			e.logger.ErrorWithContext("step failed", err, map[string]interface{}{
				"action":  action,
				"element": target,
			})
		}
		return err
	}

	e.logger.InfoWithContext("step completed", map[string]interface{}{
		"action":   action,
		"element":  target,
		"duration": duration,
	})
	return nil
}
