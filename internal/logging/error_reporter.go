package logging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"jordanella.com/desktop-uitest/internal/uierr"
)

// FailureCategory represents the category of a failure
type FailureCategory string

const (
	FailureCategoryElement FailureCategory = "element"
	FailureCategoryTimeout FailureCategory = "timeout"
	FailureCategoryImage   FailureCategory = "image"
	FailureCategoryFile    FailureCategory = "file"
	FailureCategoryOCR     FailureCategory = "ocr"
	FailureCategoryScan    FailureCategory = "scan"
	FailureCategorySystem  FailureCategory = "system"
)

var allCategories = []FailureCategory{
	FailureCategoryElement,
	FailureCategoryTimeout,
	FailureCategoryImage,
	FailureCategoryFile,
	FailureCategoryOCR,
	FailureCategoryScan,
	FailureCategorySystem,
}

// FailureSeverity represents the severity of a failure
type FailureSeverity string

const (
	FailureSeverityLow      FailureSeverity = "low"
	FailureSeverityMedium   FailureSeverity = "medium"
	FailureSeverityHigh     FailureSeverity = "high"
	FailureSeverityCritical FailureSeverity = "critical"
)

// Categorize maps an engine error to its failure category
func Categorize(err error) FailureCategory {
	var (
		notFound   *uierr.ElementNotFoundError
		notVisible *uierr.ElementNotVisibleError
		timeout    *uierr.TimeoutError
		load       *uierr.ImageLoadError
		match      *uierr.ImageMatchError
		op         *uierr.OperationError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &notVisible):
		return FailureCategoryElement
	case errors.As(err, &timeout):
		return FailureCategoryTimeout
	case errors.As(err, &load), errors.As(err, &match):
		return FailureCategoryImage
	case errors.As(err, &op):
		switch op.Domain {
		case uierr.DomainFile:
			return FailureCategoryFile
		case uierr.DomainOCR:
			return FailureCategoryOCR
		case uierr.DomainScan:
			return FailureCategoryScan
		}
	}
	return FailureCategorySystem
}

// FailureReport represents a detailed failure report
type FailureReport struct {
	Timestamp  time.Time              `json:"timestamp"`
	Category   FailureCategory        `json:"category"`
	Severity   FailureSeverity        `json:"severity"`
	Operation  string                 `json:"operation"`
	Element    string                 `json:"element,omitempty"`
	Message    string                 `json:"message"`
	Error      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Screenshot string                 `json:"screenshot,omitempty"`
}

// Screenshotter captures the screen when a failure is reported
type Screenshotter interface {
	Screenshot(purpose string) (string, error)
}

// FailureRecorder persists failure reports, e.g. to the run journal
type FailureRecorder interface {
	RecordFailure(report *FailureReport) error
}

// FailureCallback is called when a failure is reported
type FailureCallback func(report *FailureReport)

// FailureReporter is the capture-and-log hook for failed test steps
type FailureReporter struct {
	logger      *Logger
	screenshots Screenshotter
	recorder    FailureRecorder
	history     []*FailureReport
	historyMu   sync.RWMutex
	maxHistory  int
	callbacks   map[FailureSeverity][]FailureCallback
	callbacksMu sync.RWMutex
	clock       func() time.Time
}

// NewFailureReporter creates a new failure reporter
func NewFailureReporter(logger *Logger) *FailureReporter {
	if logger == nil {
		logger = NewLogger("FailureReporter")
	}
	return &FailureReporter{
		logger:     logger,
		history:    make([]*FailureReport, 0),
		maxHistory: 1000,
		callbacks:  make(map[FailureSeverity][]FailureCallback),
		clock:      time.Now,
	}
}

// WithScreenshots enables failure screenshots
func (fr *FailureReporter) WithScreenshots(s Screenshotter) *FailureReporter {
	fr.screenshots = s
	return fr
}

// WithRecorder persists every report
func (fr *FailureReporter) WithRecorder(r FailureRecorder) *FailureReporter {
	fr.recorder = r
	return fr
}

// Report records a failure: screenshot, log, persist, history, callbacks
func (fr *FailureReporter) Report(report *FailureReport) {
	report.Timestamp = fr.clock()
	if report.Severity == "" {
		report.Severity = FailureSeverityHigh
	}
	if report.Message == "" && report.Error != nil {
		report.Message = report.Error.Error()
	}

	if fr.screenshots != nil {
		path, err := fr.screenshots.Screenshot(fmt.Sprintf("failure_%s", report.Operation))
		if err != nil {
			fr.logger.Error("failed to capture failure screenshot", err)
		} else {
			report.Screenshot = path
		}
	}

	fr.logFailure(report)

	if fr.recorder != nil {
		if err := fr.recorder.RecordFailure(report); err != nil {
			fr.logger.Error("failed to record failure", err)
		}
	}

	fr.addToHistory(report)
	fr.invokeCallbacks(report)
}

// ReportError categorizes err and reports it against an operation and element
func (fr *FailureReporter) ReportError(operation, element string, err error) *FailureReport {
	report := &FailureReport{
		Category:  Categorize(err),
		Severity:  FailureSeverityHigh,
		Operation: operation,
		Element:   element,
		Error:     err,
	}
	fr.Report(report)
	return report
}

// ReportErrorWithContext is ReportError with extra context
func (fr *FailureReporter) ReportErrorWithContext(operation, element string, err error, context map[string]interface{}) *FailureReport {
	report := &FailureReport{
		Category:  Categorize(err),
		Severity:  FailureSeverityHigh,
		Operation: operation,
		Element:   element,
		Error:     err,
		Context:   context,
	}
	fr.Report(report)
	return report
}

// logFailure logs a failure report
func (fr *FailureReporter) logFailure(report *FailureReport) {
	context := map[string]interface{}{
		"category":  string(report.Category),
		"severity":  string(report.Severity),
		"operation": report.Operation,
	}
	if report.Element != "" {
		context["element"] = report.Element
	}
	if report.Screenshot != "" {
		context["screenshot"] = report.Screenshot
	}
	for k, v := range report.Context {
		context[k] = v
	}

	switch report.Severity {
	case FailureSeverityCritical:
		fr.logger.FatalWithContext(report.Message, report.Error, context)
	case FailureSeverityHigh:
		fr.logger.ErrorWithContext(report.Message, report.Error, context)
	case FailureSeverityMedium:
		fr.logger.WarnWithContext(report.Message, context)
	default:
		fr.logger.InfoWithContext(report.Message, context)
	}
}

// addToHistory adds a failure to the history
func (fr *FailureReporter) addToHistory(report *FailureReport) {
	fr.historyMu.Lock()
	defer fr.historyMu.Unlock()

	fr.history = append(fr.history, report)
	if len(fr.history) > fr.maxHistory {
		fr.history = fr.history[len(fr.history)-fr.maxHistory:]
	}
}

// invokeCallbacks runs the callbacks for the report's severity, in
// registration order, on the reporting goroutine
func (fr *FailureReporter) invokeCallbacks(report *FailureReport) {
	fr.callbacksMu.RLock()
	callbacks := fr.callbacks[report.Severity]
	fr.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		callback(report)
	}
}

// OnFailure registers a callback for a specific severity
func (fr *FailureReporter) OnFailure(severity FailureSeverity, callback FailureCallback) {
	fr.callbacksMu.Lock()
	defer fr.callbacksMu.Unlock()

	fr.callbacks[severity] = append(fr.callbacks[severity], callback)
}

// RecentFailures returns the N most recent failures
func (fr *FailureReporter) RecentFailures(n int) []*FailureReport {
	fr.historyMu.RLock()
	defer fr.historyMu.RUnlock()

	if n > len(fr.history) {
		n = len(fr.history)
	}
	start := len(fr.history) - n
	result := make([]*FailureReport, n)
	copy(result, fr.history[start:])
	return result
}

// FailuresByCategory returns failures filtered by category, newest first
func (fr *FailureReporter) FailuresByCategory(category FailureCategory, limit int) []*FailureReport {
	fr.historyMu.RLock()
	defer fr.historyMu.RUnlock()

	result := make([]*FailureReport, 0)
	for i := len(fr.history) - 1; i >= 0 && len(result) < limit; i-- {
		if fr.history[i].Category == category {
			result = append(result, fr.history[i])
		}
	}
	return result
}

// Stats returns failure counts by severity and category
func (fr *FailureReporter) Stats() map[string]int {
	fr.historyMu.RLock()
	defer fr.historyMu.RUnlock()

	stats := map[string]int{
		"total":             len(fr.history),
		"severity_critical": 0,
		"severity_high":     0,
		"severity_medium":   0,
		"severity_low":      0,
	}
	for _, c := range allCategories {
		stats[fmt.Sprintf("category_%s", c)] = 0
	}

	for _, report := range fr.history {
		stats[fmt.Sprintf("severity_%s", report.Severity)]++
		stats[fmt.Sprintf("category_%s", report.Category)]++
	}
	return stats
}

// Clear clears the failure history
func (fr *FailureReporter) Clear() {
	fr.historyMu.Lock()
	defer fr.historyMu.Unlock()

	fr.history = make([]*FailureReport, 0)
}
