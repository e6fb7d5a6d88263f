// Package assert provides test-step assertions over the engine. Assertions
// return a *Failure instead of panicking so the caller decides whether the
// test case aborts.
package assert

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"jordanella.com/desktop-uitest/internal/actions"
	"jordanella.com/desktop-uitest/internal/logging"
	"jordanella.com/desktop-uitest/internal/uierr"
)

// Failure is a failed assertion
type Failure struct {
	Assertion string
	Message   string
	Diff      string // expected/actual diff for text assertions
	Err       error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("assertion %s failed: %s", f.Assertion, f.Message)
	if f.Diff != "" {
		msg += "\n" + f.Diff
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsFailure reports whether err is a failed assertion
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Checker runs assertions against an engine and reports failures
type Checker struct {
	engine    *actions.Engine
	reporter  *logging.FailureReporter
	logger    *logging.Logger
	threshold float64
}

// NewChecker creates a checker. threshold is the default image similarity.
func NewChecker(engine *actions.Engine, threshold float64) *Checker {
	return &Checker{
		engine:    engine,
		logger:    engine.Logger().Named("assert"),
		threshold: threshold,
	}
}

// WithReporter reports every failed assertion
func (c *Checker) WithReporter(reporter *logging.FailureReporter) *Checker {
	c.reporter = reporter
	return c
}

func (c *Checker) fail(f *Failure, element string, custom []string) error {
	if len(custom) > 0 && custom[0] != "" {
		f.Message = custom[0]
	}
	if c.reporter != nil {
		c.reporter.ReportError("assert_"+f.Assertion, element, f)
	} else {
		c.logger.Error("assertion failed", f)
	}
	return f
}

func (c *Checker) pass(assertion, subject string) error {
	c.logger.InfoWithContext("assertion passed", map[string]interface{}{
		"assertion": assertion,
		"subject":   subject,
	})
	return nil
}

// ElementExists asserts that path appears within timeout
func (c *Checker) ElementExists(path string, timeout time.Duration, message ...string) error {
	if !c.engine.WaitForElement(path, timeout) {
		return c.fail(&Failure{
			Assertion: "element_exists",
			Message:   fmt.Sprintf("element not found: %s", path),
			Err:       &uierr.ElementNotFoundError{Element: path, Timeout: timeout},
		}, path, message)
	}
	return c.pass("element_exists", path)
}

// ElementNotExists asserts that path does not appear within timeout. An
// unreadable reference image fails the assertion.
func (c *Checker) ElementNotExists(path string, timeout time.Duration, message ...string) error {
	seen, err := c.engine.AwaitElement(path, timeout)
	if err != nil {
		return c.fail(&Failure{
			Assertion: "element_not_exists",
			Message:   fmt.Sprintf("cannot check element: %s", path),
			Err:       err,
		}, path, message)
	}
	if seen {
		return c.fail(&Failure{
			Assertion: "element_not_exists",
			Message:   fmt.Sprintf("element still present: %s", path),
		}, path, message)
	}
	return c.pass("element_not_exists", path)
}

// ImageMatch asserts that two image files are at least threshold similar.
// A threshold of 0 uses the checker default.
func (c *Checker) ImageMatch(expected, actual string, threshold float64, message ...string) error {
	if threshold == 0 {
		threshold = c.threshold
	}
	result, err := c.engine.CompareImages(expected, actual, threshold)
	if err != nil {
		return c.fail(&Failure{Assertion: "image_match", Message: err.Error(), Err: err}, actual, message)
	}
	if result.Similarity < threshold {
		return c.fail(&Failure{
			Assertion: "image_match",
			Message:   fmt.Sprintf("similarity %.4f < %.4f", result.Similarity, threshold),
			Err:       &uierr.ImageMatchError{Path: actual, Similarity: result.Similarity, Threshold: threshold},
		}, actual, message)
	}
	return c.pass("image_match", actual)
}

// FileExists asserts that path exists
func (c *Checker) FileExists(path string, message ...string) error {
	if _, err := os.Stat(path); err != nil {
		return c.fail(&Failure{
			Assertion: "file_exists",
			Message:   fmt.Sprintf("file not found: %s", path),
			Err:       uierr.FileOperation("stat", path, err),
		}, path, message)
	}
	return c.pass("file_exists", path)
}

// FileNotExists asserts that path does not exist
func (c *Checker) FileNotExists(path string, message ...string) error {
	if _, err := os.Stat(path); err == nil {
		return c.fail(&Failure{
			Assertion: "file_not_exists",
			Message:   fmt.Sprintf("file still exists: %s", path),
		}, path, message)
	}
	return c.pass("file_not_exists", path)
}

// TextEquals asserts that actual equals expected and shows a character diff when not
func (c *Checker) TextEquals(actual, expected string, message ...string) error {
	if actual != expected {
		return c.fail(&Failure{
			Assertion: "text_equals",
			Message:   fmt.Sprintf("expected %q, got %q", expected, actual),
			Diff:      TextDiff(expected, actual),
		}, "", message)
	}
	return c.pass("text_equals", expected)
}

// Equal asserts deep equality
func (c *Checker) Equal(actual, expected interface{}, message ...string) error {
	if !reflect.DeepEqual(actual, expected) {
		return c.fail(&Failure{
			Assertion: "equal",
			Message:   fmt.Sprintf("expected %v, got %v", expected, actual),
		}, "", message)
	}
	return c.pass("equal", fmt.Sprint(expected))
}

// True asserts that condition holds
func (c *Checker) True(condition bool, message ...string) error {
	if !condition {
		return c.fail(&Failure{Assertion: "true", Message: "condition is false"}, "", message)
	}
	return c.pass("true", "")
}

// False asserts that condition does not hold
func (c *Checker) False(condition bool, message ...string) error {
	if condition {
		return c.fail(&Failure{Assertion: "false", Message: "condition is true"}, "", message)
	}
	return c.pass("false", "")
}

// TextDiff renders the character diff from expected to actual with
// deletions as [-text-] and insertions as {+text+}
func TextDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
