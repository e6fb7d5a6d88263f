package actions

import (
	"fmt"
	"strings"
	"time"

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/input"
	"jordanella.com/desktop-uitest/internal/uierr"
)

// scrollStep is the wheel amount of one ScrollToElement scroll
const scrollStep = 5

// scrollSettle is the pause after each ScrollToElement scroll
const scrollSettle = 500 * time.Millisecond

// waitLocate polls the locator until t is found or timeout elapses. A miss
// becomes *uierr.ElementNotFoundError; load and capture failures abort the
// wait and are returned as they are.
func (e *Engine) waitLocate(t cv.Template, timeout time.Duration) (*cv.MatchResult, error) {
	confidence := e.confidenceFor(t)

	var result *cv.MatchResult
	err := e.poller.WaitFor("locate "+t.Path, timeout, e.interval, func() (bool, error) {
		r, err := e.locator.Locate(t.Path, confidence, t.Region)
		if err != nil {
			return false, err
		}
		result = r
		return r != nil, nil
	})
	if uierr.IsTimeout(err) {
		return nil, &uierr.ElementNotFoundError{Element: t.Path, Timeout: timeout}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ElementExists checks once, without waiting, whether path is on screen
func (e *Engine) ElementExists(path string) bool {
	return e.TemplateExists(e.template(path))
}

// TemplateExists is ElementExists with the template's own threshold and region
func (e *Engine) TemplateExists(t cv.Template) bool {
	return e.locator.Exists(t.Path, e.confidenceFor(t), t.Region)
}

// FindElement waits up to timeout for path and returns the match
func (e *Engine) FindElement(path string, timeout time.Duration) (*cv.MatchResult, error) {
	return e.FindTemplate(e.template(path), timeout)
}

// FindTemplate is FindElement with the template's own threshold and region
func (e *Engine) FindTemplate(t cv.Template, timeout time.Duration) (*cv.MatchResult, error) {
	start := e.clock.Now()
	result, err := e.waitLocate(t, timeout)
	return result, e.finish("find_element", t.Path, start, err)
}

// ElementPosition waits up to timeout for path and returns its centre
func (e *Engine) ElementPosition(path string, timeout time.Duration) (cv.Point, error) {
	result, err := e.FindElement(path, timeout)
	if err != nil {
		return cv.Point{}, err
	}
	return result.Center, nil
}

// VerifyElementVisible waits for path anywhere on screen and then checks
// that the whole match lies inside within, e.g. a viewport or panel.
func (e *Engine) VerifyElementVisible(path string, within cv.Region, timeout time.Duration) error {
	start := e.clock.Now()
	t := e.template(path)
	result, err := e.waitLocate(t, timeout)
	if err == nil && !result.Region.In(within.Rect()) {
		err = &uierr.ElementNotVisibleError{
			Element: path,
			Reason:  fmt.Sprintf("match %v outside %v", result.Region, within.Rect()),
		}
	}
	return e.finish("verify_visible", path, start, err)
}

// WaitForElement reports whether path appears within timeout
func (e *Engine) WaitForElement(path string, timeout time.Duration) bool {
	return e.WaitForTemplate(e.template(path), timeout)
}

// WaitForTemplate is WaitForElement with the template's own threshold and region
func (e *Engine) WaitForTemplate(t cv.Template, timeout time.Duration) bool {
	result, err := e.waitLocate(t, timeout)
	if err != nil {
		if !uierr.IsNotFound(err) {
			e.logger.Error("wait for element aborted", err)
		}
		e.logger.WarnWithContext("element did not appear", map[string]interface{}{
			"element": t.Path,
			"timeout": timeout,
		})
		return false
	}
	e.logger.DebugWithContext("element appeared", map[string]interface{}{
		"element": t.Path,
		"x":       result.Center.X,
		"y":       result.Center.Y,
	})
	return true
}

// WaitForElementDisappear reports whether path is gone within timeout. A
// reference image that cannot be loaded never counts as gone.
func (e *Engine) WaitForElementDisappear(path string, timeout time.Duration) bool {
	err := e.waitGone(e.template(path), timeout)
	if err != nil && !uierr.IsTimeout(err) {
		e.logger.Error("wait for disappear aborted", err)
	}
	return err == nil
}

// WaitForTemplateDisappear waits up to timeout for t to leave the screen,
// honouring its threshold and region. Load and capture failures are returned
// as they are.
func (e *Engine) WaitForTemplateDisappear(t cv.Template, timeout time.Duration) error {
	start := e.clock.Now()
	err := e.waitGone(t, timeout)
	if uierr.IsTimeout(err) {
		err = fmt.Errorf("element still visible after %v: %s: %w", timeout, t.Path, err)
	}
	return e.finish("wait_for_disappear", t.Path, start, err)
}

func (e *Engine) waitGone(t cv.Template, timeout time.Duration) error {
	confidence := e.confidenceFor(t)
	return e.poller.WaitFor("disappear "+t.Path, timeout, e.interval, func() (bool, error) {
		r, err := e.locator.Locate(t.Path, confidence, t.Region)
		if err != nil {
			return false, err
		}
		return r == nil, nil
	})
}

// AwaitElement waits up to timeout for path. It reports false with a nil
// error when path never appears, and returns load and capture failures.
func (e *Engine) AwaitElement(path string, timeout time.Duration) (bool, error) {
	_, err := e.waitLocate(e.template(path), timeout)
	if uierr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// WaitForAnyElement waits until one of paths is on screen and returns it.
// Paths are checked in order on every poll.
func (e *Engine) WaitForAnyElement(paths []string, timeout time.Duration) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no elements to wait for")
	}

	start := e.clock.Now()
	found := ""
	err := e.poller.WaitFor("any of "+strings.Join(paths, ", "), timeout, e.interval, func() (bool, error) {
		for _, path := range paths {
			if e.ElementExists(path) {
				found = path
				return true, nil
			}
		}
		return false, nil
	})
	return found, e.finish("wait_for_any_element", strings.Join(paths, ","), start, err)
}

// WaitForAllElements waits until every path has been seen at least once
func (e *Engine) WaitForAllElements(paths []string, timeout time.Duration) error {
	start := e.clock.Now()
	seen := make(map[string]bool, len(paths))
	err := e.poller.WaitFor("all of "+strings.Join(paths, ", "), timeout, e.interval, func() (bool, error) {
		for _, path := range paths {
			if !seen[path] && e.ElementExists(path) {
				seen[path] = true
			}
		}
		return len(seen) == len(paths), nil
	})
	if uierr.IsTimeout(err) {
		var missing []string
		for _, path := range paths {
			if !seen[path] {
				missing = append(missing, path)
			}
		}
		err = &uierr.ElementNotFoundError{Element: strings.Join(missing, ", "), Timeout: timeout}
	}
	return e.finish("wait_for_all_elements", strings.Join(paths, ","), start, err)
}

// ScrollToElement scrolls in direction until path is visible, checking
// before each of at most maxScrolls scrolls
func (e *Engine) ScrollToElement(path string, direction input.ScrollDirection, maxScrolls int) error {
	if maxScrolls < 1 {
		return fmt.Errorf("max scrolls must be at least 1, got %d", maxScrolls)
	}

	start := e.clock.Now()
	for i := 0; i < maxScrolls; i++ {
		if e.ElementExists(path) {
			return e.finish("scroll_to_element", path, start, nil)
		}
		if err := e.input.Scroll(scrollStep, direction); err != nil {
			return e.finish("scroll_to_element", path, start, fmt.Errorf("failed to scroll: %w", err))
		}
		e.clock.Sleep(scrollSettle)
	}

	err := &uierr.ElementNotFoundError{Element: path, Timeout: e.clock.Now().Sub(start)}
	return e.finish("scroll_to_element", path, start, err)
}
