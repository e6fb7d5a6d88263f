package actions

import (
	"fmt"
	"time"

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/input"
)

// dragStep is the pause between the interpolated moves of a drag
const dragStep = 10 * time.Millisecond

// ClickOptions describes one click action
type ClickOptions struct {
	Button   input.MouseButton
	Clicks   int
	Interval time.Duration
}

// ClickElement waits up to timeout for path and left-clicks its centre once
func (e *Engine) ClickElement(path string, timeout time.Duration) error {
	return e.ClickTemplate(e.template(path), timeout, ClickOptions{})
}

// DoubleClickElement waits up to timeout for path and double-clicks its centre
func (e *Engine) DoubleClickElement(path string, timeout time.Duration) error {
	return e.ClickTemplate(e.template(path), timeout, ClickOptions{Clicks: 2})
}

// RightClickElement waits up to timeout for path and right-clicks its centre
func (e *Engine) RightClickElement(path string, timeout time.Duration) error {
	return e.ClickTemplate(e.template(path), timeout, ClickOptions{Button: input.ButtonRight})
}

// ClickTemplate locates t within timeout and issues a single click action
// at the match centre. A miss fails with *uierr.ElementNotFoundError.
func (e *Engine) ClickTemplate(t cv.Template, timeout time.Duration, opts ClickOptions) error {
	if opts.Button == "" {
		opts.Button = input.ButtonLeft
	}
	if opts.Clicks < 1 {
		opts.Clicks = 1
	}

	start := e.clock.Now()
	result, err := e.waitLocate(t, timeout)
	if err == nil {
		err = e.input.Click(result.Center.X, result.Center.Y, opts.Button, opts.Clicks, opts.Interval)
		if err != nil {
			err = fmt.Errorf("failed to click %s at %s: %w", t.Path, result.Center, err)
		}
	}

	action := "click_element"
	if opts.Clicks == 2 {
		action = "double_click_element"
	}
	return e.finish(action, t.Path, start, err)
}

// ClickAt clicks a screen coordinate directly
func (e *Engine) ClickAt(p cv.Point, opts ClickOptions) error {
	if opts.Button == "" {
		opts.Button = input.ButtonLeft
	}
	if opts.Clicks < 1 {
		opts.Clicks = 1
	}
	start := e.clock.Now()
	err := e.input.Click(p.X, p.Y, opts.Button, opts.Clicks, opts.Interval)
	return e.finish("click", p.String(), start, err)
}

// DragAndDrop drags the centre of source onto the centre of target. Both
// must appear within timeout.
func (e *Engine) DragAndDrop(source, target string, timeout time.Duration) error {
	return e.DragAndDropOffset(source, target, cv.Point{}, cv.Point{}, timeout)
}

// DragAndDropOffset is DragAndDrop grabbing source at sourceOffset from its
// centre and dropping at targetOffset from the centre of target
func (e *Engine) DragAndDropOffset(source, target string, sourceOffset, targetOffset cv.Point, timeout time.Duration) error {
	start := e.clock.Now()
	name := source + " -> " + target

	from, err := e.waitLocate(e.template(source), timeout)
	if err != nil {
		return e.finish("drag_and_drop", name, start, err)
	}
	to, err := e.waitLocate(e.template(target), timeout)
	if err != nil {
		return e.finish("drag_and_drop", name, start, err)
	}

	err = e.drag(from.Center.Add(sourceOffset), to.Center.Add(targetOffset), e.dragDuration)
	return e.finish("drag_and_drop", name, start, err)
}

// Drag presses the left button at from, moves to to over duration and releases
func (e *Engine) Drag(from, to cv.Point, duration time.Duration) error {
	start := e.clock.Now()
	err := e.drag(from, to, duration)
	return e.finish("drag", from.String()+" -> "+to.String(), start, err)
}

// drag runs move, press, interpolated moves, release strictly in order.
// The button is released even when a move fails.
func (e *Engine) drag(from, to cv.Point, duration time.Duration) error {
	if duration < 0 {
		return fmt.Errorf("drag duration must not be negative, got %v", duration)
	}
	if err := e.input.Move(from.X, from.Y); err != nil {
		return fmt.Errorf("failed to move to drag start: %w", err)
	}
	if err := e.input.MouseDown(input.ButtonLeft); err != nil {
		return fmt.Errorf("failed to press mouse button: %w", err)
	}

	steps := int(duration / dragStep)
	if steps < 1 {
		steps = 1
	}
	pause := duration / time.Duration(steps)

	var moveErr error
	for i := 1; i <= steps; i++ {
		if pause > 0 {
			e.clock.Sleep(pause)
		}
		x := from.X + (to.X-from.X)*i/steps
		y := from.Y + (to.Y-from.Y)*i/steps
		if err := e.input.Move(x, y); err != nil {
			moveErr = fmt.Errorf("failed to move during drag: %w", err)
			break
		}
	}

	if err := e.input.MouseUp(input.ButtonLeft); err != nil && moveErr == nil {
		return fmt.Errorf("failed to release mouse button: %w", err)
	}
	return moveErr
}

// ScrollElement waits up to timeout for path, moves onto it and scrolls
func (e *Engine) ScrollElement(path string, amount int, direction input.ScrollDirection, timeout time.Duration) error {
	start := e.clock.Now()
	result, err := e.waitLocate(e.template(path), timeout)
	if err == nil {
		err = e.input.Move(result.Center.X, result.Center.Y)
	}
	if err == nil {
		err = e.input.Scroll(amount, direction)
	}
	return e.finish("scroll_element", path, start, err)
}
