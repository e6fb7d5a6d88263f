package actions

import (
	"fmt"
	"time"

	"jordanella.com/desktop-uitest/internal/input"
)

// ActionBuilder chains engine operations into a sequence that runs step by
// step and stops at the first failure
type ActionBuilder struct {
	engine       *Engine
	steps        []Step
	ignoreErrors bool
}

type Step struct {
	name        string
	execute     func() error
	recover     func(error) error
	issue       error
	maxAttempts int           // 0 or 1 = no retries
	retryDelay  time.Duration // 0 = the engine's retry delay
}

// Name returns the step name
func (s Step) Name() string {
	return s.name
}

// Actions starts a new sequence on the engine
func (e *Engine) Actions() *ActionBuilder {
	return &ActionBuilder{engine: e}
}

// Steps returns the steps added so far
func (ab *ActionBuilder) Steps() []Step {
	return ab.steps
}

func (ab *ActionBuilder) add(name string, execute func() error) *ActionBuilder {
	ab.steps = append(ab.steps, Step{name: name, execute: execute})
	return ab
}

func (ab *ActionBuilder) invalid(name string, issue error) *ActionBuilder {
	ab.steps = append(ab.steps, Step{name: name, issue: issue})
	return ab
}

// Basic building blocks

func (ab *ActionBuilder) Click(path string, timeout time.Duration) *ActionBuilder {
	return ab.add("Click "+path, func() error {
		return ab.engine.ClickElement(path, timeout)
	})
}

func (ab *ActionBuilder) DoubleClick(path string, timeout time.Duration) *ActionBuilder {
	return ab.add("DoubleClick "+path, func() error {
		return ab.engine.DoubleClickElement(path, timeout)
	})
}

func (ab *ActionBuilder) WaitFor(path string, timeout time.Duration) *ActionBuilder {
	return ab.add("WaitFor "+path, func() error {
		_, err := ab.engine.FindElement(path, timeout)
		return err
	})
}

func (ab *ActionBuilder) WaitUntilGone(path string, timeout time.Duration) *ActionBuilder {
	return ab.add("WaitUntilGone "+path, func() error {
		return ab.engine.WaitForTemplateDisappear(ab.engine.template(path), timeout)
	})
}

func (ab *ActionBuilder) Drag(source, target string, timeout time.Duration) *ActionBuilder {
	return ab.add("Drag "+source, func() error {
		return ab.engine.DragAndDrop(source, target, timeout)
	})
}

func (ab *ActionBuilder) Scroll(path string, amount int, direction input.ScrollDirection, timeout time.Duration) *ActionBuilder {
	return ab.add("Scroll "+path, func() error {
		return ab.engine.ScrollElement(path, amount, direction, timeout)
	})
}

func (ab *ActionBuilder) Type(text string, pressEnter bool) *ActionBuilder {
	return ab.add("Type", func() error {
		return ab.engine.TypeText(text, ab.engine.typeInterval, pressEnter)
	})
}

func (ab *ActionBuilder) PressKey(key string, presses int) *ActionBuilder {
	if presses < 1 {
		return ab.invalid("PressKey "+key, fmt.Errorf("presses must be at least 1, got %d", presses))
	}
	return ab.add("PressKey "+key, func() error {
		return ab.engine.PressKey(key, presses, 0)
	})
}

func (ab *ActionBuilder) Hotkey(key string, modifiers ...string) *ActionBuilder {
	return ab.add("Hotkey "+key, func() error {
		return ab.engine.Hotkey(key, modifiers...)
	})
}

func (ab *ActionBuilder) Sleep(d time.Duration) *ActionBuilder {
	if d < 0 {
		return ab.invalid("Sleep", fmt.Errorf("sleep duration must not be negative, got %v", d))
	}
	return ab.add("Sleep", func() error {
		ab.engine.clock.Sleep(d)
		return nil
	})
}

func (ab *ActionBuilder) Screenshot(purpose string) *ActionBuilder {
	return ab.add("Screenshot "+purpose, func() error {
		_, err := ab.engine.TakeScreenshot(purpose, nil)
		return err
	})
}

// Custom

func (ab *ActionBuilder) Do(name string, fn func() error) *ActionBuilder {
	return ab.add(name, fn)
}

// Step modifiers apply to the most recently added step

// Retry makes the last step run up to attempts times
func (ab *ActionBuilder) Retry(attempts int, delay time.Duration) *ActionBuilder {
	if len(ab.steps) == 0 {
		return ab
	}
	last := &ab.steps[len(ab.steps)-1]
	last.maxAttempts = attempts
	last.retryDelay = delay
	return ab
}

// Optional lets the last step fail without failing the sequence
func (ab *ActionBuilder) Optional() *ActionBuilder {
	if len(ab.steps) == 0 {
		return ab
	}
	ab.steps[len(ab.steps)-1].recover = func(err error) error {
		ab.engine.logger.WarnWithContext("optional step failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return ab
}

// IgnoreErrors keeps running after failed steps
func (ab *ActionBuilder) IgnoreErrors() *ActionBuilder {
	ab.ignoreErrors = true
	return ab
}

// Validate reports the first build error
func (ab *ActionBuilder) Validate() error {
	for _, step := range ab.steps {
		if step.issue != nil {
			return fmt.Errorf("build configuration error for step '%s': %w", step.name, step.issue)
		}
	}
	return nil
}

// Execution

// Execute runs the steps in order. With IgnoreErrors the first failure is
// returned after every step has run.
func (ab *ActionBuilder) Execute() error {
	if err := ab.Validate(); err != nil {
		return err
	}

	var firstErr error
	for i := range ab.steps {
		err := ab.executeStep(&ab.steps[i])
		if err == nil {
			continue
		}
		if !ab.ignoreErrors {
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (ab *ActionBuilder) executeStep(step *Step) error {
	var err error
	if step.maxAttempts > 1 {
		delay := step.retryDelay
		if delay == 0 {
			delay = ab.engine.retryDelay
		}
		err = ab.engine.poller.RetryAction(step.name, step.maxAttempts, delay, step.execute)
	} else {
		err = step.execute()
	}

	if err != nil && step.recover != nil {
		err = step.recover(err)
	}
	if err != nil {
		return fmt.Errorf("step '%s' failed: %w", step.name, err)
	}
	return nil
}
