package actions

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"
)

// TypeText types text at the focused control and optionally presses enter.
// Text outside ASCII is pasted through the clipboard.
func (e *Engine) TypeText(text string, interval time.Duration, pressEnter bool) error {
	start := e.clock.Now()

	var err error
	if isASCII(text) {
		err = e.input.TypeText(text, interval)
	} else {
		err = e.input.Paste(text)
	}
	if err == nil && pressEnter {
		err = e.input.KeyTap("enter")
	}
	if err != nil {
		err = fmt.Errorf("failed to type text: %w", err)
	}
	// Typed text may be a secret; only its length is logged and journaled
	return e.finish("type_text", fmt.Sprintf("%d chars", utf8.RuneCountInString(text)), start, err)
}

// Type is TypeText with the configured interval and no enter
func (e *Engine) Type(text string) error {
	return e.TypeText(text, e.typeInterval, false)
}

// PressKey taps key presses times, pausing interval between taps
func (e *Engine) PressKey(key string, presses int, interval time.Duration) error {
	if presses < 1 {
		return fmt.Errorf("presses must be at least 1, got %d", presses)
	}

	start := e.clock.Now()
	var err error
	for i := 0; i < presses; i++ {
		if i > 0 && interval > 0 {
			e.clock.Sleep(interval)
		}
		if err = e.input.KeyTap(key); err != nil {
			err = fmt.Errorf("failed to press %s: %w", key, err)
			break
		}
	}
	return e.finish("press_key", key, start, err)
}

// Hotkey taps key while holding modifiers
func (e *Engine) Hotkey(key string, modifiers ...string) error {
	start := e.clock.Now()
	return e.finish("hotkey", key, start, e.input.KeyTap(key, modifiers...))
}

// KeyDown holds key down until KeyUp
func (e *Engine) KeyDown(key string) error {
	start := e.clock.Now()
	return e.finish("key_down", key, start, e.input.KeyDown(key))
}

// KeyUp releases key
func (e *Engine) KeyUp(key string) error {
	start := e.clock.Now()
	return e.finish("key_up", key, start, e.input.KeyUp(key))
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
