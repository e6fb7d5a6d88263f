package input

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"golang.design/x/clipboard"
)

// RobotInputter sends real input events through robotgo
type RobotInputter struct {
	clipboardOnce sync.Once
	clipboardErr  error
}

// NewRobotInputter creates an inputter for the local desktop
func NewRobotInputter() *RobotInputter {
	return &RobotInputter{}
}

func (r *RobotInputter) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (r *RobotInputter) Click(x, y int, button MouseButton, clicks int, interval time.Duration) error {
	if clicks < 1 {
		return fmt.Errorf("clicks must be at least 1, got %d", clicks)
	}
	robotgo.Move(x, y)
	for i := 0; i < clicks; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}
		robotgo.Click(string(button))
	}
	return nil
}

func (r *RobotInputter) MouseDown(button MouseButton) error {
	if err := robotgo.Toggle(string(button)); err != nil {
		return fmt.Errorf("failed to press %s button: %w", button, err)
	}
	return nil
}

func (r *RobotInputter) MouseUp(button MouseButton) error {
	if err := robotgo.Toggle(string(button), "up"); err != nil {
		return fmt.Errorf("failed to release %s button: %w", button, err)
	}
	return nil
}

func (r *RobotInputter) Scroll(amount int, direction ScrollDirection) error {
	if amount < 0 {
		return fmt.Errorf("scroll amount must not be negative, got %d", amount)
	}
	robotgo.ScrollDir(amount, string(direction))
	return nil
}

func (r *RobotInputter) TypeText(text string, interval time.Duration) error {
	if interval <= 0 {
		robotgo.TypeStr(text)
		return nil
	}
	for _, ch := range text {
		robotgo.TypeStr(string(ch))
		time.Sleep(interval)
	}
	return nil
}

func (r *RobotInputter) KeyTap(key string, modifiers ...string) error {
	args := make([]interface{}, 0, len(modifiers))
	for _, m := range modifiers {
		args = append(args, m)
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return fmt.Errorf("failed to tap key %s: %w", key, err)
	}
	return nil
}

func (r *RobotInputter) KeyDown(key string) error {
	if err := robotgo.KeyToggle(key, "down"); err != nil {
		return fmt.Errorf("failed to press key %s: %w", key, err)
	}
	return nil
}

func (r *RobotInputter) KeyUp(key string) error {
	if err := robotgo.KeyToggle(key, "up"); err != nil {
		return fmt.Errorf("failed to release key %s: %w", key, err)
	}
	return nil
}

// Paste writes text to the clipboard and sends the platform paste shortcut
func (r *RobotInputter) Paste(text string) error {
	r.clipboardOnce.Do(func() {
		r.clipboardErr = clipboard.Init()
	})
	if r.clipboardErr != nil {
		return fmt.Errorf("failed to initialize clipboard: %w", r.clipboardErr)
	}

	clipboard.Write(clipboard.FmtText, []byte(text))
	return r.KeyTap("v", pasteModifier())
}

func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}
