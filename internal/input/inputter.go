package input

import (
	"fmt"
	"time"
)

// MouseButton names a mouse button
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "center"
)

// ParseButton validates a button name
func ParseButton(s string) (MouseButton, error) {
	switch s {
	case "", "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle", "center":
		return ButtonMiddle, nil
	}
	return "", fmt.Errorf("unknown mouse button: %s", s)
}

// ScrollDirection is the direction of a wheel scroll
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// ParseDirection validates a scroll direction
func ParseDirection(s string) (ScrollDirection, error) {
	switch d := ScrollDirection(s); d {
	case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		return d, nil
	}
	return "", fmt.Errorf("unknown scroll direction: %s", s)
}

// Inputter drives the physical mouse and keyboard. Coordinates are screen
// coordinates. Every call completes before it returns.
type Inputter interface {
	Move(x, y int) error
	// Click moves to (x, y) and clicks button clicks times, pausing interval between clicks
	Click(x, y int, button MouseButton, clicks int, interval time.Duration) error
	MouseDown(button MouseButton) error
	MouseUp(button MouseButton) error
	Scroll(amount int, direction ScrollDirection) error
	// TypeText types text key by key, pausing interval between characters
	TypeText(text string, interval time.Duration) error
	KeyTap(key string, modifiers ...string) error
	KeyDown(key string) error
	KeyUp(key string) error
	// Paste enters text through the clipboard
	Paste(text string) error
}
