package input

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// EventKind identifies a recorded input event
type EventKind string

const (
	EventMove      EventKind = "move"
	EventClick     EventKind = "click"
	EventMouseDown EventKind = "mouse_down"
	EventMouseUp   EventKind = "mouse_up"
	EventScroll    EventKind = "scroll"
	EventType      EventKind = "type"
	EventKeyTap    EventKind = "key_tap"
	EventKeyDown   EventKind = "key_down"
	EventKeyUp     EventKind = "key_up"
	EventPaste     EventKind = "paste"
)

// Event is one recorded input call
type Event struct {
	Kind      EventKind
	X, Y      int
	Button    MouseButton
	Clicks    int
	Interval  time.Duration
	Amount    int
	Direction ScrollDirection
	Text      string
	Key       string
	Modifiers []string
}

func (e Event) String() string {
	switch e.Kind {
	case EventMove:
		return fmt.Sprintf("move(%d,%d)", e.X, e.Y)
	case EventClick:
		return fmt.Sprintf("click(%d,%d,%s,x%d)", e.X, e.Y, e.Button, e.Clicks)
	case EventMouseDown, EventMouseUp:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Button)
	case EventScroll:
		return fmt.Sprintf("scroll(%d,%s)", e.Amount, e.Direction)
	case EventKeyTap:
		if len(e.Modifiers) > 0 {
			return fmt.Sprintf("key_tap(%s+%s)", strings.Join(e.Modifiers, "+"), e.Key)
		}
		return fmt.Sprintf("key_tap(%s)", e.Key)
	case EventKeyDown, EventKeyUp:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Key)
	default:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Text)
	}
}

// Recorder is an Inputter that records events instead of sending them. Dry
// runs and tests use it; Fail makes a given kind return an error.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	x, y   int
	fail   map[EventKind]error
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[EventKind]error)}
}

// Fail makes every subsequent event of kind return err
func (r *Recorder) Fail(kind EventKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[kind] = err
}

// Events returns a copy of everything recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded event kinds in order
func (r *Recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many events of kind were recorded
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Position returns the last pointer position
func (r *Recorder) Position() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y
}

// Reset forgets all events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *Recorder) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[e.Kind]; err != nil {
		return err
	}
	if e.Kind == EventMove || e.Kind == EventClick {
		r.x, r.y = e.X, e.Y
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Move(x, y int) error {
	return r.record(Event{Kind: EventMove, X: x, Y: y})
}

func (r *Recorder) Click(x, y int, button MouseButton, clicks int, interval time.Duration) error {
	if clicks < 1 {
		return fmt.Errorf("clicks must be at least 1, got %d", clicks)
	}
	return r.record(Event{Kind: EventClick, X: x, Y: y, Button: button, Clicks: clicks, Interval: interval})
}

func (r *Recorder) MouseDown(button MouseButton) error {
	return r.record(Event{Kind: EventMouseDown, Button: button})
}

func (r *Recorder) MouseUp(button MouseButton) error {
	return r.record(Event{Kind: EventMouseUp, Button: button})
}

func (r *Recorder) Scroll(amount int, direction ScrollDirection) error {
	return r.record(Event{Kind: EventScroll, Amount: amount, Direction: direction})
}

func (r *Recorder) TypeText(text string, interval time.Duration) error {
	return r.record(Event{Kind: EventType, Text: text, Interval: interval})
}

func (r *Recorder) KeyTap(key string, modifiers ...string) error {
	return r.record(Event{Kind: EventKeyTap, Key: key, Modifiers: modifiers})
}

func (r *Recorder) KeyDown(key string) error {
	return r.record(Event{Kind: EventKeyDown, Key: key})
}

func (r *Recorder) KeyUp(key string) error {
	return r.record(Event{Kind: EventKeyUp, Key: key})
}

func (r *Recorder) Paste(text string) error {
	return r.record(Event{Kind: EventPaste, Text: text})
}
