package actions

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jordanella.com/desktop-uitest/internal/cv"
)

// ElementResolver maps an element reference such as "main.save_button" to
// its template
type ElementResolver interface {
	Lookup(ref string) (cv.Template, error)
}

// Routine is a named sequence of steps read from YAML
type Routine struct {
	Name    string        `yaml:"name"`
	Timeout float64       `yaml:"timeout"` // seconds, default for every step
	Steps   []RoutineStep `yaml:"steps"`
}

// RoutineStep holds exactly one action field plus optional modifiers.
// Element fields accept a registry reference or an image path.
type RoutineStep struct {
	Click       string   `yaml:"click"`
	DoubleClick string   `yaml:"double_click"`
	Wait        string   `yaml:"wait"`
	Gone        string   `yaml:"gone"`
	Type        *string  `yaml:"type"`
	Key         string   `yaml:"key"`
	Hotkey      string   `yaml:"hotkey"`
	Sleep       float64  `yaml:"sleep"`
	Screenshot  string   `yaml:"screenshot"`
	Enter       bool     `yaml:"enter"`
	Presses     int      `yaml:"presses"`
	Modifiers   []string `yaml:"modifiers"`
	Timeout     float64  `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	Optional    bool     `yaml:"optional"`
}

func (s RoutineStep) action() (string, error) {
	var set []string
	if s.Click != "" {
		set = append(set, "click")
	}
	if s.DoubleClick != "" {
		set = append(set, "double_click")
	}
	if s.Wait != "" {
		set = append(set, "wait")
	}
	if s.Gone != "" {
		set = append(set, "gone")
	}
	if s.Type != nil {
		set = append(set, "type")
	}
	if s.Key != "" {
		set = append(set, "key")
	}
	if s.Hotkey != "" {
		set = append(set, "hotkey")
	}
	if s.Sleep != 0 {
		set = append(set, "sleep")
	}
	if s.Screenshot != "" {
		set = append(set, "screenshot")
	}

	switch len(set) {
	case 0:
		return "", fmt.Errorf("step has no action")
	case 1:
		return set[0], nil
	}
	return "", fmt.Errorf("step has more than one action: %s", strings.Join(set, ", "))
}

// RoutineLoader turns routine files into executable sequences
type RoutineLoader struct {
	engine         *Engine
	resolver       ElementResolver
	defaultTimeout time.Duration
}

// NewRoutineLoader creates a loader building sequences for engine
func NewRoutineLoader(engine *Engine, defaultTimeout time.Duration) *RoutineLoader {
	return &RoutineLoader{engine: engine, defaultTimeout: defaultTimeout}
}

// WithResolver resolves element references through an element registry
func (rl *RoutineLoader) WithResolver(resolver ElementResolver) *RoutineLoader {
	rl.resolver = resolver
	return rl
}

// LoadFromFile reads, validates and builds a routine
func (rl *RoutineLoader) LoadFromFile(path string) (*ActionBuilder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routine file %s: %w", path, err)
	}
	return rl.LoadFromBytes(data)
}

// LoadFromBytes parses and builds a routine
func (rl *RoutineLoader) LoadFromBytes(data []byte) (*ActionBuilder, error) {
	var routine Routine
	if err := yaml.Unmarshal(data, &routine); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routine YAML: %w", err)
	}
	return rl.Build(&routine)
}

// Build validates every step and appends it to a new sequence
func (rl *RoutineLoader) Build(routine *Routine) (*ActionBuilder, error) {
	if len(routine.Steps) == 0 {
		return nil, fmt.Errorf("routine '%s' has no steps", routine.Name)
	}

	defaultTimeout := rl.defaultTimeout
	if routine.Timeout > 0 {
		defaultTimeout = secondsToDuration(routine.Timeout)
	}

	ab := rl.engine.Actions()
	for i, step := range routine.Steps {
		if err := rl.buildStep(ab, step, defaultTimeout); err != nil {
			return nil, fmt.Errorf("routine '%s' step %d validation failed: %w", routine.Name, i+1, err)
		}
		if step.Retries > 1 {
			ab.Retry(step.Retries, 0)
		}
		if step.Optional {
			ab.Optional()
		}
	}
	return ab, nil
}

func (rl *RoutineLoader) buildStep(ab *ActionBuilder, step RoutineStep, defaultTimeout time.Duration) error {
	action, err := step.action()
	if err != nil {
		return err
	}
	if step.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	timeout := defaultTimeout
	if step.Timeout > 0 {
		timeout = secondsToDuration(step.Timeout)
	}
	e := rl.engine

	switch action {
	case "click", "double_click":
		ref := step.Click
		clicks := 1
		if action == "double_click" {
			ref, clicks = step.DoubleClick, 2
		}
		t, err := rl.resolve(ref)
		if err != nil {
			return err
		}
		ab.Do(action+" "+ref, func() error {
			return e.ClickTemplate(t, timeout, ClickOptions{Clicks: clicks})
		})
	case "wait":
		t, err := rl.resolve(step.Wait)
		if err != nil {
			return err
		}
		ab.Do("wait "+step.Wait, func() error {
			_, err := e.FindTemplate(t, timeout)
			return err
		})
	case "gone":
		t, err := rl.resolve(step.Gone)
		if err != nil {
			return err
		}
		ab.Do("gone "+step.Gone, func() error {
			return e.WaitForTemplateDisappear(t, timeout)
		})
	case "type":
		ab.Type(*step.Type, step.Enter)
	case "key":
		presses := step.Presses
		if presses == 0 {
			presses = 1
		}
		ab.PressKey(step.Key, presses)
	case "hotkey":
		ab.Hotkey(step.Hotkey, step.Modifiers...)
	case "sleep":
		ab.Sleep(secondsToDuration(step.Sleep))
	case "screenshot":
		ab.Screenshot(step.Screenshot)
	}
	return ab.Validate()
}

func (rl *RoutineLoader) resolve(ref string) (cv.Template, error) {
	if rl.resolver != nil && !strings.ContainsAny(ref, `/\`) && !strings.HasSuffix(ref, ".png") {
		return rl.resolver.Lookup(ref)
	}
	return cv.Template{Name: ref, Path: ref}, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
