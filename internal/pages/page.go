// Package pages exposes registry pages as page objects. A page is only
// configuration: its elements come from the element registry and every
// action goes through the engine.
package pages

import (
	"fmt"
	"time"

	"jordanella.com/desktop-uitest/internal/actions"
	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/uierr"
	"jordanella.com/desktop-uitest/pkg/templates"
)

// areaDomains maps test-data areas to the error domain of their pages
var areaDomains = map[string]uierr.Domain{
	"file_list": uierr.DomainFile,
	"ocr":       uierr.DomainOCR,
	"scan":      uierr.DomainScan,
}

// Page is a named set of elements driven through the engine
type Page struct {
	name     string
	domain   uierr.Domain
	registry *templates.ElementRegistry
	engine   *actions.Engine
	timeout  time.Duration
}

// Open returns the page called name. timeout bounds every wait on the page.
func Open(engine *actions.Engine, registry *templates.ElementRegistry, name string, timeout time.Duration) (*Page, error) {
	area, ok := registry.Area(name)
	if !ok {
		return nil, fmt.Errorf("page '%s' not found in registry", name)
	}
	return &Page{
		name:     name,
		domain:   areaDomains[area],
		registry: registry,
		engine:   engine,
		timeout:  timeout,
	}, nil
}

// Name returns the page name
func (p *Page) Name() string {
	return p.name
}

// Domain returns the error domain of the page, empty for general pages
func (p *Page) Domain() uierr.Domain {
	return p.domain
}

// Element resolves an element of the page
func (p *Page) Element(name string) (cv.Template, error) {
	return p.registry.Element(p.name, name)
}

// Find waits for element and returns its match
func (p *Page) Find(element string) (*cv.MatchResult, error) {
	t, err := p.Element(element)
	if err != nil {
		return nil, err
	}
	return p.engine.FindTemplate(t, p.timeout)
}

// Click waits for element and clicks its centre
func (p *Page) Click(element string) error {
	t, err := p.Element(element)
	if err != nil {
		return err
	}
	return p.engine.ClickTemplate(t, p.timeout, actions.ClickOptions{})
}

// DoubleClick waits for element and double-clicks its centre
func (p *Page) DoubleClick(element string) error {
	t, err := p.Element(element)
	if err != nil {
		return err
	}
	return p.engine.ClickTemplate(t, p.timeout, actions.ClickOptions{Clicks: 2})
}

// Wait reports whether element appears within the page timeout
func (p *Page) Wait(element string) bool {
	t, err := p.Element(element)
	if err != nil {
		p.engine.Logger().Error("unknown element", err)
		return false
	}
	return p.engine.WaitForTemplate(t, p.timeout)
}

// Visible checks once whether element is on screen
func (p *Page) Visible(element string) bool {
	t, err := p.Element(element)
	if err != nil {
		return false
	}
	return p.engine.TemplateExists(t)
}

// Type types text into the focused control
func (p *Page) Type(text string) error {
	return p.engine.Type(text)
}

// PressKey taps key once
func (p *Page) PressKey(key string) error {
	return p.engine.PressKey(key, 1, 0)
}

// ReadText reads the text inside element
func (p *Page) ReadText(element string) (string, error) {
	t, err := p.Element(element)
	if err != nil {
		return "", err
	}
	return p.engine.ReadTemplateText(t, p.timeout)
}

// Do runs a named page operation. On pages of the file, OCR and scan areas
// a failure is re-tagged with the page domain and operation name.
func (p *Page) Do(operation string, fn func(*Page) error) error {
	err := fn(p)
	if err == nil || p.domain == "" {
		return err
	}
	return &uierr.OperationError{
		Domain:    p.domain,
		Operation: operation,
		Target:    p.name,
		Err:       err,
	}
}
