package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"jordanella.com/desktop-uitest/internal/cv"
)

// ElementRegistry maps page and element names to reference images loaded
// from YAML files. It replaces per-page classes: a page is just a named
// set of elements living in one area of the test-data tree.
type ElementRegistry struct {
	mu                sync.RWMutex
	pages             map[string]*PageEntry
	basePath          string // Root of the test-data tree
	defaultConfidence float64
}

// PageEntry is a loaded page
type PageEntry struct {
	Name     string
	Area     string
	Elements map[string]cv.Template
}

// ElementDefinition represents an element in the YAML file. It may be written
// as a bare file name or as a mapping.
type ElementDefinition struct {
	Path       string     `yaml:"path"`
	Confidence float64    `yaml:"confidence,omitempty"`
	Region     *cv.Region `yaml:"region,omitempty"`
}

// UnmarshalYAML accepts both `name: file.png` and `name: {path: file.png, ...}`
func (d *ElementDefinition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Path = value.Value
		return nil
	}
	type plain ElementDefinition
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = ElementDefinition(p)
	return nil
}

// PageDefinition represents a page in the YAML file
type PageDefinition struct {
	Name     string                       `yaml:"name"`
	Area     string                       `yaml:"area"`
	Elements map[string]ElementDefinition `yaml:"elements"`
}

// ElementFile represents the structure of an element YAML file
type ElementFile struct {
	Pages []PageDefinition `yaml:"pages"`
}

// NewElementRegistry creates a registry resolving image paths under basePath
func NewElementRegistry(basePath string) *ElementRegistry {
	return &ElementRegistry{
		pages:    make(map[string]*PageEntry),
		basePath: basePath,
	}
}

// WithDefaultConfidence sets the confidence given to elements that do not
// declare one. Zero leaves it to the engine default.
func (er *ElementRegistry) WithDefaultConfidence(confidence float64) *ElementRegistry {
	er.defaultConfidence = confidence
	return er
}

// LoadFromFile loads pages from a YAML file
func (er *ElementRegistry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read element file %s: %w", filePath, err)
	}
	return er.LoadFromBytes(data)
}

// LoadFromBytes loads pages from YAML content
func (er *ElementRegistry) LoadFromBytes(data []byte) error {
	var file ElementFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal element YAML: %w", err)
	}

	// Validate everything before touching the registry
	entries := make([]*PageEntry, 0, len(file.Pages))
	for i, def := range file.Pages {
		if def.Name == "" {
			return fmt.Errorf("page %d: name cannot be empty", i+1)
		}
		entry := &PageEntry{
			Name:     def.Name,
			Area:     def.Area,
			Elements: make(map[string]cv.Template, len(def.Elements)),
		}
		for name, el := range def.Elements {
			if el.Path == "" {
				return fmt.Errorf("page %s element %s: path cannot be empty", def.Name, name)
			}
			if el.Confidence < 0 || el.Confidence > 1 {
				return fmt.Errorf("page %s element %s: confidence %.2f out of range [0,1]", def.Name, name, el.Confidence)
			}
			if el.Region != nil {
				if err := el.Region.Validate(); err != nil {
					return fmt.Errorf("page %s element %s: %w", def.Name, name, err)
				}
			}
			entry.Elements[name] = er.template(def.Area, name, el)
		}
		entries = append(entries, entry)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	for _, entry := range entries {
		if existing, ok := er.pages[entry.Name]; ok {
			// Later files extend a page rather than replacing it
			for name, t := range entry.Elements {
				existing.Elements[name] = t
			}
			if entry.Area != "" {
				existing.Area = entry.Area
			}
			continue
		}
		er.pages[entry.Name] = entry
	}
	return nil
}

// LoadFromDirectory loads all YAML files from a directory
func (er *ElementRegistry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read element directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		if err := er.LoadFromFile(filepath.Join(dirPath, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d element files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

func (er *ElementRegistry) template(area, name string, def ElementDefinition) cv.Template {
	path := def.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(er.basePath, area, path)
	}
	confidence := def.Confidence
	if confidence == 0 {
		confidence = er.defaultConfidence
	}
	return cv.Template{
		Name:       name,
		Path:       path,
		Confidence: confidence,
		Region:     def.Region,
	}
}

// Element retrieves an element of a page
func (er *ElementRegistry) Element(page, name string) (cv.Template, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	entry, ok := er.pages[page]
	if !ok {
		return cv.Template{}, fmt.Errorf("page '%s' not found in registry", page)
	}
	t, ok := entry.Elements[name]
	if !ok {
		return cv.Template{}, fmt.Errorf("element '%s' not found on page '%s'", name, page)
	}
	return t, nil
}

// Lookup resolves a "page.element" reference
func (er *ElementRegistry) Lookup(ref string) (cv.Template, error) {
	page, name, ok := strings.Cut(ref, ".")
	if !ok {
		return cv.Template{}, fmt.Errorf("element reference '%s' must be page.element", ref)
	}
	return er.Element(page, name)
}

// Register adds an element to a page programmatically, creating the page if needed
func (er *ElementRegistry) Register(page string, template cv.Template) error {
	if page == "" || template.Name == "" {
		return fmt.Errorf("page and element name cannot be empty")
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	entry, ok := er.pages[page]
	if !ok {
		entry = &PageEntry{Name: page, Elements: make(map[string]cv.Template)}
		er.pages[page] = entry
	}
	entry.Elements[template.Name] = template
	return nil
}

// HasPage checks if a page exists in the registry
func (er *ElementRegistry) HasPage(name string) bool {
	er.mu.RLock()
	defer er.mu.RUnlock()

	_, ok := er.pages[name]
	return ok
}

// Area returns the test-data area of a page
func (er *ElementRegistry) Area(page string) (string, bool) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	entry, ok := er.pages[page]
	if !ok {
		return "", false
	}
	return entry.Area, true
}

// Pages returns all page names, sorted
func (er *ElementRegistry) Pages() []string {
	er.mu.RLock()
	defer er.mu.RUnlock()

	names := make([]string, 0, len(er.pages))
	for name := range er.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Elements returns the element names of a page, sorted
func (er *ElementRegistry) Elements(page string) []string {
	er.mu.RLock()
	defer er.mu.RUnlock()

	entry, ok := er.pages[page]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(entry.Elements))
	for name := range entry.Elements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of elements across all pages
func (er *ElementRegistry) Count() int {
	er.mu.RLock()
	defer er.mu.RUnlock()

	n := 0
	for _, entry := range er.pages {
		n += len(entry.Elements)
	}
	return n
}

// Paths returns every distinct image path, sorted
func (er *ElementRegistry) Paths() []string {
	er.mu.RLock()
	defer er.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, entry := range er.pages {
		for _, t := range entry.Elements {
			seen[t.Path] = struct{}{}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Preload decodes every registered image into cache
func (er *ElementRegistry) Preload(cache *ImageCache) error {
	return cache.Preload(er.Paths()...)
}

// MissingImages lists registered paths that do not exist on disk
func (er *ElementRegistry) MissingImages() []string {
	var missing []string
	for _, p := range er.Paths() {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}
