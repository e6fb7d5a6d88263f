package locator

import (
	"sync"

	"jordanella.com/desktop-uitest/internal/cv"
)

// PositionMemory remembers the last centre at which each image was found
type PositionMemory struct {
	mu        sync.RWMutex
	positions map[string]cv.Point
}

// NewPositionMemory creates an empty memory
func NewPositionMemory() *PositionMemory {
	return &PositionMemory{positions: make(map[string]cv.Point)}
}

// Get returns the remembered centre for path
func (m *PositionMemory) Get(path string) (cv.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[path]
	return p, ok
}

// Set records the centre at which path was found
func (m *PositionMemory) Set(path string, p cv.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[path] = p
}

// Forget drops the entry for path
func (m *PositionMemory) Forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, path)
}

// Clear drops every remembered position
func (m *PositionMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = make(map[string]cv.Point)
}

// Len returns the number of remembered positions
func (m *PositionMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}
