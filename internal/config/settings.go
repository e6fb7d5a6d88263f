package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TestDataAreas are the sub-directories of the test-data tree holding
// reference images, one per application area
var TestDataAreas = []string{"common", "toolbar", "file_list", "ocr", "scan"}

// Settings holds everything a test run is configured with
type Settings struct {
	// Paths
	TestDataDir   string
	PagesDir      string
	ScreenshotDir string
	LogDir        string
	ReportDir     string

	// Matching
	Confidence          float64
	MatchMethod         string // sad, ssd or ncc
	SearchStrategy      string // neighborhood_first or full_screen
	NeighborhoodRadius  int
	SimilarityThreshold float64

	// Timing
	Timeout         time.Duration
	PollInterval    time.Duration
	ScreenshotDelay time.Duration
	RetryDelay      time.Duration
	MaxRetries      int
	TypeInterval    time.Duration
	DragDuration    time.Duration

	// Logging
	LogLevel  string
	LogToFile bool

	// Journal
	JournalEnabled bool
	JournalPath    string

	// OCR
	OCRLanguage string
}

// Defaults returns the built-in settings
func Defaults() *Settings {
	return &Settings{
		TestDataDir:   "test_data",
		PagesDir:      "pages",
		ScreenshotDir: "screenshots",
		LogDir:        "logs",
		ReportDir:     "reports",

		Confidence:          0.8,
		MatchMethod:         "ssd",
		SearchStrategy:      "neighborhood_first",
		NeighborhoodRadius:  50,
		SimilarityThreshold: 0.95,

		Timeout:         10 * time.Second,
		PollInterval:    200 * time.Millisecond,
		ScreenshotDelay: 500 * time.Millisecond,
		RetryDelay:      time.Second,
		MaxRetries:      3,
		TypeInterval:    0,
		DragDuration:    500 * time.Millisecond,

		LogLevel:  "INFO",
		LogToFile: true,

		JournalEnabled: true,
		JournalPath:    filepath.Join("reports", "journal.db"),

		OCRLanguage: "eng",
	}
}

// Validate checks value ranges
func (s *Settings) Validate() error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %.2f", s.Confidence)
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be within [0,1], got %.2f", s.SimilarityThreshold)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", s.Timeout)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0, got %v", s.PollInterval)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", s.MaxRetries)
	}
	if s.NeighborhoodRadius < 0 {
		return fmt.Errorf("neighborhood radius must not be negative, got %d", s.NeighborhoodRadius)
	}
	switch s.MatchMethod {
	case "sad", "ssd", "ncc":
	default:
		return fmt.Errorf("unknown match method: %s", s.MatchMethod)
	}
	switch s.SearchStrategy {
	case "neighborhood_first", "full_screen":
	default:
		return fmt.Errorf("unknown search strategy: %s", s.SearchStrategy)
	}
	return nil
}

// AreaDir returns the test-data directory of an application area
func (s *Settings) AreaDir(area string) string {
	return filepath.Join(s.TestDataDir, area)
}

// EnsureDirectories creates the test-data tree and the output directories
func (s *Settings) EnsureDirectories() error {
	dirs := []string{s.TestDataDir, s.PagesDir, s.ScreenshotDir, s.LogDir, s.ReportDir}
	for _, area := range TestDataAreas {
		dirs = append(dirs, s.AreaDir(area))
	}
	if s.JournalEnabled && s.JournalPath != "" {
		dirs = append(dirs, filepath.Dir(s.JournalPath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
