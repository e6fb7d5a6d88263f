package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Environment variables that override settings.ini
const (
	EnvTimeout     = "UITEST_TIMEOUT"
	EnvInterval    = "UITEST_INTERVAL"
	EnvConfidence  = "UITEST_CONFIDENCE"
	EnvLogLevel    = "UITEST_LOG_LEVEL"
	EnvTestData    = "UITEST_TEST_DATA"
	EnvScreenshots = "UITEST_SCREENSHOTS"
	EnvJournal     = "UITEST_JOURNAL"
	EnvStrategy    = "UITEST_STRATEGY"
)

// Load reads settings.ini (a missing file means defaults), then applies the
// variables from envFile (if it exists) and the process environment.
func Load(iniPath, envFile string) (*Settings, error) {
	settings := Defaults()
	if iniPath != "" {
		if _, err := os.Stat(iniPath); err == nil {
			loaded, err := LoadFromINI(iniPath)
			if err != nil {
				return nil, err
			}
			settings = loaded
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			// Existing process variables win over the file
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	if err := ApplyEnv(settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// LoadFromINI loads settings from an INI file, defaulting every missing key
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	d := Defaults()
	s := &Settings{}

	paths := cfg.Section("Paths")
	s.TestDataDir = paths.Key("testData").MustString(d.TestDataDir)
	s.PagesDir = paths.Key("pages").MustString(d.PagesDir)
	s.ScreenshotDir = paths.Key("screenshots").MustString(d.ScreenshotDir)
	s.LogDir = paths.Key("logs").MustString(d.LogDir)
	s.ReportDir = paths.Key("reports").MustString(d.ReportDir)

	matching := cfg.Section("Matching")
	s.Confidence = matching.Key("confidence").MustFloat64(d.Confidence)
	s.MatchMethod = strings.ToLower(matching.Key("method").MustString(d.MatchMethod))
	s.SearchStrategy = matching.Key("strategy").MustString(d.SearchStrategy)
	s.NeighborhoodRadius = matching.Key("neighborhoodRadius").MustInt(d.NeighborhoodRadius)
	s.SimilarityThreshold = matching.Key("similarityThreshold").MustFloat64(d.SimilarityThreshold)

	// Durations are written in seconds
	timing := cfg.Section("Timing")
	s.Timeout = seconds(timing.Key("timeout").MustFloat64(d.Timeout.Seconds()))
	s.PollInterval = seconds(timing.Key("interval").MustFloat64(d.PollInterval.Seconds()))
	s.ScreenshotDelay = seconds(timing.Key("screenshotDelay").MustFloat64(d.ScreenshotDelay.Seconds()))
	s.RetryDelay = seconds(timing.Key("retryDelay").MustFloat64(d.RetryDelay.Seconds()))
	s.MaxRetries = timing.Key("maxRetries").MustInt(d.MaxRetries)
	s.TypeInterval = seconds(timing.Key("typeInterval").MustFloat64(d.TypeInterval.Seconds()))
	s.DragDuration = seconds(timing.Key("dragDuration").MustFloat64(d.DragDuration.Seconds()))

	logging := cfg.Section("Logging")
	s.LogLevel = logging.Key("level").MustString(d.LogLevel)
	s.LogToFile = logging.Key("toFile").MustBool(d.LogToFile)

	journal := cfg.Section("Journal")
	s.JournalEnabled = journal.Key("enabled").MustBool(d.JournalEnabled)
	s.JournalPath = journal.Key("path").MustString(d.JournalPath)

	s.OCRLanguage = cfg.Section("OCR").Key("language").MustString(d.OCRLanguage)

	return s, nil
}

// SaveToINI saves settings to an INI file
func SaveToINI(s *Settings, path string) error {
	cfg := ini.Empty()

	paths := cfg.Section("Paths")
	paths.Key("testData").SetValue(s.TestDataDir)
	paths.Key("pages").SetValue(s.PagesDir)
	paths.Key("screenshots").SetValue(s.ScreenshotDir)
	paths.Key("logs").SetValue(s.LogDir)
	paths.Key("reports").SetValue(s.ReportDir)

	matching := cfg.Section("Matching")
	matching.Key("confidence").SetValue(formatFloat(s.Confidence))
	matching.Key("method").SetValue(s.MatchMethod)
	matching.Key("strategy").SetValue(s.SearchStrategy)
	matching.Key("neighborhoodRadius").SetValue(fmt.Sprintf("%d", s.NeighborhoodRadius))
	matching.Key("similarityThreshold").SetValue(formatFloat(s.SimilarityThreshold))

	timing := cfg.Section("Timing")
	timing.Key("timeout").SetValue(formatFloat(s.Timeout.Seconds()))
	timing.Key("interval").SetValue(formatFloat(s.PollInterval.Seconds()))
	timing.Key("screenshotDelay").SetValue(formatFloat(s.ScreenshotDelay.Seconds()))
	timing.Key("retryDelay").SetValue(formatFloat(s.RetryDelay.Seconds()))
	timing.Key("maxRetries").SetValue(fmt.Sprintf("%d", s.MaxRetries))
	timing.Key("typeInterval").SetValue(formatFloat(s.TypeInterval.Seconds()))
	timing.Key("dragDuration").SetValue(formatFloat(s.DragDuration.Seconds()))

	logging := cfg.Section("Logging")
	logging.Key("level").SetValue(s.LogLevel)
	logging.Key("toFile").SetValue(fmt.Sprintf("%t", s.LogToFile))

	journal := cfg.Section("Journal")
	journal.Key("enabled").SetValue(fmt.Sprintf("%t", s.JournalEnabled))
	journal.Key("path").SetValue(s.JournalPath)

	cfg.Section("OCR").Key("language").SetValue(s.OCRLanguage)

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from UITEST_* environment variables
func ApplyEnv(s *Settings) error {
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		s.Timeout = d
	}
	if v := os.Getenv(EnvInterval); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInterval, err)
		}
		s.PollInterval = d
	}
	if v := os.Getenv(EnvConfidence); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConfidence, err)
		}
		s.Confidence = f
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvTestData); v != "" {
		s.TestDataDir = v
	}
	if v := os.Getenv(EnvScreenshots); v != "" {
		s.ScreenshotDir = v
	}
	if v := os.Getenv(EnvJournal); v != "" {
		if strings.EqualFold(v, "off") || strings.EqualFold(v, "false") {
			s.JournalEnabled = false
		} else {
			s.JournalEnabled = true
			s.JournalPath = v
		}
	}
	if v := os.Getenv(EnvStrategy); v != "" {
		s.SearchStrategy = v
	}
	return nil
}

// parseSeconds accepts plain seconds ("2.5") or a Go duration ("2500ms")
func parseSeconds(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return seconds(f), nil
	}
	return time.ParseDuration(v)
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
