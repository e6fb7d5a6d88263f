package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
	LogLevelFatal: 4,
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return LogLevel(s)
	}
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn", "warning", "WARNING":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	}
	return LogLevelInfo
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Component string                 `json:"component"`
	Message   string                 `json:"message"`
	Error     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// LogFormatter formats log entries for output
type LogFormatter interface {
	Format(entry *LogEntry) string
}

// TextFormatter formats logs as human-readable text
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *LogEntry) string {
	timestamp := entry.Timestamp.Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf("[%s] %s [%s] %s", timestamp, entry.Level, entry.Component, entry.Message)

	if entry.Error != nil {
		msg += fmt.Sprintf(" | error=%v", entry.Error)
	}

	if len(entry.Context) > 0 {
		msg += " |"
		for _, k := range sortedKeys(entry.Context) {
			msg += fmt.Sprintf(" %s=%v", k, entry.Context[k])
		}
	}

	return msg + "\n"
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *LogEntry) string {
	record := struct {
		*LogEntry
		Error string `json:"error,omitempty"`
	}{LogEntry: entry}
	if entry.Error != nil {
		record.Error = entry.Error.Error()
	}

	data, err := json.Marshal(record)
	if err != nil {
		// Context values that cannot be marshalled fall back to their string form
		ctx := make(map[string]interface{}, len(entry.Context))
		for k, v := range entry.Context {
			ctx[k] = fmt.Sprint(v)
		}
		copied := *entry
		copied.Context = ctx
		record.LogEntry = &copied
		data, _ = json.Marshal(record)
	}
	return string(data) + "\n"
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// output is one destination with its own formatter and threshold
type output struct {
	w         io.Writer
	formatter LogFormatter // nil uses the logger's formatter
	minLevel  LogLevel     // empty accepts everything the logger emits
}

// sink is shared by a logger and the loggers derived from it with Named
type sink struct {
	mu        sync.Mutex
	minLevel  LogLevel
	outputs   []output
	formatter LogFormatter
}

// Logger provides structured logging functionality
type Logger struct {
	component string
	sink      *sink
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		sink: &sink{
			minLevel:  LogLevelInfo,
			outputs:   []output{{w: os.Stdout}},
			formatter: &TextFormatter{},
		},
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{
		component: "nop",
		sink:      &sink{minLevel: LogLevelFatal, formatter: &TextFormatter{}},
	}
}

// Named returns a logger for another component writing to the same outputs
func (l *Logger) Named(component string) *Logger {
	return &Logger{component: component, sink: l.sink}
}

// Component returns the component name
func (l *Logger) Component() string {
	return l.component
}

// SetMinLevel sets the minimum log level to output
func (l *Logger) SetMinLevel(level LogLevel) *Logger {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.minLevel = level
	return l
}

// SetOutput replaces all outputs with w
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.outputs = []output{{w: w}}
	return l
}

// AddFormattedOutput adds an output with its own formatter and minimum level
func (l *Logger) AddFormattedOutput(w io.Writer, formatter LogFormatter, minLevel LogLevel) *Logger {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.outputs = append(l.sink.outputs, output{w: w, formatter: formatter, minLevel: minLevel})
	return l
}

// log writes a log entry
func (l *Logger) log(level LogLevel, message string, err error, context map[string]interface{}) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if !atLeast(level, s.minLevel) {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: l.component,
		Message:   message,
		Error:     err,
		Context:   context,
	}

	var defaultFormatted string
	for _, out := range s.outputs {
		if out.minLevel != "" && !atLeast(level, out.minLevel) {
			continue
		}
		if out.formatter != nil {
			out.w.Write([]byte(out.formatter.Format(entry)))
			continue
		}
		if defaultFormatted == "" {
			defaultFormatted = s.formatter.Format(entry)
		}
		out.w.Write([]byte(defaultFormatted))
	}
}

func atLeast(level, min LogLevel) bool {
	return levelRank[level] >= levelRank[min]
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LogLevelDebug, message, nil, nil)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelDebug, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LogLevelInfo, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelInfo, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LogLevelWarn, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelWarn, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(LogLevelError, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(LogLevelError, message, err, context)
}

// FatalWithContext logs a fatal error message with context
func (l *Logger) FatalWithContext(message string, err error, context map[string]interface{}) {
	l.log(LogLevelFatal, message, err, context)
}

// RunLogs owns the per-day log files of a test run
type RunLogs struct {
	Logger *Logger
	files  []*os.File
}

// Paths returns the files being written
func (r *RunLogs) Paths() []string {
	paths := make([]string, 0, len(r.files))
	for _, f := range r.files {
		paths = append(paths, f.Name())
	}
	return paths
}

// Close closes every log file
func (r *RunLogs) Close() error {
	var first error
	for _, f := range r.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.files = nil
	return first
}

// SetupRunLogs opens test_<date>.log (text), error_<date>.log (errors only)
// and test_<date>.json (JSON lines) in dir, appending to existing files,
// and returns a logger writing to them and to stdout.
func SetupRunLogs(dir string, level LogLevel, day time.Time) (*RunLogs, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	date := day.Format("2006-01-02")
	run := &RunLogs{}
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			run.Close()
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		run.files = append(run.files, f)
		return f, nil
	}

	text, err := open(fmt.Sprintf("test_%s.log", date))
	if err != nil {
		return nil, err
	}
	errs, err := open(fmt.Sprintf("error_%s.log", date))
	if err != nil {
		return nil, err
	}
	jsonFile, err := open(fmt.Sprintf("test_%s.json", date))
	if err != nil {
		return nil, err
	}

	logger := NewLogger("uitest").SetMinLevel(level)
	logger.AddFormattedOutput(text, &TextFormatter{}, "")
	logger.AddFormattedOutput(errs, &TextFormatter{}, LogLevelError)
	logger.AddFormattedOutput(jsonFile, &JSONFormatter{}, "")
	run.Logger = logger
	return run, nil
}
