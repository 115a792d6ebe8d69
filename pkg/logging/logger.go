// Package logging provides a structured JSON logger used by all
// weather-pipeline binaries.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Fields carries structured key/value context for a log entry.
type Fields map[string]interface{}

// Logger emits line-delimited JSON log entries with a minimum level filter.
type Logger struct {
	mu      sync.Mutex
	level   Level
	output  io.Writer
	service string
	version string
}

type entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
}

// New creates a logger writing to stdout.
func New(service, version string, level Level) *Logger {
	return &Logger{
		level:   level,
		output:  os.Stdout,
		service: service,
		version: version,
	}
}

// SetOutput redirects log output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, DebugLevel, msg, fields, nil)
}

func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, InfoLevel, msg, fields, nil)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, WarnLevel, msg, fields, nil)
}

func (l *Logger) Error(ctx context.Context, msg string, fields Fields, err error) {
	l.log(ctx, ErrorLevel, msg, fields, err)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(ctx context.Context, msg string, fields Fields, err error) {
	l.log(ctx, FatalLevel, msg, fields, err)
	os.Exit(1)
}

func (l *Logger) log(_ context.Context, level Level, msg string, fields Fields, err error) {
	if level < l.level {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Version:   l.version,
		Message:   msg,
		Fields:    fields,
	}

	if err != nil {
		e.Error = err.Error()
	}

	// Caller location helps when chasing storage failures.
	if level >= ErrorLevel {
		if _, file, line, ok := runtime.Caller(2); ok {
			e.File = file
			e.Line = line
		}
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s (log marshal failed: %v)\n",
			e.Timestamp.Format(time.RFC3339), e.Level, msg, marshalErr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}
