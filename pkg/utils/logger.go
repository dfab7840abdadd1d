package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LogLevel represents the verbosity level of logging
type LogLevel int

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

// String returns a string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case ErrorLevel:
		return "ERROR"
	case WarningLevel:
		return "WARNING"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	case TraceLevel:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// logrusLevel maps a LogLevel onto the logrus level of the same severity
func (l LogLevel) logrusLevel() log.Level {
	switch l {
	case ErrorLevel:
		return log.ErrorLevel
	case WarningLevel:
		return log.WarnLevel
	case InfoLevel:
		return log.InfoLevel
	case DebugLevel:
		return log.DebugLevel
	default:
		return log.TraceLevel
	}
}

// VerbosityLevel converts a -v count into a level
func VerbosityLevel(count int) LogLevel {
	switch {
	case count <= 0:
		return InfoLevel
	case count == 1:
		return DebugLevel
	default:
		return TraceLevel
	}
}

// Logger wraps a logrus logger with indentation and per-stage helpers
type Logger struct {
	Level      LogLevel
	Prefix     string
	IndentSize int
	indent     int // Current indentation level
	entry      *log.Logger
	closer     io.Closer
}

// NewLogger creates a new logger writing to stderr with the specified verbosity level
func NewLogger(level LogLevel) *Logger {
	base := log.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(level.logrusLevel())
	base.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	return &Logger{
		Level:      level,
		IndentSize: 2,
		entry:      base,
	}
}

// NewFileLogger creates a new logger that writes to a file
func NewFileLogger(level LogLevel, filename string) (*Logger, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	l := NewLogger(level)
	l.entry.SetOutput(file)
	l.entry.SetFormatter(&log.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	l.closer = file
	return l, nil
}

// NewDiscardLogger returns a logger that drops everything, for tests and library callers
func NewDiscardLogger() *Logger {
	l := NewLogger(ErrorLevel)
	l.entry.SetOutput(io.Discard)
	return l
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.SetOutput(w)
}

// SetColors forces coloured output on or off
func (l *Logger) SetColors(enabled bool) {
	if f, ok := l.entry.Formatter.(*log.TextFormatter); ok {
		f.ForceColors = enabled
		f.DisableColors = !enabled
	}
}

// SetLevel changes the verbosity
func (l *Logger) SetLevel(level LogLevel) {
	l.Level = level
	l.entry.SetLevel(level.logrusLevel())
}

// SetPrefix sets a prefix for all log messages
func (l *Logger) SetPrefix(prefix string) {
	l.Prefix = prefix
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Indent increases the indentation level
func (l *Logger) Indent() {
	l.indent++
}

// Outdent decreases the indentation level
func (l *Logger) Outdent() {
	if l.indent > 0 {
		l.indent--
	}
}

// ResetIndent resets the indentation to zero
func (l *Logger) ResetIndent() {
	l.indent = 0
}

// log logs a message at the specified level
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level > l.Level {
		return
	}

	var builder strings.Builder
	if l.Prefix != "" {
		builder.WriteString(l.Prefix)
		builder.WriteString(": ")
	}
	if l.indent > 0 {
		builder.WriteString(strings.Repeat(" ", l.indent*l.IndentSize))
	}
	builder.WriteString(fmt.Sprintf(format, args...))

	l.entry.Log(level.logrusLevel(), builder.String())
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(WarningLevel, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, format, args...)
}

// Trace logs a trace message (highest verbosity)
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(TraceLevel, format, args...)
}

// Parse logs netlist parsing progress
func (l *Logger) Parse(format string, args ...interface{}) {
	l.log(DebugLevel, "PARSE: "+format, args...)
}

// Graph logs dependency graph construction
func (l *Logger) Graph(format string, args ...interface{}) {
	l.log(DebugLevel, "GRAPH: "+format, args...)
}

// Rank logs rank propagation steps
func (l *Logger) Rank(format string, args ...interface{}) {
	l.log(TraceLevel, "RANK: "+format, args...)
}

// Encode logs gate encoding steps
func (l *Logger) Encode(format string, args ...interface{}) {
	l.log(TraceLevel, "ENCODE: "+format, args...)
}

// Match logs cross-circuit matching decisions
func (l *Logger) Match(format string, args ...interface{}) {
	l.log(DebugLevel, "MATCH: "+format, args...)
}
