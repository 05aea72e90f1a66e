package logger

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the severity of a log message.
// The order here defines their numerical value (TRACE=0, DEBUG=1, etc.)
// A logger set to INFO will show INFO, WARN, ERROR, SUCCESS, but NOT DEBUG.
type LogLevel int

const (
	TRACE   LogLevel = iota // 0 - Every single request
	DEBUG                   // 1 - Detailed debugging information
	INFO                    // 2 - General information
	WARN                    // 3 - Warnings
	ERROR                   // 4 - Errors
	SUCCESS                 // 5 - Findings
)

// Logger holds the loggers for different levels and a mutex for concurrent writes.
// Everything goes to a single writer (stderr by default) so stdout stays free
// for the JSON report.
type Logger struct {
	infoLogger    *log.Logger
	warnLogger    *log.Logger
	errorLogger   *log.Logger
	debugLogger   *log.Logger
	traceLogger   *log.Logger
	successLogger *log.Logger
	mu            sync.Mutex
	minLevel      LogLevel
}

// NewLogger creates a logger writing to stderr.
func NewLogger(minLevel LogLevel) *Logger {
	return NewLoggerWithWriter(minLevel, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w. Level prefixes are
// coloured only when w itself is a terminal.
func NewLoggerWithWriter(minLevel LogLevel, w io.Writer) *Logger {
	flags := log.Ldate | log.Ltime
	colored := colorEnabled(w)
	return &Logger{
		infoLogger:    log.New(w, prefix(color.FgCyan, "[INFO] ", colored), flags),
		warnLogger:    log.New(w, prefix(color.FgYellow, "[WARN] ", colored), flags),
		errorLogger:   log.New(w, prefix(color.FgRed, "[ERROR] ", colored), flags),
		debugLogger:   log.New(w, prefix(color.FgHiBlack, "[DEBUG] ", colored), flags),
		traceLogger:   log.New(w, prefix(color.FgHiBlack, "[TRACE] ", colored), flags),
		successLogger: log.New(w, prefix(color.FgGreen, "[SUCCESS] ", colored), flags),
		minLevel:      minLevel,
	}
}

// colorEnabled reports whether w is a terminal. NO_COLOR and TERM=dumb win.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func prefix(attr color.Attribute, label string, colored bool) string {
	c := color.New(attr)
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(label)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewLoggerWithWriter(ERROR+SUCCESS, io.Discard)
}

// log prints a message if its level is greater than or equal to the logger's minLevel.
func (l *Logger) log(level LogLevel, logger *log.Logger, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level >= l.minLevel {
		logger.Printf(format, v...)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(INFO, l.infoLogger, format, v...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(WARN, l.warnLogger, format, v...)
}

// Error logs an error message.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(ERROR, l.errorLogger, format, v...)
}

// Debug logs a debug message. Only active if minLevel is DEBUG or lower.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(DEBUG, l.debugLogger, format, v...)
}

// Trace logs a trace message. Only active if minLevel is TRACE.
func (l *Logger) Trace(format string, v ...interface{}) {
	l.log(TRACE, l.traceLogger, format, v...)
}

// Success logs a finding.
func (l *Logger) Success(format string, v ...interface{}) {
	l.log(SUCCESS, l.successLogger, format, v...)
}

// SetMinLevel sets the minimum logging level.
func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}
