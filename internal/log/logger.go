// Package log is the leveled, structured logger used across tagsortd. It
// wraps logrus and renders human-readable lines through a LineFormatter, so
// the plain and colored outputs are chosen once at startup.
package log

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"tagsortd/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug atomic.Bool
	logger  = NewLogger()
)

// Field is a single structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

type options struct {
	out      io.Writer
	json     bool
	color    bool
	debug    bool
	filePath string
	line     LineFormatter
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sets the destination writer (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithColor selects the ANSI colored line formatter.
func WithColor(enabled bool) Option {
	return func(o *options) { o.color = enabled }
}

// WithDebug enables debug lines for this logger regardless of SetDebug.
func WithDebug(enabled bool) Option {
	return func(o *options) { o.debug = enabled }
}

// WithFile additionally appends plain lines to the file at path.
func WithFile(path string) Option {
	return func(o *options) { o.filePath = path }
}

// WithFormatter overrides the line formatter.
func WithFormatter(f LineFormatter) Option {
	return func(o *options) { o.line = f }
}

// Logger is a leveled logger carrying a set of structured fields.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
	debug bool
}

// NewLogger creates a logger. Opening the log file is best effort: on
// failure the logger writes to its primary output only and says so.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	base := logrus.New()
	base.SetOutput(o.out)
	base.SetLevel(logrus.TraceLevel)

	switch {
	case o.json:
		base.SetFormatter(jsonFormatter())
	case o.line != nil:
		base.SetFormatter(&lineAdapter{line: o.line})
	case o.color:
		base.SetFormatter(&lineAdapter{line: NewColorFormatter(o.out)})
	default:
		base.SetFormatter(&lineAdapter{line: PlainFormatter{}})
	}

	l := &Logger{entry: logrus.NewEntry(base), debug: o.debug}

	if o.filePath != "" {
		f, err := os.OpenFile(o.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			l.With(F("path", o.filePath), F("error", err)).Warn("Failed to open log file, logging to output only")
			return l
		}
		var fileFormatter logrus.Formatter = &lineAdapter{line: PlainFormatter{}}
		if o.json {
			fileFormatter = jsonFormatter()
		}
		base.AddHook(&fileHook{w: f, formatter: fileFormatter})
		l.file = f
	}

	return l
}

// Configure replaces the package-level logger.
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Default returns the package-level logger.
func Default() *Logger {
	return logger
}

// SetDebug toggles debug output for every logger.
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// With returns a child logger carrying the additional fields.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), file: l.file, debug: l.debug}
}

// WithError attaches err and, for application errors, its kind and subject.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l.With(F("error", "<nil>"))
	}

	fields := []Field{F("error", err.Error())}
	if kind := errors.KindOf(err); kind != errors.Unknown {
		fields = append(fields, F("error_kind", kind.String()))
	}

	var fileErr *errors.FileError
	if errors.As(err, &fileErr) && fileErr.Path() != "" {
		fields = append(fields, F("path", fileErr.Path()))
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields = append(fields, F("param", configErr.Param()))
	}
	var ruleErr *errors.RuleError
	if errors.As(err, &ruleErr) {
		fields = append(fields, F("rule_index", ruleErr.Index()))
	}
	return l.With(fields...)
}

func (l *Logger) debugEnabled() bool {
	return l.debug || isDebug.Load()
}

// Debug logs msg when debug output is enabled.
func (l *Logger) Debug(msg string) {
	if l.debugEnabled() {
		l.entry.Debug(msg)
	}
}

// Debugf logs a formatted message when debug output is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.debugEnabled() {
		l.entry.Debug(fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Info(msg string) {
	l.entry.Info(msg)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(msg string) {
	l.entry.Error(msg)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(format, args...))
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// LogWithFields returns the package-level logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return logger.With(fields...)
}

// LogWithError returns the package-level logger with err attached.
func LogWithError(err error) *Logger {
	return logger.WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	logger.WithError(err).Error(msg)
}

func Debug(msg string) { logger.Debug(msg) }

func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }

func Info(msg string) { logger.Info(msg) }

func Infof(format string, args ...interface{}) { logger.Infof(format, args...) }

func Warn(msg string) { logger.Warn(msg) }

func Warnf(format string, args ...interface{}) { logger.Warnf(format, args...) }

func Error(msg string) { logger.Error(msg) }

func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }
