package log

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

func levelOf(l logrus.Level) Level {
	switch {
	case l >= logrus.DebugLevel:
		return LevelDebug
	case l == logrus.InfoLevel:
		return LevelInfo
	case l == logrus.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}

const timestampLayout = "2006-01-02 15:04:05"

// LineFormatter renders one human-readable log line. The message already
// carries any structured fields.
type LineFormatter interface {
	Format(message string, level Level) string
}

// PlainFormatter renders "[timestamp] LEVEL: message" without escape codes.
type PlainFormatter struct {
	Now func() time.Time
}

func (f PlainFormatter) Format(message string, level Level) string {
	return fmt.Sprintf("[%s] %s: %s", stamp(f.Now), level, message)
}

// ColorFormatter renders the same layout as PlainFormatter with the level
// and, for warnings and errors, the message colored with ANSI escapes.
type ColorFormatter struct {
	Now    func() time.Time
	time   lipgloss.Style
	levels map[Level]lipgloss.Style
}

// NewColorFormatter builds a formatter that always emits ANSI colors, even
// when w is not a terminal; color was asked for explicitly.
func NewColorFormatter(w io.Writer) *ColorFormatter {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI)
	return &ColorFormatter{
		time: r.NewStyle().Faint(true),
		levels: map[Level]lipgloss.Style{
			LevelDebug: r.NewStyle().Foreground(lipgloss.Color("8")),
			LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("4")),
			LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
			LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

func (f *ColorFormatter) Format(message string, level Level) string {
	style := f.levels[level]
	if level >= LevelWarn {
		message = style.Render(message)
	}
	return fmt.Sprintf("%s %s: %s", f.time.Render("["+stamp(f.Now)+"]"), style.Render(level.String()), message)
}

func stamp(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return now().Format(timestampLayout)
}

// lineAdapter lets a LineFormatter drive logrus output.
type lineAdapter struct {
	line LineFormatter
}

func (a *lineAdapter) Format(e *logrus.Entry) ([]byte, error) {
	msg := e.Message
	if len(e.Data) > 0 {
		msg += " " + renderFields(e.Data)
	}
	return []byte(a.line.Format(msg, levelOf(e.Level)) + "\n"), nil
}

func renderFields(data logrus.Fields) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg:  "message",
			logrus.FieldKeyTime: "timestamp",
		},
	}
}

// fileHook mirrors every entry into a log file using plain formatting so the
// file never receives escape codes.
type fileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}
