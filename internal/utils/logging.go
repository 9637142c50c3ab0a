package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	TraceLevel LogLevel = iota + 1
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
	NoLevel
)

func (l LogLevel) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
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
	case PanicLevel:
		return "PANIC"
	case NoLevel:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string (trace, debug, info, warn, error, disable) to a level.
// Unknown values fall back to InfoLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	case "panic":
		return PanicLevel
	case "none", "disable", "disabled", "off":
		return NoLevel
	default:
		return InfoLevel
	}
}

var (
	colorReset     = "\033[0m"
	colorBold      = "\033[1m"
	colorDim       = "\033[2m"
	colorRed       = "\033[31m"
	colorGreen     = "\033[32m"
	colorYellow    = "\033[33m"
	colorBlue      = "\033[34m"
	colorMagenta   = "\033[35m"
	colorCyan      = "\033[36m"
	colorBrightRed = "\033[91m"
)

type LogFormatter interface {
	Format(entry *LogEntry) string
}

type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      LogLevel       `json:"level"`
	Message    string         `json:"message"`
	Prefix     string         `json:"prefix,omitempty"`
	File       string         `json:"file,omitempty"`
	Line       int            `json:"line,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Error      error          `json:"error,omitempty"`
	StackTrace string         `json:"stack_trace,omitempty"`
}

// Logger is a small leveled logger shared by the api client and the dispatcher.
// Derived loggers (WithPrefix, WithField, ...) share the output and its lock.
type Logger struct {
	mu         *sync.Mutex
	level      LogLevel
	prefix     string
	output     io.Writer
	formatter  LogFormatter
	fields     map[string]any
	showCaller bool
}

type LoggerConfig struct {
	Level      LogLevel
	Prefix     string
	Output     io.Writer
	Formatter  LogFormatter
	Color      bool
	ShowCaller bool
	JSON       bool
}

func NewLogger(prefix string) *Logger {
	return NewLoggerWithConfig(&LoggerConfig{Prefix: prefix, ShowCaller: true})
}

func NewLoggerWithConfig(config *LoggerConfig) *Logger {
	if config == nil {
		config = &LoggerConfig{}
	}
	if config.Level == 0 {
		config.Level = InfoLevel
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}
	if config.Formatter == nil {
		if config.JSON {
			config.Formatter = &JSONFormatter{}
		} else {
			config.Formatter = &TextFormatter{NoColor: !config.Color || !isTerminal(config.Output)}
		}
	}

	return &Logger{
		mu:         &sync.Mutex{},
		level:      config.Level,
		prefix:     config.Prefix,
		output:     config.Output,
		formatter:  config.Formatter,
		fields:     make(map[string]any),
		showCaller: config.ShowCaller,
	}
}

func (l *Logger) clone() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := *l
	c.fields = maps.Clone(l.fields)
	return &c
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	c := l.clone()
	c.prefix = prefix
	return c
}

func (l *Logger) WithField(key string, value any) *Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	c := l.clone()
	maps.Copy(c.fields, fields)
	return c
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err)
}

func (l *Logger) SetLevel(level LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level == 0 {
		level = InfoLevel
	}
	l.level = level
	return l
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) Prefix() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prefix
}

func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	if tf, ok := l.formatter.(*TextFormatter); ok && !isTerminal(w) {
		tf.NoColor = true
	}
	return l
}

func (l *Logger) SetFormatter(formatter LogFormatter) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.formatter = formatter
	return l
}

// core fn to log messages
func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	enabled := level >= l.level && l.level != NoLevel
	l.mu.Unlock()
	if !enabled {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	entry := &LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Prefix:  l.prefix,
		Fields:  maps.Clone(l.fields),
	}
	if err, ok := entry.Fields["error"].(error); ok {
		entry.Error = err
		delete(entry.Fields, "error")
	}

	if l.showCaller {
		var pcs [8]uintptr
		n := runtime.Callers(3, pcs[:])
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()
			if !strings.HasSuffix(frame.File, "logging.go") {
				entry.File = filepath.Base(frame.File)
				entry.Line = frame.Line
				break
			}
			if !more {
				break
			}
		}
	}

	l.write(entry)
}

func (l *Logger) write(entry *LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.output, l.formatter.Format(entry))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}

func (l *Logger) Trace(msg string, args ...any) { l.log(TraceLevel, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(DebugLevel, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(InfoLevel, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(WarnLevel, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(ErrorLevel, msg, args...) }

func (l *Logger) Fatal(msg string, args ...any) {
	l.log(FatalLevel, msg, args...)
	os.Exit(1)
}

// Panic logs a recovered panic value together with a condensed stack of the panicking goroutine.
func (l *Logger) Panic(recovered any, msg string, args ...any) {
	if l.Level() == NoLevel {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	stack := make([]byte, 8192)
	n := runtime.Stack(stack, false)

	l.write(&LogEntry{
		Time:       time.Now(),
		Level:      PanicLevel,
		Message:    fmt.Sprintf("%s: %v", msg, recovered),
		Prefix:     l.prefix,
		Fields:     maps.Clone(l.fields),
		StackTrace: formatPanicStack(string(stack[:n])),
	})
}

func formatPanicStack(stack string) string {
	lines := strings.Split(stack, "\n")
	var out strings.Builder
	out.WriteString("  stack:\n")

	shown := 0
	for i := 1; i+1 < len(lines) && shown < 6; i += 2 {
		fn := strings.TrimSpace(lines[i])
		loc := strings.TrimSpace(lines[i+1])
		if !strings.Contains(loc, ".go:") || strings.Contains(loc, "runtime/") || strings.Contains(loc, "logging.go") {
			continue
		}
		if sp := strings.LastIndex(loc, " +"); sp > 0 {
			loc = loc[:sp]
		}
		if idx := strings.LastIndexAny(loc, "/\\"); idx >= 0 {
			loc = loc[idx+1:]
		}
		if p := strings.Index(fn, "("); p > 0 {
			fn = fn[:p]
		}
		if idx := strings.LastIndex(fn, "/"); idx >= 0 {
			fn = fn[idx+1:]
		}
		out.WriteString(fmt.Sprintf("    %s @ %s\n", fn, loc))
		shown++
	}
	return out.String()
}

// TextFormatter formats logs as human-readable text
type TextFormatter struct {
	NoColor         bool
	TimestampFormat string
}

func (f *TextFormatter) paint(b *strings.Builder, color, s string) {
	if f.NoColor || color == "" {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(colorReset)
}

func (f *TextFormatter) Format(entry *LogEntry) string {
	var b strings.Builder

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = "15:04:05.000"
	}
	f.paint(&b, colorDim, entry.Time.Format(timestampFormat))
	b.WriteString(" ")

	levelStr := fmt.Sprintf("%-5s", entry.Level.String())
	f.paint(&b, levelColor(entry.Level)+colorBold, levelStr)
	b.WriteString(" ")

	if entry.Prefix != "" {
		f.paint(&b, colorBlue, entry.Prefix)
		b.WriteString(" ")
	}
	if entry.File != "" && entry.Line > 0 {
		f.paint(&b, colorDim, fmt.Sprintf("%s:%d", entry.File, entry.Line))
		b.WriteString(" ")
	}

	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := slices.Sorted(maps.Keys(entry.Fields))
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(k)
			b.WriteString("=")
			f.paint(&b, colorCyan, fmt.Sprintf("%v", entry.Fields[k]))
		}
		b.WriteString("]")
	}

	if entry.Error != nil {
		b.WriteString(" ")
		f.paint(&b, colorBrightRed, "error="+entry.Error.Error())
	}
	b.WriteString("\n")

	if entry.StackTrace != "" {
		f.paint(&b, colorDim, entry.StackTrace)
	}
	return b.String()
}

func levelColor(level LogLevel) string {
	switch level {
	case TraceLevel:
		return colorMagenta
	case DebugLevel:
		return colorBlue
	case InfoLevel:
		return colorGreen
	case WarnLevel:
		return colorYellow
	case ErrorLevel:
		return colorRed
	case FatalLevel, PanicLevel:
		return colorBrightRed
	default:
		return ""
	}
}

// JSONFormatter formats logs as JSON
type JSONFormatter struct {
	TimestampFormat string
}

func (f *JSONFormatter) Format(entry *LogEntry) string {
	data := make(map[string]any, len(entry.Fields)+6)
	maps.Copy(data, entry.Fields)

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339Nano
	}
	data["timestamp"] = entry.Time.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	if entry.Prefix != "" {
		data["prefix"] = entry.Prefix
	}
	if entry.File != "" {
		data["caller"] = fmt.Sprintf("%s:%d", entry.File, entry.Line)
	}
	if entry.Error != nil {
		data["error"] = entry.Error.Error()
	}
	if entry.StackTrace != "" {
		data["stack_trace"] = entry.StackTrace
	}

	output, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal log entry: %v"}`+"\n", err)
	}
	return string(output) + "\n"
}
