package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls level, encoding, and destination.
type Config struct {
	Level      string // debug, info, warn, error, fatal, panic
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

// Logger wraps zerolog behind a variadic field API. An optional
// collector aggregates error logs for out-of-band delivery.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

// New builds the logger. The parsed level applies process-wide.
func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
			NoColor:    false,
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// openOutput treats anything that is not stdout/stderr as a file path.
func openOutput(name string) (io.Writer, error) {
	switch name {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		return file, nil
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	event := l.zl.Debug()
	for _, f := range fields {
		f.apply(event)
	}
	event.Msg(msg)
}

func (l *Logger) Info(msg string, fields ...Field) {
	event := l.zl.Info()
	for _, f := range fields {
		f.apply(event)
	}
	event.Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	event := l.zl.Warn()
	for _, f := range fields {
		f.apply(event)
	}
	event.Msg(msg)
}

// Error also feeds the collector when one is attached.
func (l *Logger) Error(msg string, fields ...Field) {
	event := l.zl.Error()
	for _, f := range fields {
		f.apply(event)
	}
	event.Msg(msg)

	l.collect("error", msg, fields)
}

// AddCollector attaches a collector, replacing any existing one.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(config)
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

// collect forwards a log to the collector with its call site. Caller
// depth assumes collect is invoked directly from a level method.
func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		parts := strings.Split(file, "EquityPulse")
		caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
	}

	fieldMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		fieldMap[f.key] = f.value
	}

	l.collector.AddLog(level, msg, fieldMap, caller)
}

// Field is one structured attribute on a log line.
type Field struct {
	key   string
	value interface{}
	apply func(*zerolog.Event)
}

func String(key, value string) Field {
	return Field{key: key, value: value, apply: func(e *zerolog.Event) { e.Str(key, value) }}
}

func Int(key string, value int) Field {
	return Field{key: key, value: value, apply: func(e *zerolog.Event) { e.Int(key, value) }}
}

func Int32(key string, value int32) Field { return Int(key, int(value)) }

func Int64(key string, value int64) Field {
	return Field{key: key, value: value, apply: func(e *zerolog.Event) { e.Int64(key, value) }}
}

func Uint(key string, value uint) Field { return Int(key, int(value)) }

func Uint64(key string, value uint64) Field { return Int64(key, int64(value)) }

func Bool(key string, value bool) Field {
	return Field{key: key, value: value, apply: func(e *zerolog.Event) { e.Bool(key, value) }}
}

func Any(key string, value interface{}) Field {
	return Field{key: key, value: value, apply: func(e *zerolog.Event) { e.Interface(key, value) }}
}

// Duration records whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int(key, int(value/time.Millisecond))
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

func Error(err error) Field {
	val := "<nil>"
	if err != nil {
		val = err.Error()
	}
	return Field{key: "error", value: val, apply: func(e *zerolog.Event) { e.Err(err) }}
}
