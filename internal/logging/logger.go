// Package logging provides the leveled key/value logger shared by the CLI,
// the command interpreter and the HTTP server.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is a logging severity.
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
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects how entries are rendered.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) Format {
	if strings.ToLower(s) == "json" {
		return FormatJSON
	}
	return FormatText
}

// Logger writes structured entries. Extra arguments are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	WithRequestID(id string) Logger
	WithFields(keysAndValues ...any) Logger
}

// Config selects level, format and destination ("stdout", "stderr" or a
// file path opened for append).
type Config struct {
	Level  string
	Format string
	Output string
}

// sink is shared by a logger and every logger derived from it.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

type logger struct {
	level     Level
	format    Format
	out       *sink
	fields    map[string]any
	requestID string
	now       func() time.Time
}

// New builds a Logger from cfg. The returned closer releases the output
// file, if one was opened; it is a no-op for stdout and stderr.
func New(cfg Config) (Logger, io.Closer, error) {
	var w io.Writer
	var c io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", cfg.Output, err)
		}
		w, c = f, f
	}
	return NewWriter(w, ParseLevel(cfg.Level), ParseFormat(cfg.Format)), c, nil
}

// NewWriter returns a Logger writing to w.
func NewWriter(w io.Writer, level Level, format Format) Logger {
	return &logger{
		level:  level,
		format: format,
		out:    &sink{w: w},
		fields: map[string]any{},
		now:    time.Now,
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return nopLogger{} }

func (l *logger) Debug(msg string, kv ...any) { l.log(LevelDebug, msg, kv) }
func (l *logger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *logger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }
func (l *logger) Error(msg string, kv ...any) { l.log(LevelError, msg, kv) }

func (l *logger) WithRequestID(id string) Logger {
	c := l.clone()
	c.requestID = id
	return c
}

func (l *logger) WithFields(kv ...any) Logger {
	c := l.clone()
	addPairs(c.fields, kv)
	return c
}

func (l *logger) clone() *logger {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	c := *l
	c.fields = fields
	return &c
}

func (l *logger) log(level Level, msg string, kv []any) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.fields)+len(kv)/2+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	addPairs(entry, kv)

	var line string
	ts := l.now().UTC().Format(time.RFC3339)
	if l.format == FormatJSON {
		entry["ts"] = ts
		entry["level"] = level.String()
		entry["msg"] = msg
		if l.requestID != "" {
			entry["request_id"] = l.requestID
		}
		data, err := json.Marshal(entry)
		if err != nil {
			data, _ = json.Marshal(map[string]string{"ts": ts, "level": "error", "msg": "unencodable log entry"})
		}
		line = string(data)
	} else {
		line = formatText(ts, level, msg, l.requestID, entry)
	}

	l.out.mu.Lock()
	fmt.Fprintln(l.out.w, line)
	l.out.mu.Unlock()
}

// formatText renders "ts [level] msg request_id=.. k=v ..." with keys sorted
// so output is stable.
func formatText(ts string, level Level, msg, requestID string, fields map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts, level, msg)
	if requestID != "" {
		fmt.Fprintf(&b, " request_id=%s", requestID)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func addPairs(dst map[string]any, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			dst[key] = kv[i+1]
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(string, ...any)        {}
func (nopLogger) WithRequestID(string) Logger { return nopLogger{} }
func (nopLogger) WithFields(...any) Logger    { return nopLogger{} }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
