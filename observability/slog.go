package observability

import (
	"context"
	"log/slog"
)

type slogLogger struct {
	l *slog.Logger
}

// NewSlog adapts a *slog.Logger. A nil logger uses slog.Default().
func NewSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s slogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s slogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s slogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s slogLogger) With(fields ...Field) Logger {
	return slogLogger{l: s.l.With(attrs(fields)...)}
}

func (s slogLogger) log(level slog.Level, msg string, fields []Field) {
	s.l.Log(context.Background(), level, msg, attrs(fields)...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		v := f.Value()
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		out = append(out, slog.Any(f.Key(), v))
	}
	return out
}

// Entry is one message captured by a Recorder.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// Recorder is a Logger that keeps every entry in memory.
type Recorder struct {
	Entries *[]Entry
	fields  []Field
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{Entries: &[]Entry{}} }

func (r *Recorder) Debug(msg string, fields ...Field) { r.add("debug", msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.add("info", msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.add("warn", msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.add("error", msg, fields) }

func (r *Recorder) With(fields ...Field) Logger {
	return &Recorder{Entries: r.Entries, fields: append(append([]Field(nil), r.fields...), fields...)}
}

// Count returns the number of entries at level.
func (r *Recorder) Count(level string) int {
	n := 0
	for _, e := range *r.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (r *Recorder) add(level, msg string, fields []Field) {
	m := make(map[string]interface{}, len(r.fields)+len(fields))
	for _, f := range r.fields {
		m[f.Key()] = f.Value()
	}
	for _, f := range fields {
		m[f.Key()] = f.Value()
	}
	*r.Entries = append(*r.Entries, Entry{Level: level, Msg: msg, Fields: m})
}
