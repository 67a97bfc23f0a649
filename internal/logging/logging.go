package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
	Fatal(msg string, kv ...any)
}

// Entry is the in-memory view of one emitted log line, kept in a small
// ring so the API can serve recent logs without a disk dependency.
type Entry struct {
	Time   time.Time      `json:"time"`
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

var (
	bufMu   sync.RWMutex
	recent  = make([]*Entry, 1000)
	nextIdx = 0

	// global level shared by every logger instance; adjustable at runtime
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

type zapLogger struct{ s *zap.SugaredLogger }

// New creates a logger; honors env vars LOG_LEVEL (debug|info|error), LOG_JSON (true|false).
func New(env string) Logger {
	// LOG_LEVEL only overrides when set; the runtime level stays authoritative.
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		SetLevel(lvl)
	}
	zc := zap.NewProductionConfig()
	zc.Level = atom
	if v := os.Getenv("LOG_JSON"); v == "false" {
		zc.Encoding = "console"
	}
	if env == "dev" || env == "test" {
		zc.Development = true
	}
	z, err := zc.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{s: z.Sugar()}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }

// Level control
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		atom.SetLevel(zapcore.DebugLevel)
	case "error", "fatal":
		atom.SetLevel(zapcore.ErrorLevel)
	default:
		atom.SetLevel(zapcore.InfoLevel)
	}
}

func GetLevel() string {
	switch atom.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

func appendBuf(e *Entry) {
	bufMu.Lock()
	recent[nextIdx] = e
	nextIdx = (nextIdx + 1) % len(recent)
	bufMu.Unlock()
}

func fieldsFromKV(kv []any) map[string]any {
	if len(kv) == 0 { return nil }
	m := map[string]any{}
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) { break }
		k, ok := kv[i].(string)
		if !ok { continue }
		m[k] = kv[i+1]
	}
	return m
}

func (l *zapLogger) write(lvl zapcore.Level, name, msg string, kv []any) {
	if !atom.Enabled(lvl) { return }
	appendBuf(&Entry{Time: time.Now(), Level: name, Msg: msg, Fields: fieldsFromKV(kv)})
	switch lvl {
	case zapcore.DebugLevel:
		l.s.Debugw(msg, kv...)
	case zapcore.ErrorLevel:
		l.s.Errorw(msg, kv...)
	default:
		l.s.Infow(msg, kv...)
	}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.write(zapcore.DebugLevel, "debug", msg, kv) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.write(zapcore.InfoLevel, "info", msg, kv) }
func (l *zapLogger) Error(msg string, kv ...any) { l.write(zapcore.ErrorLevel, "error", msg, kv) }

func (l *zapLogger) Fatal(msg string, kv ...any) {
	appendBuf(&Entry{Time: time.Now(), Level: "fatal", Msg: msg, Fields: fieldsFromKV(kv)})
	l.s.Fatalw(msg, kv...)
}

// Recent returns up to n most recent log entries (newest-first).
func Recent(n int) []*Entry {
	bufMu.RLock(); defer bufMu.RUnlock()
	if n <= 0 || n > len(recent) { n = len(recent) }
	out := make([]*Entry, 0, n)
	i := (nextIdx - 1 + len(recent)) % len(recent)
	for c := 0; c < len(recent) && len(out) < n; c++ {
		if recent[i] != nil { out = append(out, recent[i]) }
		i = (i - 1 + len(recent)) % len(recent)
	}
	return out
}
