package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Lightweight in-memory request tracing: each request carries a Trace
// with Events, stored in a ring buffer. Durable provisioning history
// lives in the Run/RunStep tables; this ring is for live debugging only.

type TraceEvent struct {
	Time   time.Time      `json:"time"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Trace struct {
	ID        string        `json:"id"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	UserEmail string        `json:"userEmail,omitempty"`
	UserRole  string        `json:"userRole,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	RemoteIP  string        `json:"remoteIp,omitempty"`
	ReqBytes  int64         `json:"reqBytes,omitempty"`
	RespBytes int64         `json:"respBytes,omitempty"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended"`
	Duration  time.Duration `json:"duration"`
	Events    []TraceEvent  `json:"events"`

	mu sync.Mutex
}

type traceStore struct {
	mu   sync.RWMutex
	buf  []*Trace
	next int
	size int
}

var traces = &traceStore{buf: make([]*Trace, 1000), size: 1000}

func (s *traceStore) add(t *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = t
	s.next = (s.next + 1) % s.size
}

func (s *traceStore) all(limit int) []*Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]*Trace, 0, limit)
	// walk ring newest-first
	idx := (s.next - 1 + s.size) % s.size
	for i := 0; i < s.size && len(out) < limit; i++ {
		if s.buf[idx] != nil {
			out = append(out, s.buf[idx])
		}
		idx = (idx - 1 + s.size) % s.size
	}
	return out
}

func (s *traceStore) get(id string) *Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.buf {
		if t != nil && t.ID == id {
			return t
		}
	}
	return nil
}

type traceCtxKey struct{}

func withTraceCtx(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceCtxKey{}, t)
}

func traceFrom(r *http.Request) *Trace {
	t, _ := r.Context().Value(traceCtxKey{}).(*Trace)
	return t
}

func newTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "trace-unknown"
	}
	return hex.EncodeToString(b)
}

// addEvent appends a named event to the request's trace, if any.
func addEvent(r *http.Request, name string, fields map[string]any) {
	t := traceFrom(r)
	if t == nil {
		return
	}
	t.mu.Lock()
	t.Events = append(t.Events, TraceEvent{Time: time.Now(), Name: name, Fields: fields})
	t.mu.Unlock()
}

// respondError writes an error response and records it on the trace.
func respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	addEvent(r, "error", map[string]any{"status": code, "message": msg})
	http.Error(w, msg, code)
}

func traceRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	writeJSON(w, 200, traces.all(limit))
}

func traceGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t := traces.get(id)
	if t == nil {
		respondError(w, r, 404, "trace not found")
		return
	}
	writeJSON(w, 200, t)
}
