package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/arencloud/sitebucket/internal/config"
	"github.com/arencloud/sitebucket/internal/logging"
	"github.com/arencloud/sitebucket/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type server struct {
	cfg     *config.Config
	log     logging.Logger
	clients ClientFactory
}

type statusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	sr.code = statusCode
	sr.ResponseWriter.WriteHeader(statusCode)
}
func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Router builds the HTTP handler. A nil clients factory means real S3
// clients; tests inject fakes.
func Router(cfg *config.Config, logger logging.Logger, clients ClientFactory) http.Handler {
	if clients == nil {
		clients = defaultClients
	}
	s := &server{cfg: cfg, log: logger, clients: clients}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, AllowedHeaders: []string{"*"}}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddUint64(&totalRequests, 1)
			next.ServeHTTP(w, r)
		})
	})
	// tracing middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := newTraceID()
			t := &Trace{ID: id, Method: r.Method, Path: r.URL.Path, Started: time.Now(), Events: []TraceEvent{}}
			if u := currentUser(r); u != nil {
				t.UserEmail = u.Email
				t.UserRole = u.Role
			}
			t.UserAgent = r.UserAgent()
			if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
				t.RemoteIP = ip
			} else {
				t.RemoteIP = r.RemoteAddr
			}
			if r.ContentLength > 0 {
				t.ReqBytes = r.ContentLength
			}
			w.Header().Set("X-Trace-Id", id)
			w.Header().Set("X-Request-Id", id)
			r = r.WithContext(withTraceCtx(r.Context(), t))
			addEvent(r, "request.start", map[string]any{"method": r.Method, "path": r.URL.Path})
			rec := &statusRecorder{ResponseWriter: w, code: 200}
			next.ServeHTTP(rec, r)
			t.Status = rec.code
			t.Ended = time.Now()
			t.Duration = t.Ended.Sub(t.Started)
			t.RespBytes = rec.bytes
			addEvent(r, "request.end", map[string]any{"status": rec.code, "respBytes": rec.bytes})
			if t.ReqBytes > 0 {
				atomic.AddUint64(&bytesIn, uint64(t.ReqBytes))
			}
			if t.RespBytes > 0 {
				atomic.AddUint64(&bytesOut, uint64(t.RespBytes))
			}
			atomic.AddUint64(&totalDurationNs, uint64(t.Duration))
			if t.Status >= 500 {
				atomic.AddUint64(&total5xx, 1)
			} else if t.Status >= 400 {
				atomic.AddUint64(&total4xx, 1)
			}
			traces.add(t)
			logger.Info("http_request",
				"method", t.Method,
				"path", t.Path,
				"status", t.Status,
				"durationMs", float64(t.Duration)/1e6,
				"user", t.UserEmail,
				"role", t.UserRole,
				"traceId", t.ID,
				"bytesIn", t.ReqBytes,
				"bytesOut", t.RespBytes,
			)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]string{"name": "sitebucket", "version": version.Version})
		})
		r.Route("/v1", func(r chi.Router) {
			registerAPI(r, s)
		})
	})
	return r
}

func registerAPI(r chi.Router, s *server) {
	registerAuth(r)
	r.Group(func(pr chi.Router) {
		pr.Use(requireAuth)
		registerProviders(pr, s)
		registerSites(pr, s)
		pr.Get("/obs/metrics", metricsHandler)
		pr.Get("/obs/errors", errorsHandler)
		pr.Get("/trace/recent", traceRecent)
		pr.Get("/trace/{id}", traceGet)
		pr.Get("/logs/recent", logsRecent)
		pr.Get("/logs/level", logsGetLevel)
		pr.Put("/logs/level", logsSetLevel)
		pr.Route("/users", func(ur chi.Router) {
			ur.Use(requireAdmin)
			ur.Get("/", s.listUsers)
			ur.Post("/", s.createUser)
			ur.Put("/{id}", s.updateUser)
			ur.Delete("/{id}", s.deleteUser)
		})
	})
}
