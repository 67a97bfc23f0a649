package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/arencloud/sitebucket/internal/logging"
)

// request counters, exported via /obs/metrics
var (
	totalRequests   uint64
	total4xx        uint64
	total5xx        uint64
	totalDurationNs uint64
	bytesIn         uint64
	bytesOut        uint64
)

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	reqs := atomic.LoadUint64(&totalRequests)
	durNs := atomic.LoadUint64(&totalDurationNs)
	var avgMs float64
	if reqs > 0 {
		avgMs = float64(durNs) / float64(reqs) / 1e6
	}
	writeJSON(w, 200, map[string]any{
		"requests":      reqs,
		"errors4xx":     atomic.LoadUint64(&total4xx),
		"errors5xx":     atomic.LoadUint64(&total5xx),
		"avgDurationMs": avgMs,
		"bytesIn":       atomic.LoadUint64(&bytesIn),
		"bytesOut":      atomic.LoadUint64(&bytesOut),
	})
}

// errorsHandler returns recent traces that ended in a 4xx/5xx.
func errorsHandler(w http.ResponseWriter, r *http.Request) {
	out := []*Trace{}
	for _, t := range traces.all(0) {
		if t.Status >= 400 {
			out = append(out, t)
		}
	}
	writeJSON(w, 200, out)
}

func logsRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, logging.Recent(200))
}

func logsGetLevel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"level": logging.GetLevel()})
}

func logsSetLevel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 256)).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	switch in.Level {
	case "debug", "info", "error":
		logging.SetLevel(in.Level)
		writeJSON(w, 200, map[string]string{"level": logging.GetLevel()})
	default:
		respondError(w, r, 400, "level must be debug, info or error")
	}
}
