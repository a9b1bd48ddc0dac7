// Package telemetry exposes sweep counters in Prometheus text format,
// for monitoring long-running optimizations.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	metricsMu        sync.RWMutex
	candidateCounts  = make(map[string]uint64) // pattern -> evaluated candidates
	survivorCounts   = make(map[string]uint64)
	rejectionCounts  = make(map[string]map[string]uint64) // pattern -> reason -> count
	tradesSimulated  uint64
	evaluationPanics uint64
)

// RecordCandidate increments the evaluated-candidate counter.
func RecordCandidate(pattern string) {
	if pattern == "" {
		pattern = "unknown"
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	candidateCounts[pattern]++
}

// RecordSurvivor increments the survivor counter.
func RecordSurvivor(pattern string) {
	if pattern == "" {
		pattern = "unknown"
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	survivorCounts[pattern]++
}

// RecordRejection increments the rejection counter for a reason.
func RecordRejection(pattern, reason string) {
	if pattern == "" {
		pattern = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if _, exists := rejectionCounts[pattern]; !exists {
		rejectionCounts[pattern] = make(map[string]uint64)
	}
	rejectionCounts[pattern][reason]++
}

// RecordTradesSimulated adds to the simulated-trade counter.
func RecordTradesSimulated(n int) {
	if n <= 0 {
		return
	}
	atomic.AddUint64(&tradesSimulated, uint64(n))
}

// RecordEvaluationPanic records a recovered panic in candidate evaluation.
func RecordEvaluationPanic() {
	atomic.AddUint64(&evaluationPanics, 1)
}

// Server exposes metrics and health endpoints.
type Server struct {
	srv        *http.Server
	readyState atomic.Bool
}

// NewServer creates a new telemetry server.
func NewServer(addr string) *Server {
	if addr == "" {
		return nil
	}

	server := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", server.metricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if server.readyState.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	server.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return server
}

func (s *Server) metricsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	builder := &strings.Builder{}

	metricsMu.RLock()
	builder.WriteString("# HELP aurelius_candidates_total Parameter candidates evaluated per pattern\n")
	builder.WriteString("# TYPE aurelius_candidates_total counter\n")
	patterns := make([]string, 0, len(candidateCounts))
	for pattern := range candidateCounts {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		fmt.Fprintf(builder, "aurelius_candidates_total{pattern=\"%s\"} %d\n", pattern, candidateCounts[pattern])
	}

	builder.WriteString("# HELP aurelius_survivors_total Candidates that passed every admission filter\n")
	builder.WriteString("# TYPE aurelius_survivors_total counter\n")
	patterns = patterns[:0]
	for pattern := range survivorCounts {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		fmt.Fprintf(builder, "aurelius_survivors_total{pattern=\"%s\"} %d\n", pattern, survivorCounts[pattern])
	}

	builder.WriteString("# HELP aurelius_rejections_total Rejected candidates by pattern and reason\n")
	builder.WriteString("# TYPE aurelius_rejections_total counter\n")
	patterns = patterns[:0]
	for pattern := range rejectionCounts {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		reasons := make([]string, 0, len(rejectionCounts[pattern]))
		for reason := range rejectionCounts[pattern] {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(builder, "aurelius_rejections_total{pattern=\"%s\",reason=\"%s\"} %d\n",
				pattern, reason, rejectionCounts[pattern][reason])
		}
	}
	metricsMu.RUnlock()

	builder.WriteString("# HELP aurelius_trades_simulated_total Trades simulated across all candidate runs\n")
	builder.WriteString("# TYPE aurelius_trades_simulated_total counter\n")
	fmt.Fprintf(builder, "aurelius_trades_simulated_total %d\n", atomic.LoadUint64(&tradesSimulated))

	builder.WriteString("# HELP aurelius_evaluation_panics_total Recovered panics in candidate evaluation\n")
	builder.WriteString("# TYPE aurelius_evaluation_panics_total counter\n")
	fmt.Fprintf(builder, "aurelius_evaluation_panics_total %d\n", atomic.LoadUint64(&evaluationPanics))

	_, _ = w.Write([]byte(builder.String()))
}

// Start begins serving metrics and health endpoints in a separate goroutine.
func (s *Server) Start() error {
	if s == nil || s.srv == nil {
		return nil
	}
	go func() {
		_ = s.srv.ListenAndServe()
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// SetReady updates the readiness state exposed on /readyz.
func (s *Server) SetReady(ready bool) {
	if s == nil {
		return
	}
	s.readyState.Store(ready)
}
