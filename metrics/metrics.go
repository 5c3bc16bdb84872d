// Package metrics exposes Prometheus collectors for the engine, planner
// and session.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StorageStepSeconds is the latency of timed storage calls by step name.
	StorageStepSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toysql_storage_step_seconds",
			Help:    "Latency of storage engine steps in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"step"},
	)
	// AccessPathTotal counts planned OR-groups by chosen access path.
	AccessPathTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toysql_access_path_total",
			Help: "Total number of OR-groups executed per access path",
		},
		[]string{"path"},
	)
	// StatementsTotal counts executed statements.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toysql_statements_total",
			Help: "Total number of statements executed",
		},
		[]string{"kind", "status"},
	)
)

func ObserveStep(step string, d time.Duration) {
	StorageStepSeconds.WithLabelValues(step).Observe(d.Seconds())
}

func RecordAccessPath(path string) {
	AccessPathTotal.WithLabelValues(path).Inc()
}

func RecordStatement(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StatementsTotal.WithLabelValues(kind, status).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
