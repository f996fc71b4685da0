// Package metrics exposes prediction attempt and sweep counters in the
// Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records engine activity on its own registry.
type Collector struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	batches         prometheus.Counter
	exhausted       prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightpath_prediction_attempts_total",
				Help: "Total number of prediction attempts by outcome.",
			},
			[]string{"outcome"},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flightpath_prediction_attempt_seconds",
				Help:    "Prediction attempt duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightpath_batches_total",
			Help: "Total number of prediction sweeps started.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightpath_tasks_exhausted_total",
			Help: "Total number of predictions that failed permanently.",
		}),
	}
	c.registry.MustRegister(c.attempts, c.attemptDuration, c.batches, c.exhausted)
	return c
}

func (c *Collector) ObserveAttempt(outcome string, elapsed time.Duration) {
	c.attempts.WithLabelValues(outcome).Inc()
	c.attemptDuration.Observe(elapsed.Seconds())
}

func (c *Collector) BatchStarted() {
	c.batches.Inc()
}

func (c *Collector) TaskExhausted() {
	c.exhausted.Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
