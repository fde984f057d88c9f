package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clicksync",
			Name:      "clickup_requests_total",
			Help:      "ClickUp API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clicksync",
			Name:      "sync_runs_total",
			Help:      "Completed sync runs by status.",
		},
		[]string{"status"},
	)

	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clicksync",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of a full sync run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	tasksLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clicksync",
			Name:      "tasks_loaded_total",
			Help:      "Task rows loaded into the warehouse.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, syncRuns, syncDuration, tasksLoaded)
	})
}

// IncRequest increments the ClickUp request counter for an endpoint label.
func IncRequest(endpoint string) {
	apiRequests.WithLabelValues(endpoint).Inc()
}

// ObserveRun records the outcome and duration of a sync run.
func ObserveRun(status string, d time.Duration) {
	syncRuns.WithLabelValues(status).Inc()
	syncDuration.Observe(d.Seconds())
}

// AddTasksLoaded adds to the loaded-rows counter.
func AddTasksLoaded(n int) {
	tasksLoaded.Add(float64(n))
}

// Serve exposes /metrics and /healthz on the given port in a background
// goroutine. Listen errors are delivered on the returned channel.
func Serve(port int) <-chan error {
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go func() {
		errCh <- http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
	return errCh
}
