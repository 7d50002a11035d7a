// internal/metrics/metrics.go
//
// Prometheus collectors for the riddle server: HTTP traffic plus game
// events (answers, hints, doors opened, completed play-throughs).
// Collectors work before Init; Init only registers them for /metrics.

package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)

	Answers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riddle_answers_total",
			Help: "Submitted answers by result (correct, wrong, rejected)",
		},
		[]string{"result"},
	)

	Hints = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riddle_hints_total",
		Help: "Hint tokens spent",
	})

	DoorsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riddle_doors_opened_total",
		Help: "Door transitions applied",
	})

	GamesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riddle_games_completed_total",
		Help: "Rooms that went through their last door",
	})

	LiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "riddle_live_rooms",
		Help: "Rooms with an engine loaded in memory",
	})
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, Answers, Hints, DoorsOpened, GamesCompleted, LiveRooms)
	})
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
