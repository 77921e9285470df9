package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veristack",
			Subsystem: "bootstrap",
			Name:      "launches_total",
			Help:      "Number of service processes launched.",
		}, []string{"name"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veristack",
			Subsystem: "bootstrap",
			Name:      "stops_total",
			Help:      "Number of service stops (graceful or kill).",
		}, []string{"name"},
	)
	serviceReady = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "veristack",
			Subsystem: "bootstrap",
			Name:      "service_ready",
			Help:      "Whether the service passed its readiness check (1) or not (0).",
		}, []string{"name"},
	)
	probeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veristack",
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Probe executions by outcome.",
		}, []string{"probe", "outcome"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "veristack",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of each probe.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"probe"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serviceLaunches, serviceStops, serviceReady, probeResults, probeDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers against the default Prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

func IncLaunch(name string) { serviceLaunches.WithLabelValues(name).Inc() }
func IncStop(name string)   { serviceStops.WithLabelValues(name).Inc() }

func SetServiceReady(name string, ready bool) {
	v := 0.0
	if ready {
		v = 1.0
	}
	serviceReady.WithLabelValues(name).Set(v)
}

func ObserveProbe(name string, success bool, d time.Duration) {
	outcome := "fail"
	if success {
		outcome = "pass"
	}
	probeResults.WithLabelValues(name, outcome).Inc()
	probeDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Handler returns an http.Handler serving the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a blocking metrics server on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
