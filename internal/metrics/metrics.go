package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Launch outcomes.
const (
	LaunchSpawned    = "spawned"
	LaunchOpened     = "opened"
	LaunchSuppressed = "suppressed"
	LaunchFailed     = "failed"
	LaunchRejected   = "rejected"
)

// Probe outcomes.
const (
	ProbeReady    = "ready"
	ProbeFallback = "fallback"
)

var (
	registry = prometheus.NewRegistry()

	launches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolhub",
		Name:      "launches_total",
		Help:      "Launch requests handled, by outcome.",
	}, []string{"outcome"})

	terminations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolhub",
		Name:      "terminations_total",
		Help:      "Termination signals issued, by origin and whether delivery succeeded.",
	}, []string{"origin", "delivered"})

	tracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "toolhub",
		Name:      "tracked_processes",
		Help:      "Number of processes currently held in the registry.",
	})

	probes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolhub",
		Name:      "probe_outcomes_total",
		Help:      "Readiness probe runs, by outcome.",
	}, []string{"outcome"})

	probeAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "toolhub",
		Name:      "probe_attempts",
		Help:      "Attempts used by a readiness probe before it finished.",
		Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 120, 180},
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "toolhub",
		Name:      "build_info",
		Help:      "Build metadata for the running toolhub binary.",
	}, []string{"version", "go_version", "vcs_revision"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(launches, terminations, tracked, probes, probeAttempts, buildInfo)
}

// Registry returns the Prometheus registry containing all toolhub metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveLaunch counts a handled launch request.
func ObserveLaunch(outcome string) {
	if outcome == "" {
		return
	}
	launches.WithLabelValues(outcome).Inc()
}

// ObserveTermination counts a kill signal issued by origin ("api" or "reaper").
func ObserveTermination(origin string, delivered bool) {
	if origin == "" {
		origin = "unknown"
	}
	label := "false"
	if delivered {
		label = "true"
	}
	terminations.WithLabelValues(origin, label).Inc()
}

// SetTracked records the current registry size.
func SetTracked(n int) {
	if n < 0 {
		n = 0
	}
	tracked.Set(float64(n))
}

// ObserveProbe records the outcome of a finished readiness probe.
func ObserveProbe(outcome string, attempts int) {
	probes.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		probeAttempts.Observe(float64(attempts))
	}
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo(version string) {
	buildInfoOnce.Do(func() {
		goVersion := runtime.Version()
		revision := ""
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				goVersion = info.GoVersion
			}
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					revision = setting.Value
				}
			}
		}
		buildInfo.WithLabelValues(version, goVersion, revision).Set(1)
	})
}
