package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/navigation"
)

const namespace = "healthdesk"

type Recorder struct {
	registry     *prometheus.Registry
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	navigations  *prometheus.CounterVec
	logins       *prometheus.CounterVec
	sessions     prometheus.Gauge
	backendUp    prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_total",
			Help:      "Poll outcomes by source and resulting summary status.",
		}, []string{"source", "status"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent fetching and transforming one source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_total",
			Help:      "Navigation results by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Client sessions held in memory.",
		}),
		backendUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_up",
			Help:      "1 when the last backend probe succeeded.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.polls, r.pollDuration, r.navigations, r.logins, r.sessions, r.backendUp,
	)
	return r
}

func (r *Recorder) ObservePoll(source model.SourceID, status model.SummaryStatus, elapsed time.Duration) {
	r.polls.WithLabelValues(string(source), string(status)).Inc()
	r.pollDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveNavigation(res navigation.Resolution) {
	r.navigations.WithLabelValues(string(res.Outcome)).Inc()
}

func (r *Recorder) ObserveLogin(result string) {
	r.logins.WithLabelValues(result).Inc()
}

func (r *Recorder) SetActiveSessions(n int) {
	r.sessions.Set(float64(n))
}

func (r *Recorder) SetBackendUp(up bool) {
	if up {
		r.backendUp.Set(1)
		return
	}
	r.backendUp.Set(0)
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
