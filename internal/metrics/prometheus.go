package metrics

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// API metrics
	requestsTotal            *prometheus.CounterVec
	requestDuration          prometheus.Histogram
	applicationOutcomesTotal *prometheus.CounterVec
	resumeRejectionsTotal    *prometheus.CounterVec
	listingUpsertsTotal      prometheus.Counter
	applicationsDeletedTotal prometheus.Counter

	// Sweeper metrics
	sweepsTotal               prometheus.Counter
	sweepErrorsTotal          prometheus.Counter
	sweepDuration             prometheus.Histogram
	applicationsSweptTotal    prometheus.Counter

	// Notifier metrics
	notifyAttemptsTotal *prometheus.CounterVec
	notifyOutcomesTotal *prometheus.CounterVec
	webhookDuration     prometheus.Histogram
	eventsInFlight      prometheus.Gauge

	// EventBus metrics
	bufferSize      prometheus.Gauge
	bufferCapacity  prometheus.Gauge
	emitErrorsTotal prometheus.Counter
}

var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initAPIMetrics(reg)
	s.initSweeperMetrics(reg)
	s.initNotifierMetrics(reg)
	s.initEventBusMetrics(reg)
	return s
}

func (s *PrometheusSink) initAPIMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmanager_api_requests_total",
		Help: "Total number of API requests handled.",
	}, []string{"route", "status"})

	s.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobmanager_api_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	s.applicationOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmanager_applications_total",
		Help: "Total number of application submissions by outcome.",
	}, []string{"outcome"})

	s.resumeRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmanager_resume_rejections_total",
		Help: "Total number of rejected resume uploads by reason.",
	}, []string{"reason"})

	s.listingUpsertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_listing_upserts_total",
		Help: "Total number of job listing create/update operations.",
	})

	s.applicationsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_applications_deleted_total",
		Help: "Total number of applications removed via the admin bulk delete.",
	})

	s.register(reg, s.requestsTotal, "jobmanager_api_requests_total")
	s.register(reg, s.requestDuration, "jobmanager_api_request_duration_seconds")
	s.register(reg, s.applicationOutcomesTotal, "jobmanager_applications_total")
	s.register(reg, s.resumeRejectionsTotal, "jobmanager_resume_rejections_total")
	s.register(reg, s.listingUpsertsTotal, "jobmanager_listing_upserts_total")
	s.register(reg, s.applicationsDeletedTotal, "jobmanager_applications_deleted_total")
}

func (s *PrometheusSink) initSweeperMetrics(reg prometheus.Registerer) {
	s.sweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_sweeper_sweeps_total",
		Help: "Total number of retention sweeps executed.",
	})
	s.sweepErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_sweeper_errors_total",
		Help: "Total number of retention sweep errors.",
	})
	s.sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobmanager_sweeper_duration_seconds",
		Help:    "Duration of each retention sweep in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
	s.applicationsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_sweeper_applications_removed_total",
		Help: "Total number of applications removed by retention sweeps.",
	})

	s.register(reg, s.sweepsTotal, "jobmanager_sweeper_sweeps_total")
	s.register(reg, s.sweepErrorsTotal, "jobmanager_sweeper_errors_total")
	s.register(reg, s.sweepDuration, "jobmanager_sweeper_duration_seconds")
	s.register(reg, s.applicationsSweptTotal, "jobmanager_sweeper_applications_removed_total")
}

func (s *PrometheusSink) initNotifierMetrics(reg prometheus.Registerer) {
	s.notifyAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmanager_notifier_attempts_total",
		Help: "Total number of webhook notification attempts.",
	}, []string{"attempt", "status_class"})

	s.notifyOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmanager_notifier_outcomes_total",
		Help: "Total number of final notification outcomes per event.",
	}, []string{"outcome"})

	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobmanager_notifier_webhook_duration_seconds",
		Help:    "Webhook request latency in seconds (excludes backoff wait).",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobmanager_notifier_events_in_flight",
		Help: "Number of events currently being processed.",
	})

	s.register(reg, s.notifyAttemptsTotal, "jobmanager_notifier_attempts_total")
	s.register(reg, s.notifyOutcomesTotal, "jobmanager_notifier_outcomes_total")
	s.register(reg, s.webhookDuration, "jobmanager_notifier_webhook_duration_seconds")
	s.register(reg, s.eventsInFlight, "jobmanager_notifier_events_in_flight")
}

func (s *PrometheusSink) initEventBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobmanager_eventbus_buffer_size",
		Help: "Current number of events in the event bus buffer.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobmanager_eventbus_buffer_capacity",
		Help: "Configured capacity of the event bus buffer.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_eventbus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.bufferSize, "jobmanager_eventbus_buffer_size")
	s.register(reg, s.bufferCapacity, "jobmanager_eventbus_buffer_capacity")
	s.register(reg, s.emitErrorsTotal, "jobmanager_eventbus_emit_errors_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// API metrics implementation

func (s *PrometheusSink) RequestCompleted(route string, statusCode int, duration time.Duration) {
	s.requestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	s.requestDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) ApplicationOutcome(outcome string) {
	s.applicationOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) ResumeUploadRejected(reason string) {
	s.resumeRejectionsTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) ListingUpserted() {
	s.listingUpsertsTotal.Inc()
}

func (s *PrometheusSink) ApplicationsDeleted(count int) {
	s.applicationsDeletedTotal.Add(float64(count))
}

// Sweeper metrics implementation

func (s *PrometheusSink) SweepCompleted(duration time.Duration, removed int64, err error) {
	s.sweepsTotal.Inc()
	s.sweepDuration.Observe(duration.Seconds())
	s.applicationsSweptTotal.Add(float64(removed))
	if err != nil {
		s.sweepErrorsTotal.Inc()
	}
}

// Notifier metrics implementation

func (s *PrometheusSink) NotifyAttemptCompleted(attempt int, statusClass string, duration time.Duration) {
	s.notifyAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), statusClass).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) NotifyOutcome(outcome string) {
	s.notifyOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}

// EventBus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}
