// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"product-catalog/internal/model"
	"product-catalog/internal/scheduler"
	"product-catalog/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "product_catalog"

const (
	labelMethod = "method"
	labelPath   = "path"
	labelStatus = "status"
	labelJob    = "job"
	labelResult = "result"
	labelPool   = "pool"
	labelEvent  = "event"
)

// Invocation results.
const (
	ResultSuccess     = "success"
	ResultError       = "error"
	ResultInterrupted = "interrupted"
)

// Pool task events.
const (
	EventSubmitted = "submitted"
	EventRejected  = "rejected"
	EventCompleted = "completed"
	EventPanicked  = "panicked"
	EventAbandoned = "abandoned"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec

	Invocations        *prometheus.CounterVec
	Overruns           *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec

	Tasks        *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{labelMethod, labelPath},
		),
		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_invocations_total",
				Help:      "Scheduled job invocations by result",
			},
			[]string{labelJob, labelResult},
		),
		Overruns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_overruns_total",
				Help:      "Invocations that finished after the next trigger time",
			},
			[]string{labelJob},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_invocation_duration_seconds",
				Help:      "Duration of the synchronous part of a job invocation",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 20, 30, 60},
			},
			[]string{labelJob},
		),
		Tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_tasks_total",
				Help:      "Worker pool task events",
			},
			[]string{labelPool, labelEvent},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pool_task_duration_seconds",
				Help:      "Worker pool task run time",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{labelPool},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.Latency,
		m.Invocations, m.Overruns, m.InvocationDuration,
		m.Tasks, m.TaskDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, path, status string, d time.Duration) {
	m.Latency.WithLabelValues(method, path).Observe(d.Seconds())
	m.Requests.WithLabelValues(method, path, status).Inc()
}

// RegisterPoolGauges exposes queue depth, capacity and active tasks of a pool.
func (m *Metrics) RegisterPoolGauges(pool string, stats func() worker.Stats) {
	labels := prometheus.Labels{labelPool: pool}
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "pool_queue_depth",
			Help:        "Tasks waiting in the worker pool queue",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().QueueDepth) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "pool_queue_capacity",
			Help:        "Capacity of the worker pool queue",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().QueueCapacity) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "pool_active_tasks",
			Help:        "Tasks currently running on the worker pool",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Active) }),
	)
}

// RegisterProductCount exposes the number of stored products. count is
// called on every scrape.
func (m *Metrics) RegisterProductCount(count func() int) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "products",
		Help:      "Products in the store",
	}, func() float64 { return float64(count()) }))
}

// SchedulerObserver reports invocation events of job.
func (m *Metrics) SchedulerObserver(job string) scheduler.Observer {
	return &schedulerObserver{m: m, job: job}
}

// PoolObserver reports task events of pool.
func (m *Metrics) PoolObserver(pool string) worker.Observer {
	return &poolObserver{m: m, pool: pool}
}

type schedulerObserver struct {
	m   *Metrics
	job string
}

func (o *schedulerObserver) InvocationStarted(scheduler.Trigger) {}

func (o *schedulerObserver) InvocationFinished(_ scheduler.Trigger, d time.Duration, err error) {
	o.m.InvocationDuration.WithLabelValues(o.job).Observe(d.Seconds())
	o.m.Invocations.WithLabelValues(o.job, resultOf(err)).Inc()
}

func (o *schedulerObserver) Overrun(scheduler.Trigger, time.Duration) {
	o.m.Overruns.WithLabelValues(o.job).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, model.ErrTaskInterrupted):
		return ResultInterrupted
	default:
		return ResultError
	}
}

type poolObserver struct {
	m    *Metrics
	pool string
}

func (o *poolObserver) TaskSubmitted() {
	o.m.Tasks.WithLabelValues(o.pool, EventSubmitted).Inc()
}

func (o *poolObserver) TaskRejected() {
	o.m.Tasks.WithLabelValues(o.pool, EventRejected).Inc()
}

func (o *poolObserver) TaskFinished(d time.Duration, panicked bool) {
	o.m.TaskDuration.WithLabelValues(o.pool).Observe(d.Seconds())
	event := EventCompleted
	if panicked {
		event = EventPanicked
	}
	o.m.Tasks.WithLabelValues(o.pool, event).Inc()
}

func (o *poolObserver) TasksAbandoned(n int) {
	o.m.Tasks.WithLabelValues(o.pool, EventAbandoned).Add(float64(n))
}
