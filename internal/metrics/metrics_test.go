package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"product-catalog/internal/model"
	"product-catalog/internal/scheduler"
	"product-catalog/internal/worker"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerObserver(t *testing.T) {
	m := New()
	obs := m.SchedulerObserver("generate")

	tr := scheduler.Trigger{Seq: 1, ScheduledAt: time.Now(), FiredAt: time.Now()}
	obs.InvocationStarted(tr)
	obs.InvocationFinished(tr, time.Second, nil)
	obs.InvocationFinished(tr, time.Second, errors.New("boom"))
	obs.InvocationFinished(tr, time.Second, fmt.Errorf("long-running task failed: %w", model.ErrTaskInterrupted))
	obs.Overrun(tr, 3*time.Second)
	obs.Overrun(tr, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("generate", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("generate", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("generate", ResultInterrupted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Overruns.WithLabelValues("generate")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.InvocationDuration))
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ResultSuccess},
		{name: "plain error", err: errors.New("x"), want: ResultError},
		{name: "interrupted", err: model.ErrTaskInterrupted, want: ResultInterrupted},
		{name: "wrapped interrupted", err: fmt.Errorf("a: %w", model.ErrTaskInterrupted), want: ResultInterrupted},
		{name: "queue full", err: model.ErrQueueFull, want: ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultOf(tt.err))
		})
	}
}

func TestPoolObserver(t *testing.T) {
	m := New()
	obs := m.PoolObserver("writer")

	obs.TaskSubmitted()
	obs.TaskSubmitted()
	obs.TaskRejected()
	obs.TaskFinished(time.Millisecond, false)
	obs.TaskFinished(time.Millisecond, true)
	obs.TasksAbandoned(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Tasks.WithLabelValues("writer", EventSubmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("writer", EventRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("writer", EventCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("writer", EventPanicked)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Tasks.WithLabelValues("writer", EventAbandoned)))
}

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/v1/products", "200", 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/v1/products", "200", 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/v1/products", "500", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/v1/products", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/v1/products", "500")))
}

func TestHandler_ExposesGauges(t *testing.T) {
	m := New()
	m.RegisterPoolGauges("writer", func() worker.Stats {
		return worker.Stats{QueueDepth: 3, QueueCapacity: 500, Active: 2}
	})
	m.RegisterProductCount(func() int { return 7 })
	m.PoolObserver("writer").TaskSubmitted()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `product_catalog_pool_queue_depth{pool="writer"} 3`)
	assert.Contains(t, text, `product_catalog_pool_queue_capacity{pool="writer"} 500`)
	assert.Contains(t, text, `product_catalog_pool_active_tasks{pool="writer"} 2`)
	assert.Contains(t, text, `product_catalog_products 7`)
	assert.Contains(t, text, `product_catalog_pool_tasks_total{event="submitted",pool="writer"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
