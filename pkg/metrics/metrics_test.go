package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

func TestSetIndexSize(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.SetIndexSize(2, 7, 40)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IndexDocuments))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.IndexChunks))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.IndexTerms))
}

func TestBreakerObserver(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	observe := m.BreakerObserver()
	observe("redis-cache", resilience.StateClosed, resilience.StateOpen)
	assert.Equal(t, float64(resilience.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))
	observe("redis-cache", resilience.StateOpen, resilience.StateHalfOpen)
	assert.Equal(t, float64(resilience.StateHalfOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))
}
