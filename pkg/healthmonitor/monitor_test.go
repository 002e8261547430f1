package healthmonitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aliciabus/alicia/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_AggregateHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := New()
	m.Register("svc-a", health.NewHTTPChecker(server.URL), health.Config{
		Interval: 10 * time.Millisecond, Timeout: 2 * time.Second, Retries: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, AggregateHealthy, m.Aggregate())
}

func TestMonitor_AggregateCritical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := New()
	m.Register("svc-a", health.NewHTTPChecker(server.URL), health.Config{
		Interval: 10 * time.Millisecond, Timeout: 2 * time.Second, Retries: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, AggregateCritical, m.Aggregate())
}

func TestMonitor_AggregateDegraded(t *testing.T) {
	healthyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthyServer.Close()
	unhealthyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer unhealthyServer.Close()

	m := New()
	cfg := health.Config{Interval: 10 * time.Millisecond, Timeout: 2 * time.Second, Retries: 1}
	m.Register("svc-a", health.NewHTTPChecker(healthyServer.URL), cfg)
	m.Register("svc-b", health.NewHTTPChecker(unhealthyServer.URL), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, AggregateDegraded, m.Aggregate())
}

func TestMonitor_HistoryRecordsSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := New()
	m.Register("svc-a", health.NewHTTPChecker(server.URL), health.Config{
		Interval: 5 * time.Millisecond, Timeout: 2 * time.Second, Retries: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	history := m.History("svc-a")
	require.NotEmpty(t, history, "expected at least one recorded sample")
	for _, s := range history {
		assert.Equal(t, TagHealthy, s.Tag)
	}
}

func TestMonitor_AggregateEmptyIsHealthy(t *testing.T) {
	m := New()
	assert.Equal(t, AggregateHealthy, m.Aggregate(), "expected healthy for empty monitor")
}
