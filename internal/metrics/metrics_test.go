package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveEvent("order.created", "ok", 120*time.Millisecond)
	m.ObserveEvent("order.created", "ok", 80*time.Millisecond)
	m.ObserveEvent("issue.moved", "failed", time.Second)
	m.ObserveItems("create", 3, 1)
	m.ObserveItems("cancel", 0, 0)

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("order.created", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("issue.moved", "failed")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.items.WithLabelValues("create", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues("create", "failed")))
	require.Equal(t, 2, testutil.CollectAndCount(m.items))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveEvent("x", "ok", time.Second)
	m.ObserveItems("x", 1, 1)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveEvent("order.updated", "dropped", 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `ordersync_events_total{result="dropped",type="order.updated"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
