package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/insights", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)
	m.ObserveStore("find", time.Millisecond, nil)
	m.ObserveStore("find", time.Millisecond, errors.New("down"))
	m.RecordBulkInsert(3, 2)

	expected := `
# HELP insight_http_requests_total Total number of HTTP requests handled
# TYPE insight_http_requests_total counter
insight_http_requests_total{method="GET",route="/api/insights",status="200"} 1
insight_http_requests_total{method="GET",route="unmatched",status="404"} 1
# HELP insight_store_errors_total Total number of failed insight store operations
# TYPE insight_store_errors_total counter
insight_store_errors_total{operation="find"} 1
# HELP insight_bulk_insert_records_total Records submitted to bulk insert, by outcome
# TYPE insight_bulk_insert_records_total counter
insight_bulk_insert_records_total{outcome="failed"} 2
insight_bulk_insert_records_total{outcome="inserted"} 3
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"insight_http_requests_total", "insight_store_errors_total", "insight_bulk_insert_records_total")
	if err != nil {
		t.Errorf("Unexpected metrics: %v", err)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, 0)
	m.ObserveStore("find", 0, nil)
	m.RecordRateLimited("memory")
	m.RecordBulkInsert(1, 1)
}
