package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ObserveHTTP("GET", "/route", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestRouteMetrics_LabelsAndIncrement(t *testing.T) {
	before := testutil.ToFloat64(routeQueriesTotal.WithLabelValues("fire", "ok"))
	ObserveRoute("fire", "ok", 0.002, 4)
	ObserveRoute("fire", "no_path", 0.001, 0)
	after := testutil.ToFloat64(routeQueriesTotal.WithLabelValues("fire", "ok"))
	if after-before != 1 {
		t.Fatalf("route_queries_total{fire,ok} delta=%v want 1", after-before)
	}

	ObserveCacheOp("get", errors.New("boom"), 0.01)
	if v := testutil.ToFloat64(cacheOpTotal.WithLabelValues("get", "error")); v < 1 {
		t.Fatalf("cache_op_total{get,error}=%v", v)
	}

	SetGraphStats(10, 9, map[string]int{"non_linear": 2})
	if v := testutil.ToFloat64(graphNodes); v != 10 {
		t.Fatalf("graph_nodes=%v", v)
	}
	if v := testutil.ToFloat64(graphBuildSkipped.WithLabelValues("non_linear")); v != 2 {
		t.Fatalf("graph_build_skipped=%v", v)
	}
}

func TestInit_RegistersIntoCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)
	Init(reg, true) // second call is a no-op
	ObserveRouteCache("lru", "hit")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "route_cache_results_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("route_cache_results_total not registered in custom registry")
	}
}
