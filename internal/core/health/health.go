// Package health serves liveness and readiness checks.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// GraphStats is what readiness reports about the loaded road network.
type GraphStats struct {
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	Facilities map[string]int `json:"facilities,omitempty"`
}

type ReadinessReporter interface {
	Readiness() (ready bool, stats GraphStats)
}

// ReadinessFunc adapts a plain function to ReadinessReporter.
type ReadinessFunc func() (bool, GraphStats)

func (f ReadinessFunc) Readiness() (bool, GraphStats) { return f() }

func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status string      `json:"status"`
			Graph  *GraphStats `json:"graph,omitempty"`
		}
		ready, stats := rr.Readiness()
		out := resp{Status: "not_ready"}
		if ready {
			out.Status = "ready"
			out.Graph = &stats
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
