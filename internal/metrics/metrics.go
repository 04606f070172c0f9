// Package metrics owns the Prometheus registry the router serves at /metrics:
// runtime collectors, build identity and the identity of the loaded network.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incident_router"

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	Build BuildInfo
}

type Provider struct {
	reg     *prometheus.Registry
	network *prometheus.GaugeVec
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build of the running router (value is always 1).",
		},
		[]string{"version", "revision", "branch", "build_date", "go_version"},
	)
	network := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_info",
			Help:      "Road network and facility catalog being served (value is always 1).",
		},
		[]string{"weight_policy", "fingerprint"},
	)
	reg.MustRegister(build, network)

	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.Branch, v.BuildDate, runtime.Version()).Set(1)

	return &Provider{reg: reg, network: network}
}

// SetNetwork records the network identity; route cache keys carry the same
// fingerprint. A previous identity is replaced.
func (p *Provider) SetNetwork(policy string, fingerprint uint64) {
	p.network.Reset()
	p.network.WithLabelValues(policy, fmt.Sprintf("%016x", fingerprint)).Set(1)
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
