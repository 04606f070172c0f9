package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/incident-router/internal/app"
	"github.com/mohammed-shakir/incident-router/internal/cache/redisstore"
	"github.com/mohammed-shakir/incident-router/internal/cache/routecache"
	"github.com/mohammed-shakir/incident-router/internal/core/config"
	"github.com/mohammed-shakir/incident-router/internal/core/health"
	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/core/observability"
	"github.com/mohammed-shakir/incident-router/internal/core/server"
	"github.com/mohammed-shakir/incident-router/internal/dispatch"
	"github.com/mohammed-shakir/incident-router/internal/dispatchevents"
	"github.com/mohammed-shakir/incident-router/internal/graph"
	"github.com/mohammed-shakir/incident-router/internal/hotness/expdecay"
	"github.com/mohammed-shakir/incident-router/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/incident-router/internal/logger"
	h3mapper "github.com/mohammed-shakir/incident-router/internal/mapper/h3"
	"github.com/mohammed-shakir/incident-router/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	roadsFlag := flag.String("roads", "", "road network GeoJSON (overrides ROADS_PATH)")
	flag.Parse()

	cfg := config.FromEnv()
	if *roadsFlag != "" {
		cfg.RoadsPath = *roadsFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "incident-router",
		Component: "main",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(p.Registerer(), cfg.MetricsEnabled)

	appLog.Info("starting incident-router",
		"addr", cfg.Addr,
		"version", Version,
		"roads", cfg.RoadsPath,
		"weight_policy", cfg.WeightPolicy)

	policy, err := graph.ParseWeightPolicy(cfg.WeightPolicy)
	if err != nil {
		appLog.Error("invalid weight policy", "err", err)
		return 1
	}

	net, err := app.Load(appLog, app.Sources{
		RoadsPath:     cfg.RoadsPath,
		FacilityPaths: cfg.FacilityPaths,
		BoundaryPath:  cfg.BoundaryPath,
		Policy:        policy,
		SpatialIndex:  cfg.SpatialIndex,
	})
	if err != nil {
		appLog.Error("load road network", "err", err)
		return 1
	}
	p.SetNetwork(net.Graph().Policy().String(), net.Engine.Fingerprint())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []dispatch.Option{dispatch.WithLogger(appLog)}

	if cfg.RouteCache.Enabled {
		var copts []routecache.Option
		copts = append(copts, routecache.WithLogger(appLog), routecache.WithOpTimeout(cfg.RouteCache.OpTimeout))
		if cfg.RouteCache.RedisAddr != "" {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			rc, err := redisstore.New(pingCtx, cfg.RouteCache.RedisAddr)
			cancel()
			if err != nil {
				appLog.Warn("redis unavailable; route cache is in-process only", "addr", cfg.RouteCache.RedisAddr, "err", err)
			} else {
				defer func() { _ = rc.Close() }()
				copts = append(copts, routecache.WithRemote(rc))
			}
		}
		c, err := routecache.New(cfg.RouteCache.LRUSize, cfg.RouteCache.TTL, copts...)
		if err != nil {
			appLog.Error("route cache setup failed", "err", err)
			return 1
		}
		opts = append(opts, dispatch.WithCache(c))
	}

	hot := metricswrap.New(expdecay.New(cfg.HotHalfLife),
		metricswrap.WithThreshold(cfg.HotThreshold, 0.1, zl.With().Str("component", "hotness").Logger()))
	opts = append(opts, dispatch.WithHotspots(hot, h3mapper.New(), cfg.H3Res))

	if cfg.DispatchEvents.Enabled {
		pub, err := dispatchevents.NewPublisher(cfg.DispatchEvents.BrokerList(), cfg.DispatchEvents.Topic, cfg.DispatchEvents.QueueSize, appLog)
		if err != nil {
			appLog.Warn("dispatch events disabled", "err", err)
		} else {
			defer func() {
				if err := pub.Close(); err != nil {
					appLog.Warn("close dispatch events", "err", err)
				}
			}()
			opts = append(opts, dispatch.WithEvents(pub))
		}
	}

	svc := dispatch.New(net.Engine, opts...)
	if cfg.RouteCache.SweepStale {
		sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		n, err := svc.DropStale(sweepCtx)
		cancel()
		if err != nil {
			appLog.Warn("stale route sweep failed", "err", err)
		} else if n > 0 {
			appLog.Info("dropped stale cached routes", "removed", n, "fingerprint", fmt.Sprintf("%016x", net.Engine.Fingerprint()))
		}
	}
	go svc.RunPruner(ctx, cfg.HotHalfLife, 0.01)

	g := net.Graph()
	catalog := net.Engine.Catalog()
	ready := health.ReadinessFunc(func() (bool, health.GraphStats) {
		st := health.GraphStats{Nodes: g.NodeCount(), Edges: g.EdgeCount(), Facilities: map[string]int{}}
		for _, c := range model.Categories() {
			st.Facilities[c.String()] = catalog.Count(c)
		}
		return g.NodeCount() > 0, st
	})

	if err := server.Run(ctx, cfg, appLog, server.Deps{
		Service:   svc,
		Readiness: ready,
		Metrics:   p.Handler(),
		Overlay:   net.OverlayOptions(),
	}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
