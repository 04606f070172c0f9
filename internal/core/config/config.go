package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type RouteCacheCfg struct {
	Enabled   bool
	LRUSize   int
	TTL       time.Duration
	RedisAddr string
	OpTimeout time.Duration

	// SweepStale drops results of other networks from Redis at startup.
	SweepStale bool
}

type DispatchEventsCfg struct {
	Enabled   bool
	Brokers   string
	Topic     string
	QueueSize int
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	RoadsPath      string
	FacilityPaths  map[string]string // category name -> file
	BoundaryPath   string
	WeightPolicy   string
	SpatialIndex   bool
	DefaultLon     float64
	DefaultLat     float64
	ExportDir      string
	H3Res          int
	HotHalfLife    time.Duration
	HotThreshold   float64
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool

	RouteCache     RouteCacheCfg
	DispatchEvents DispatchEventsCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		RoadsPath: getenv("ROADS_PATH", "data/roads.geojson"),
		FacilityPaths: map[string]string{
			"fire":   getenv("FIRE_FACILITIES_PATH", "data/fire_stations.csv"),
			"health": getenv("HEALTH_FACILITIES_PATH", "data/health_facilities.csv"),
			"relief": getenv("RELIEF_FACILITIES_PATH", "data/red_cross.csv"),
		},
		BoundaryPath:   getenv("BOUNDARY_PATH", ""),
		WeightPolicy:   getenv("WEIGHT_POLICY", "segment"),
		SpatialIndex:   getbool("SPATIAL_INDEX", true),
		DefaultLon:     getfloat("DEFAULT_INCIDENT_LON", 36.7805),
		DefaultLat:     getfloat("DEFAULT_INCIDENT_LAT", -1.2920),
		ExportDir:      getenv("EXPORT_DIR", ""),
		H3Res:          res,
		HotHalfLife:    getduration("HOT_HALF_LIFE", 10*time.Minute),
		HotThreshold:   getfloat("HOT_THRESHOLD", 0),
		RateLimitRPS:   getfloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getint("RATE_LIMIT_BURST", 20),
		MetricsEnabled: getbool("METRICS_ENABLED", true),

		RouteCache: RouteCacheCfg{
			Enabled:   getbool("ROUTE_CACHE_ENABLED", true),
			LRUSize:   getint("ROUTE_CACHE_LRU_SIZE", 4096),
			TTL:       getduration("ROUTE_CACHE_TTL", 10*time.Minute),
			RedisAddr: getenv("REDIS_ADDR", ""),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

			SweepStale: getbool("ROUTE_CACHE_SWEEP_STALE", true),
		},
		DispatchEvents: DispatchEventsCfg{
			Enabled:   getbool("DISPATCH_EVENTS_ENABLED", false),
			Brokers:   getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:     getenv("DISPATCH_EVENTS_TOPIC", "dispatch-routes"),
			QueueSize: getint("DISPATCH_EVENTS_QUEUE", 1024),
		},
	}
}

// BrokerList splits a comma separated broker list, dropping blanks.
func (c DispatchEventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
