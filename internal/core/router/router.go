package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/incident-router/internal/core/config"
	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/core/observability"
	"github.com/mohammed-shakir/incident-router/internal/export"
	"github.com/mohammed-shakir/incident-router/internal/hotness"
	"github.com/mohammed-shakir/incident-router/internal/locate"
)

// RouteService answers validated route queries.
type RouteService interface {
	Route(ctx context.Context, cat model.Category, incident model.Point) (model.RouteResult, error)
	Facilities(cat model.Category) []model.FacilityRecord
	Hotspots(n, res int) ([]hotness.Hotspot, error)
}

type Format string

const (
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
)

type RouteRequest struct {
	Category model.Category
	Incident model.Point
	Format   Format
}

// HandleRoute serves GET /route. layers are added to every GeoJSON overlay it
// returns or exports.
func HandleRoute(logger *slog.Logger, cfg config.Config, svc RouteService, layers ...export.OverlayOption) http.HandlerFunc {
	def := model.Point{X: cfg.DefaultLon, Y: cfg.DefaultLat}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/route", sw.code, time.Since(start).Seconds())
		}()

		req, err := ParseRouteRequest(r, def)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := svc.Route(r.Context(), req.Category, req.Incident)
		switch {
		case errors.Is(err, locate.ErrEmptyGraph):
			http.Error(sw, "road network is empty", http.StatusServiceUnavailable)
			return
		case errors.Is(err, model.ErrUnknownCategory):
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			logger.ErrorContext(r.Context(), "route query failed", "category", req.Category.String(), "err", err)
			http.Error(sw, "internal error", http.StatusInternalServerError)
			return
		}

		if cfg.ExportDir != "" {
			saveExports(logger, cfg.ExportDir, res, layers)
		}

		code := http.StatusOK
		if res.Status == model.StatusNoFacility {
			code = http.StatusNotFound
		}
		if err := writeResult(sw, code, req.Format, res, layers); err != nil {
			logger.WarnContext(r.Context(), "write route response", "err", err)
		}
	}
}

// HandleFacilities serves GET /facilities?category=...
func HandleFacilities(_ *slog.Logger, svc RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/facilities", sw.code, time.Since(start).Seconds())
		}()

		cat, err := model.ParseCategory(r.URL.Query().Get("category"))
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(sw, http.StatusOK, svc.Facilities(cat))
	}
}

// HandleHotspots serves GET /hotspots?limit=&res=
func HandleHotspots(logger *slog.Logger, svc RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/hotspots", sw.code, time.Since(start).Seconds())
		}()

		limit, err := intParam(r, "limit", 10, 0, 1000)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}
		res, err := intParam(r, "res", -1, -1, 15)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}
		spots, err := svc.Hotspots(limit, res)
		if err != nil {
			logger.ErrorContext(r.Context(), "hotspots failed", "err", err)
			http.Error(sw, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(sw, http.StatusOK, spots)
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseRouteRequest validates the query string. lon and lat must be given
// together; when both are absent def is used.
func ParseRouteRequest(r *http.Request, def model.Point) (RouteRequest, error) {
	q := r.URL.Query()

	rawCat := strings.TrimSpace(q.Get("category"))
	if rawCat == "" {
		return RouteRequest{}, errors.New("missing required parameter: category")
	}
	cat, err := model.ParseCategory(rawCat)
	if err != nil {
		return RouteRequest{}, err
	}

	incident := def
	rawLon, rawLat := strings.TrimSpace(q.Get("lon")), strings.TrimSpace(q.Get("lat"))
	switch {
	case rawLon == "" && rawLat == "":
	case rawLon == "" || rawLat == "":
		return RouteRequest{}, errors.New("lon and lat must be supplied together")
	default:
		lon, err := parseFloat(rawLon)
		if err != nil {
			return RouteRequest{}, fmt.Errorf("invalid lon: %w", err)
		}
		lat, err := parseFloat(rawLat)
		if err != nil {
			return RouteRequest{}, fmt.Errorf("invalid lat: %w", err)
		}
		if lon < -180 || lon > 180 {
			return RouteRequest{}, errors.New("longitude must be in [-180,180]")
		}
		if lat < -90 || lat > 90 {
			return RouteRequest{}, errors.New("latitude must be in [-90,90]")
		}
		incident = model.Point{X: lon, Y: lat}
	}

	format, err := negotiateFormat(q.Get("format"), r.Header.Get("Accept"))
	if err != nil {
		return RouteRequest{}, err
	}
	return RouteRequest{Category: cat, Incident: incident, Format: format}, nil
}

// explicit format wins over the Accept header
func negotiateFormat(param, accept string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "":
	case "json":
		return FormatJSON, nil
	case "geojson":
		return FormatGeoJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json|geojson|csv)", param)
	}
	a := strings.ToLower(accept)
	switch {
	case strings.Contains(a, "application/geo+json"):
		return FormatGeoJSON, nil
	case strings.Contains(a, "text/csv"):
		return FormatCSV, nil
	default:
		return FormatJSON, nil
	}
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be in [%d,%d]", name, lo, hi)
	}
	return n, nil
}

func writeResult(w http.ResponseWriter, code int, f Format, res model.RouteResult, layers []export.OverlayOption) error {
	switch f {
	case FormatGeoJSON:
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(code)
		return export.WriteOverlay(w, res, layers...)
	case FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(code)
		return export.WriteResultsCSV(w, res)
	default:
		writeJSON(w, code, res)
		return nil
	}
}

// writeJSON encodes before writing the status so an unencodable value becomes
// a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}

func saveExports(logger *slog.Logger, dir string, res model.RouteResult, layers []export.OverlayOption) {
	overlay := filepath.Join(dir, "route-"+res.Category.String()+".geojson")
	if err := export.SaveFile(overlay, func(w io.Writer) error { return export.WriteOverlay(w, res, layers...) }); err != nil {
		logger.Warn("save route overlay", "path", overlay, "err", err)
	}
	results := filepath.Join(dir, "results.csv")
	if err := export.SaveFile(results, func(w io.Writer) error { return export.WriteResultsCSV(w, res) }); err != nil {
		logger.Warn("save results csv", "path", results, "err", err)
	}
}
