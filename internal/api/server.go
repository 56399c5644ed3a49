package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/clipfeed/internal/ingest"
	"github.com/kalambet/clipfeed/internal/metrics"
	"github.com/kalambet/clipfeed/internal/pipeline"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/storage"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	maxListLimit       = 500
)

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Store    *storage.Store
	Profiles *profile.Manager
	Feeder   *pipeline.Feeder
	Ingest   *ingest.Service
	Token    string

	// RequestsPerMinute caps authenticated requests per client IP.
	// Zero disables rate limiting.
	RequestsPerMinute int
}

// NewHandler builds the full HTTP surface. /health and /metrics are open;
// everything else requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/health", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		if deps.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(deps.RequestsPerMinute, time.Minute))
		}

		r.Post("/interactions", handleRecordInteraction(deps))
		r.Get("/interactions", handleListInteractions(deps))
		r.Delete("/interactions", handleClearInteractions(deps))

		r.Get("/feed", handleFeed(deps))

		r.Put("/items", handleUpsertItem(deps))
		r.Get("/items", handleListItems(deps))
		r.Get("/items/{id}", handleGetItem(deps))
		r.Delete("/items/{id}", handleDeleteItem(deps))
		r.Get("/items/{id}/related", handleRelated(deps))

		r.Get("/channels/{id}/popular", handlePopular(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Delete("/profile", handleDeleteProfile(deps))
		r.Get("/viewers", handleListViewers(deps))
	})

	return r
}

// instrument records request count and latency per matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store != nil {
			if err := deps.Store.Ping(); err != nil {
				httpError(w, http.StatusServiceUnavailable, "api_error", "storage unavailable: %v", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

// parseFloatParam returns the parsed value and whether the parameter was set.
func parseFloatParam(r *http.Request, key string) (float64, bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number", key)
	}
	return v, true, nil
}
