package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/clipfeed/internal/composer"
	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/pipeline"
	"github.com/kalambet/clipfeed/internal/storage"
)

func handleFeed(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		typ, err := content.ParseType(q.Get("type"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		req := pipeline.FeedRequest{
			ViewerID: q.Get("viewer_id"),
			Region:   q.Get("region"),
			Preset:   q.Get("preset"),
			Type:     typ,
			Limit:    parseIntParam(r, "limit", 0, 0),
		}
		overrides, err := weightOverrides(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		req.Overrides = overrides

		res, err := deps.Feeder.Feed(r.Context(), req)
		if errors.Is(err, composer.ErrUnknownPreset) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to build feed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// weightOverrides reads the interest, trending, discovery and regional
// query parameters. The feeder applies them on top of the resolved preset.
func weightOverrides(r *http.Request) (composer.Overrides, error) {
	var o composer.Overrides
	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"interest", &o.Interest},
		{"trending", &o.Trending},
		{"discovery", &o.Discovery},
		{"regional", &o.Regional},
	} {
		v, ok, err := parseFloatParam(r, f.key)
		if err != nil {
			return composer.Overrides{}, err
		}
		if ok {
			*f.dst = &v
		}
	}
	return o, nil
}

func handleRelated(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		got, err := deps.Feeder.Related(r.Context(), id, parseIntParam(r, "limit", 0, 0))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to find related items: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, got)
	}
}

func handlePopular(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := chi.URLParam(r, "id")
		got, err := deps.Feeder.Popular(r.Context(), channel, parseIntParam(r, "limit", 0, 0))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to rank channel items: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, got)
	}
}
