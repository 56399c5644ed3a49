package api

import (
	"net/http"

	"github.com/kalambet/clipfeed/internal/profile"
)

type profileResponse struct {
	Summary profile.Summary         `json:"summary"`
	Profile profile.InterestProfile `json:"profile"`
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := r.URL.Query().Get("viewer_id")
		p, err := deps.Profiles.Get(r.Context(), viewerID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		top := parseIntParam(r, "top", 5, 50)
		writeJSON(w, http.StatusOK, profileResponse{
			Summary: profile.Summarize(profile.ViewerKey(viewerID), p, top),
			Profile: p,
		})
	}
}

func handleDeleteProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := r.URL.Query().Get("viewer_id")
		if err := deps.Profiles.Wipe(r.Context(), viewerID); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "deleted",
			"viewer_key": profile.ViewerKey(viewerID),
		})
	}
}

func handleListViewers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := deps.Store.ListViewerKeys()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list viewers: %v", err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		writeJSON(w, http.StatusOK, keys)
	}
}
