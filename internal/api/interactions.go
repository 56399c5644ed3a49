package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kalambet/clipfeed/internal/metrics"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/storage"
)

type interactionRequest struct {
	ViewerID             string     `json:"viewer_id" validate:"max=256"`
	ContentID            string     `json:"content_id" validate:"required,max=256"`
	ChannelID            string     `json:"channel_id" validate:"max=256"`
	Category             string     `json:"category" validate:"max=128"`
	Tags                 []string   `json:"tags" validate:"max=64,dive,max=128"`
	Kind                 string     `json:"kind" validate:"required,oneof=view like comment subscribe"`
	Timestamp            *time.Time `json:"timestamp"`
	WatchDurationSeconds *float64   `json:"watch_duration_seconds" validate:"omitempty,gte=0"`
}

func (req interactionRequest) event() profile.InteractionEvent {
	ev := profile.InteractionEvent{
		ContentID:            req.ContentID,
		ChannelID:            req.ChannelID,
		Category:             req.Category,
		Tags:                 req.Tags,
		Kind:                 profile.Kind(req.Kind),
		WatchDurationSeconds: req.WatchDurationSeconds,
	}
	if req.Timestamp != nil {
		ev.Timestamp = req.Timestamp.UTC()
	}
	return ev
}

type interactionResponse struct {
	ID                   string    `json:"id"`
	ViewerKey            string    `json:"viewer_key"`
	ContentID            string    `json:"content_id"`
	ChannelID            string    `json:"channel_id,omitempty"`
	Category             string    `json:"category,omitempty"`
	Tags                 []string  `json:"tags"`
	Kind                 string    `json:"kind"`
	WatchDurationSeconds *float64  `json:"watch_duration_seconds,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

func toInteractionResponse(i storage.Interaction) interactionResponse {
	tags := i.Tags
	if tags == nil {
		tags = []string{}
	}
	return interactionResponse{
		ID:                   i.ID,
		ViewerKey:            i.ViewerKey,
		ContentID:            i.ContentID,
		ChannelID:            i.ChannelID,
		Category:             i.Category,
		Tags:                 tags,
		Kind:                 i.Kind,
		WatchDurationSeconds: i.WatchDurationSeconds,
		CreatedAt:            i.CreatedAt,
	}
}

func handleRecordInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req interactionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		ev := req.event()
		viewer := profile.ViewerKey(req.ViewerID)

		if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
			jobID, err := deps.Ingest.Enqueue(req.ViewerID, ev)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue interaction: %v", err)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":     "queued",
				"job_id":     jobID,
				"viewer_key": viewer,
			})
			return
		}

		p, err := deps.Ingest.Apply(r.Context(), req.ViewerID, ev)
		metrics.RecordInteraction(req.Kind, "sync", err)
		if errors.Is(err, profile.ErrUnknownKind) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to record interaction: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":              "recorded",
			"viewer_key":          viewer,
			"recent_interactions": len(p.RecentInteractions),
		})
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := profile.ViewerKey(r.URL.Query().Get("viewer_id"))
		limit := parseIntParam(r, "limit", 20, maxListLimit)

		list, err := deps.Store.ListInteractions(viewer, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		out := make([]interactionResponse, len(list))
		for i, it := range list {
			out[i] = toInteractionResponse(it)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleClearInteractions drops the viewer's interaction log. The interest
// profile, including its recent history, is left alone.
func handleClearInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := profile.ViewerKey(r.URL.Query().Get("viewer_id"))
		n, err := deps.Store.DeleteInteractions(viewer)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear interactions: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "cleared",
			"viewer_key": viewer,
			"deleted":    n,
		})
	}
}
