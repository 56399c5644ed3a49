package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/storage"
)

type itemRequest struct {
	ID              string     `json:"id" validate:"required,max=256"`
	Title           string     `json:"title" validate:"max=1024"`
	Category        string     `json:"category" validate:"max=128"`
	ChannelID       string     `json:"channel_id" validate:"max=256"`
	Tags            []string   `json:"tags" validate:"max=64,dive,max=128"`
	CreatedAt       *time.Time `json:"created_at"`
	DurationSeconds float64    `json:"duration_seconds" validate:"gte=0"`
	Type            string     `json:"type" validate:"omitempty,oneof=video short"`
	ViewCount       int64      `json:"view_count" validate:"gte=0"`
	LikeCount       int64      `json:"like_count" validate:"gte=0"`
	DislikeCount    int64      `json:"dislike_count" validate:"gte=0"`
	CommentCount    int64      `json:"comment_count" validate:"gte=0"`
	Region          string     `json:"region" validate:"max=16"`
	Visibility      string     `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
}

func (req itemRequest) item() content.Item {
	it := content.Item{
		ID:              req.ID,
		Title:           req.Title,
		Category:        req.Category,
		ChannelID:       req.ChannelID,
		Tags:            req.Tags,
		DurationSeconds: req.DurationSeconds,
		Type:            content.Type(req.Type),
		ViewCount:       req.ViewCount,
		LikeCount:       req.LikeCount,
		DislikeCount:    req.DislikeCount,
		CommentCount:    req.CommentCount,
		Region:          req.Region,
		Visibility:      content.Visibility(req.Visibility),
	}
	if req.CreatedAt != nil {
		it.CreatedAt = req.CreatedAt.UTC()
	}
	return it
}

func handleUpsertItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req itemRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		if err := deps.Store.UpsertItem(req.item()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save item: %v", err)
			return
		}
		saved, err := deps.Store.GetItem(req.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reload item: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func handleListItems(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		typ, err := content.ParseType(q.Get("type"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		items, err := deps.Store.ListItems(storage.ItemFilter{
			ChannelID:  q.Get("channel_id"),
			Type:       typ,
			PublicOnly: q.Get("public") == "true",
			Limit:      parseIntParam(r, "limit", 50, maxListLimit),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list items: %v", err)
			return
		}
		if items == nil {
			items = []content.Item{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleGetItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := deps.Store.GetItem(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get item: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleDeleteItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteItem(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete item: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
