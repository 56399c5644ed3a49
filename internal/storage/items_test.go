package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
)

func sampleItem(id string, created time.Time) content.Item {
	return content.Item{
		ID:              id,
		Title:           "Title " + id,
		Category:        "Gaming",
		ChannelID:       "ch1",
		Tags:            []string{"retro", "speedrun"},
		CreatedAt:       created,
		DurationSeconds: 312.5,
		Type:            content.TypeVideo,
		ViewCount:       1000,
		LikeCount:       50,
		DislikeCount:    3,
		CommentCount:    10,
		Region:          "US",
		Visibility:      content.VisibilityPublic,
	}
}

func TestUpsertAndGetItem(t *testing.T) {
	s := openTestStore(t)
	created := time.Date(2025, 4, 1, 8, 30, 0, 0, time.UTC)
	want := sampleItem("v1", created)

	if err := s.UpsertItem(want); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	got, err := s.GetItem("v1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != want.Title || got.Category != want.Category || got.ChannelID != want.ChannelID {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if got.DurationSeconds != 312.5 || got.ViewCount != 1000 || got.DislikeCount != 3 {
		t.Errorf("counters mismatch: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "retro" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.Region != "US" || got.Type != content.TypeVideo || got.Visibility != content.VisibilityPublic {
		t.Errorf("enum fields mismatch: %+v", got)
	}
}

func TestUpsertItem_Replaces(t *testing.T) {
	s := openTestStore(t)
	it := sampleItem("v1", time.Now())
	s.UpsertItem(it)

	it.ViewCount = 5
	it.Title = "renamed"
	if err := s.UpsertItem(it); err != nil {
		t.Fatalf("second UpsertItem: %v", err)
	}
	got, _ := s.GetItem("v1")
	if got.ViewCount != 5 || got.Title != "renamed" {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestUpsertItem_Defaults(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertItem(content.Item{ID: "bare"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	got, err := s.GetItem("bare")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Type != content.TypeVideo || got.Visibility != content.VisibilityPublic {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty slice", got.Tags)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestGetItem_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetItem("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListItems_Filters(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	a := sampleItem("a", base)
	b := sampleItem("b", base.Add(time.Hour))
	b.Type = content.TypeShort
	c := sampleItem("c", base.Add(2*time.Hour))
	c.ChannelID = "ch2"
	d := sampleItem("d", base.Add(3*time.Hour))
	d.Visibility = content.VisibilityPrivate
	for _, it := range []content.Item{a, b, c, d} {
		if err := s.UpsertItem(it); err != nil {
			t.Fatalf("UpsertItem %s: %v", it.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter ItemFilter
		want   []string
	}{
		{"all newest first", ItemFilter{}, []string{"d", "c", "b", "a"}},
		{"public only", ItemFilter{PublicOnly: true}, []string{"c", "b", "a"}},
		{"channel", ItemFilter{ChannelID: "ch1"}, []string{"d", "b", "a"}},
		{"shorts", ItemFilter{Type: content.TypeShort}, []string{"b"}},
		{"limit", ItemFilter{Limit: 2}, []string{"d", "c"}},
		{"combined", ItemFilter{ChannelID: "ch1", Type: content.TypeVideo, PublicOnly: true}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListItems(tt.filter)
			if err != nil {
				t.Fatalf("ListItems: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestDeleteItem(t *testing.T) {
	s := openTestStore(t)
	s.UpsertItem(sampleItem("v1", time.Now()))

	if err := s.DeleteItem("v1"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := s.GetItem("v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("item still present after delete: %v", err)
	}
	if err := s.DeleteItem("v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestBumpEngagement(t *testing.T) {
	s := openTestStore(t)
	s.UpsertItem(sampleItem("v1", time.Now()))

	for _, kind := range []string{"view", "view", "like", "comment", "subscribe"} {
		if err := s.BumpEngagement("v1", kind); err != nil {
			t.Fatalf("BumpEngagement(%s): %v", kind, err)
		}
	}
	got, _ := s.GetItem("v1")
	if got.ViewCount != 1002 || got.LikeCount != 51 || got.CommentCount != 11 {
		t.Errorf("counters = %d/%d/%d, want 1002/51/11", got.ViewCount, got.LikeCount, got.CommentCount)
	}

	if err := s.BumpEngagement("missing", "view"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
}
