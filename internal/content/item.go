package content

import (
	"fmt"
	"time"
)

// Type distinguishes long-form videos from shorts.
type Type string

const (
	TypeVideo Type = "video"
	TypeShort Type = "short"
)

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	return t == TypeVideo || t == TypeShort
}

// ParseType converts a raw string into a Type. The empty string is accepted
// and means "any type" in filters.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if s == "" || t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// Visibility controls whether an item may be surfaced to other viewers.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Item is a single video or short with the metadata and engagement counters
// the ranking engine reads. The engine never mutates an Item.
type Item struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Category        string     `json:"category,omitempty"`
	ChannelID       string     `json:"channel_id,omitempty"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	DurationSeconds float64    `json:"duration_seconds"`
	Type            Type       `json:"type"`
	ViewCount       int64      `json:"view_count"`
	LikeCount       int64      `json:"like_count"`
	DislikeCount    int64      `json:"dislike_count"`
	CommentCount    int64      `json:"comment_count"`
	Region          string     `json:"region,omitempty"`
	Visibility      Visibility `json:"visibility"`
}

// IsPublic reports whether the item may appear in feeds and related lists.
// An unset visibility is treated as public.
func (it Item) IsPublic() bool {
	return it.Visibility == "" || it.Visibility == VisibilityPublic
}

// AgeHours returns the item's age relative to now, clamped at zero so that
// clock skew never produces a negative age.
func (it Item) AgeHours(now time.Time) float64 {
	h := now.Sub(it.CreatedAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// AgeDays returns the whole number of days since creation.
func (it Item) AgeDays(now time.Time) float64 {
	return float64(int64(it.AgeHours(now) / 24))
}
