package content

import (
	"testing"
	"time"
)

func TestAge_ClampsFutureItems(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	it := Item{CreatedAt: now.Add(3 * time.Hour)}

	if got := it.AgeHours(now); got != 0 {
		t.Errorf("AgeHours = %v, want 0 for an item created in the future", got)
	}
	if got := it.AgeDays(now); got != 0 {
		t.Errorf("AgeDays = %v, want 0", got)
	}
}

func TestAgeDays_Floors(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{0, 0},
		{23 * time.Hour, 0},
		{24 * time.Hour, 1},
		{47*time.Hour + 59*time.Minute, 1},
		{30 * 24 * time.Hour, 30},
	}
	for _, tt := range tests {
		it := Item{CreatedAt: now.Add(-tt.age)}
		if got := it.AgeDays(now); got != tt.want {
			t.Errorf("AgeDays(age=%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestIsPublic(t *testing.T) {
	cases := map[Visibility]bool{
		"":                 true,
		VisibilityPublic:   true,
		VisibilityUnlisted: false,
		VisibilityPrivate:  false,
	}
	for v, want := range cases {
		if got := (Item{Visibility: v}).IsPublic(); got != want {
			t.Errorf("IsPublic(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("video"); err != nil {
		t.Errorf("ParseType(video) error: %v", err)
	}
	if got, err := ParseType(""); err != nil || got != "" {
		t.Errorf("ParseType(\"\") = %q, %v; want empty, nil", got, err)
	}
	if _, err := ParseType("podcast"); err == nil {
		t.Error("expected error for unknown type")
	}
}
