package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/profile"
)

var testNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func TestRelevance_EmptyProfile(t *testing.T) {
	items := []content.Item{
		{},
		{Category: "Gaming", ChannelID: "ch1", Tags: []string{"a", "b"}},
	}
	empty := profile.NewInterestProfile()
	for _, it := range items {
		if got := Relevance(it, empty); got != 0 {
			t.Errorf("Relevance(%+v, empty) = %v, want 0", it, got)
		}
	}
	if got := Relevance(items[1], profile.InterestProfile{}); got != 0 {
		t.Errorf("Relevance with nil maps = %v, want 0", got)
	}
}

func TestRelevance_CategoryOnly(t *testing.T) {
	p := profile.NewInterestProfile()
	p.Categories["Gaming"] = 30

	got := Relevance(content.Item{Category: "Gaming"}, p)
	if got != 30 {
		t.Errorf("Relevance = %v, want 30", got)
	}
}

func TestRelevance_ChannelCountsDouble(t *testing.T) {
	p := profile.NewInterestProfile()
	p.Categories["Music"] = 4
	p.Channels["ch1"] = 5
	p.Tags["jazz"] = 1.5
	p.Tags["live"] = 0.5

	it := content.Item{Category: "Music", ChannelID: "ch1", Tags: []string{"jazz", "live", "unknown"}}
	if got, want := Relevance(it, p), 4+2*5+1.5+0.5; got != want {
		t.Errorf("Relevance = %v, want %v", got, want)
	}
}

func TestTrending_RecentBeatsOld(t *testing.T) {
	a := content.Item{CreatedAt: testNow, ViewCount: 1000, LikeCount: 50, CommentCount: 10}
	b := a
	b.CreatedAt = testNow.Add(-30 * 24 * time.Hour)

	ta, tb := Trending(a, testNow), Trending(b, testNow)
	if ta <= tb {
		t.Errorf("Trending(new)=%v should exceed Trending(30d)=%v", ta, tb)
	}
	// 1000 + 150 + 50 engagement, full recency bonus.
	if ta != 1300 {
		t.Errorf("Trending(new) = %v, want 1300", ta)
	}
}

func TestTrending_MonotonicInAge(t *testing.T) {
	base := content.Item{ViewCount: 500, LikeCount: 20, CommentCount: 4}
	prev := math.Inf(1)
	for h := 0; h <= 24*40; h += 7 {
		it := base
		it.CreatedAt = testNow.Add(-time.Duration(h) * time.Hour)
		got := Trending(it, testNow)
		if got > prev {
			t.Fatalf("Trending increased at age %dh: %v > %v", h, got, prev)
		}
		prev = got
	}
}

func TestTrending_ColdStartNonZero(t *testing.T) {
	it := content.Item{CreatedAt: testNow.Add(-2 * 24 * time.Hour)}
	got := Trending(it, testNow)
	if want := 5.0 / 7 * 100; math.Abs(got-want) > 1e-9 {
		t.Errorf("Trending(zero engagement, 2d) = %v, want %v", got, want)
	}
}

func TestTrending_FutureItemClamped(t *testing.T) {
	it := content.Item{CreatedAt: testNow.Add(48 * time.Hour), ViewCount: 10}
	if got := Trending(it, testNow); got != 110 {
		t.Errorf("Trending(future) = %v, want 110", got)
	}
}

func TestRegional(t *testing.T) {
	tests := []struct {
		itemRegion, viewer string
		want               float64
	}{
		{"US", "US", 100},
		{"US", "DE", 0},
		{"", "US", 0},
		{"US", "", 0},
		{"", "", 0},
		{"us", "US", 0},
	}
	for _, tt := range tests {
		got := Regional(content.Item{Region: tt.itemRegion}, tt.viewer)
		if got != tt.want {
			t.Errorf("Regional(%q, %q) = %v, want %v", tt.itemRegion, tt.viewer, got, tt.want)
		}
		if got != 0 && got != 100 {
			t.Errorf("Regional returned non-binary value %v", got)
		}
	}
}
