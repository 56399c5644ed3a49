// Package scoring holds the pure, per-item signal functions the feed and
// popularity orderings are built from. None of them fail; missing fields
// contribute zero.
package scoring

import (
	"math"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/profile"
)

// RegionalMatchScore is returned by Regional on an exact region match.
const RegionalMatchScore = 100

// Relevance scores how well item matches the viewer's accumulated interests.
// Channel affinity counts double.
func Relevance(item content.Item, p profile.InterestProfile) float64 {
	var score float64
	if item.Category != "" {
		score += p.Categories[item.Category]
	}
	if item.ChannelID != "" {
		score += 2 * p.Channels[item.ChannelID]
	}
	for _, tag := range item.Tags {
		score += p.Tags[tag]
	}
	return score
}

// Trending returns engagement decayed by 0.9 per whole day of age, plus a
// linear bonus of up to 100 for items younger than a week.
func Trending(item content.Item, now time.Time) float64 {
	ageDays := item.AgeDays(now)
	recency := math.Max(0, 7-ageDays) / 7
	engagement := float64(nonNeg(item.ViewCount)) +
		3*float64(nonNeg(item.LikeCount)) +
		5*float64(nonNeg(item.CommentCount))
	decay := math.Pow(0.9, ageDays)
	return engagement*decay + recency*100
}

// Regional returns RegionalMatchScore when both regions are set and equal,
// otherwise 0.
func Regional(item content.Item, viewerRegion string) float64 {
	if item.Region == "" || viewerRegion == "" {
		return 0
	}
	if item.Region != viewerRegion {
		return 0
	}
	return RegionalMatchScore
}

func nonNeg(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
