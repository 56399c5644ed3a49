package scoring

import (
	"math"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
)

const (
	rankHalfLifeHours  = 168
	freshWindowHours   = 24
	freshnessBoost     = 1.5
	longFormThresholdS = 60
	watchTimeNormS     = 600
	maxWatchTimeFactor = 2
	neutralLikeRatio   = 0.5
	ctrBoostScale      = 10
)

// categoryBoost multiplies ItemRank per category. Unlisted categories get 1.
var categoryBoost = map[string]float64{
	"Entertainment": 1.2,
	"Music":         1.3,
	"Gaming":        1.1,
	"Comedy":        1.2,
	"Education":     1.1,
}

// CategoryBoost returns the rank multiplier for category.
func CategoryBoost(category string) float64 {
	if b, ok := categoryBoost[category]; ok {
		return b
	}
	return 1
}

// ItemRank is a viewer-independent popularity score used for "most popular
// on this channel" style orderings. It decays continuously with a one-week
// time constant, unlike Trending's whole-day decay.
func ItemRank(item content.Item, now time.Time) float64 {
	views := float64(nonNeg(item.ViewCount))
	likes := float64(nonNeg(item.LikeCount))
	dislikes := float64(nonNeg(item.DislikeCount))
	comments := float64(nonNeg(item.CommentCount))

	ageHours := item.AgeHours(now)
	decay := math.Exp(-ageHours / rankHalfLifeHours)

	var engagementRate float64
	if views > 0 {
		engagementRate = (likes + 2*comments) / views
	}
	ctrBoost := math.Min(engagementRate*ctrBoostScale, 1)

	watchTime := 1.0
	if item.DurationSeconds > longFormThresholdS {
		watchTime = math.Min(item.DurationSeconds/watchTimeNormS, maxWatchTimeFactor) * engagementRate
	}

	likeRatio := neutralLikeRatio
	if likes+dislikes > 0 {
		likeRatio = likes / (likes + dislikes)
	}

	fresh := 1.0
	if ageHours < freshWindowHours {
		fresh = freshnessBoost
	}

	return math.Log1p(views) * math.Log1p(likes) * math.Log1p(comments) *
		decay * (1 + ctrBoost) * watchTime * likeRatio * fresh * CategoryBoost(item.Category)
}
