// Package related finds content similar to a target item using category,
// tag and title overlap plus light popularity and recency terms.
package related

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kalambet/clipfeed/internal/content"
)

// DefaultLimit is used when the caller passes a non-positive limit.
const DefaultLimit = 12

const (
	categoryMatchScore = 10
	tagOverlapScore    = 3
	titleTokenScore    = 2
	durationMatchScore = 2
	durationWindowS    = 300
	popularityScale    = 0.5
	recentBonusScore   = 2
	recentWindowDays   = 7
	minTitleTokenRunes = 4
)

// Scored pairs a candidate with its similarity score.
type Scored struct {
	content.Item
	Score float64 `json:"score"`
}

// Related returns up to limit public candidates most similar to target,
// never including target itself. Ties keep input order.
func Related(target content.Item, candidates []content.Item, limit int, now time.Time) []content.Item {
	scored := RelatedScored(target, candidates, limit, now)
	out := make([]content.Item, len(scored))
	for i, s := range scored {
		out[i] = s.Item
	}
	return out
}

// RelatedScored is Related with scores attached.
func RelatedScored(target content.Item, candidates []content.Item, limit int, now time.Time) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}

	targetTags := toSet(target.Tags)
	targetTokens := titleTokens(target.Title)

	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID || !c.IsPublic() {
			continue
		}
		out = append(out, Scored{Item: c, Score: score(target, targetTags, targetTokens, c, now)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Score returns the similarity of candidate to target.
func Score(target, candidate content.Item, now time.Time) float64 {
	return score(target, toSet(target.Tags), titleTokens(target.Title), candidate, now)
}

func score(target content.Item, targetTags, targetTokens map[string]struct{}, c content.Item, now time.Time) float64 {
	var s float64

	if target.Category != "" && c.Category == target.Category {
		s += categoryMatchScore
	}

	for tag := range toSet(c.Tags) {
		if _, ok := targetTags[tag]; ok {
			s += tagOverlapScore
		}
	}

	for tok := range titleTokens(c.Title) {
		if _, ok := targetTokens[tok]; ok {
			s += titleTokenScore
		}
	}

	if c.Type == target.Type && math.Abs(c.DurationSeconds-target.DurationSeconds) < durationWindowS {
		s += durationMatchScore
	}

	views := float64(max(c.ViewCount, 0))
	likes := float64(max(c.LikeCount, 0))
	s += popularityScale * math.Log1p(views+likes)

	if c.AgeDays(now) < recentWindowDays {
		s += recentBonusScore
	}
	return s
}

// titleTokens lower-cases the title, splits on whitespace and keeps tokens
// longer than three runes.
func titleTokens(title string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		if utf8.RuneCountInString(tok) >= minTitleTokenRunes {
			set[tok] = struct{}{}
		}
	}
	return set
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
