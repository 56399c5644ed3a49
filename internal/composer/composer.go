package composer

import (
	"sort"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/reranking"
	"github.com/kalambet/clipfeed/internal/scoring"
)

const maxDiscovery = 100

// Breakdown holds the raw, unweighted signal values for one item.
type Breakdown struct {
	Interest  float64 `json:"interest"`
	Trending  float64 `json:"trending"`
	Discovery float64 `json:"discovery"`
	Regional  float64 `json:"regional"`
}

// ScoredItem is an item with its blended score. Never persisted.
type ScoredItem struct {
	content.Item
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Composer blends interest, trending, discovery and regional signals into
// one ordering. It is safe for concurrent use when its Rand is.
type Composer struct {
	rand     reranking.Rand
	reranker reranking.Reranker
}

// New creates a Composer. A nil rand gets an unseeded locked generator and a
// nil reranker disables perturbation.
func New(r reranking.Rand, rr reranking.Reranker) *Composer {
	if r == nil {
		r = reranking.NewLockedRand(nil)
	}
	if rr == nil {
		rr = reranking.NoOp{}
	}
	return &Composer{rand: r, reranker: rr}
}

// Reranker returns the perturbation step in use.
func (c *Composer) Reranker() reranking.Reranker { return c.reranker }

// Compose orders items for the viewer and returns them without scores.
func (c *Composer) Compose(items []content.Item, p profile.InterestProfile, cfg FeedConfig, now time.Time) []content.Item {
	scored := c.ComposeScored(items, p, cfg, now)
	out := make([]content.Item, len(scored))
	for i, s := range scored {
		out[i] = s.Item
	}
	return out
}

// ComposeScored orders items for the viewer and keeps each item's score and
// breakdown. Discovery is drawn fresh on every call.
func (c *Composer) ComposeScored(items []content.Item, p profile.InterestProfile, cfg FeedConfig, now time.Time) []ScoredItem {
	if len(items) == 0 {
		return []ScoredItem{}
	}

	w := cfg.Weights.Normalize()
	scored := make([]ScoredItem, len(items))
	entries := make([]reranking.Entry, len(items))
	for i, it := range items {
		b := Breakdown{
			Interest:  scoring.Relevance(it, p),
			Trending:  scoring.Trending(it, now),
			Discovery: reranking.Uniform(c.rand, 0, maxDiscovery),
			Regional:  scoring.Regional(it, cfg.UserRegion),
		}
		total := b.Interest*w.Interest + b.Trending*w.Trending +
			b.Discovery*w.Discovery + b.Regional*w.Regional
		scored[i] = ScoredItem{Item: it, Score: total, Breakdown: b}
		entries[i] = reranking.Entry{Index: i, Total: total}
	}
	if len(items) == 1 {
		return scored
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	entries = c.reranker.Rerank(entries)

	out := make([]ScoredItem, len(entries))
	for i, e := range entries {
		out[i] = scored[e.Index]
	}
	return out
}
