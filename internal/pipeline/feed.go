package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/clipfeed/internal/composer"
	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/metrics"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/related"
	"github.com/kalambet/clipfeed/internal/scoring"
	"github.com/kalambet/clipfeed/internal/storage"
)

const (
	defaultFeedLimit      = 20
	maxFeedLimit          = 100
	defaultCandidateLimit = 500
)

// ItemStore is the content collaborator the pipeline reads from.
// Implemented by storage.Store.
type ItemStore interface {
	GetItem(id string) (content.Item, error)
	ListItems(f storage.ItemFilter) ([]content.Item, error)
}

// ProfileLoader loads a viewer's interest profile.
// Implemented by profile.Manager.
type ProfileLoader interface {
	Get(ctx context.Context, viewerID string) (profile.InterestProfile, error)
}

// Options tune request defaults. Zero values pick the package defaults.
type Options struct {
	DefaultPreset  string
	DefaultLimit   int
	MaxLimit       int
	RelatedLimit   int
	CandidateLimit int
	Now            func() time.Time
}

// Feeder loads what a ranking request needs and runs the scorers over it.
type Feeder struct {
	items    ItemStore
	profiles ProfileLoader
	composer *composer.Composer
	opts     Options
}

// NewFeeder creates a Feeder wired to its collaborators.
func NewFeeder(items ItemStore, profiles ProfileLoader, comp *composer.Composer, opts Options) *Feeder {
	if opts.DefaultPreset == "" {
		opts.DefaultPreset = composer.DefaultPreset
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = maxFeedLimit
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultFeedLimit
	}
	opts.DefaultLimit = min(opts.DefaultLimit, opts.MaxLimit)
	if opts.RelatedLimit <= 0 {
		opts.RelatedLimit = related.DefaultLimit
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultCandidateLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Feeder{items: items, profiles: profiles, composer: comp, opts: opts}
}

// FeedRequest describes one feed. Overrides replace single weights of the
// resolved preset, which is the configured default when Preset is empty.
type FeedRequest struct {
	ViewerID  string
	Region    string
	Preset    string
	Type      content.Type
	Limit     int
	Overrides composer.Overrides
}

// FeedResult is an ordered feed plus diagnostics.
type FeedResult struct {
	Items           []composer.ScoredItem `json:"items"`
	Preset          string                `json:"preset"`
	Weights         composer.Weights      `json:"weights"`
	Candidates      int                   `json:"candidates"`
	Reranker        string                `json:"reranker"`
	ProfileDegraded bool                  `json:"profile_degraded,omitempty"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Feed loads the viewer profile and public candidates concurrently, then
// composes and truncates the feed. A profile that cannot be read degrades
// to an empty one; a candidate load failure is returned.
func (f *Feeder) Feed(ctx context.Context, req FeedRequest) (res FeedResult, err error) {
	start := time.Now()
	preset := req.Preset
	if preset == "" {
		preset = f.opts.DefaultPreset
	}
	cfg, err := composer.ConfigFromPreset(preset, req.ViewerID, req.Region)
	if err != nil {
		return FeedResult{}, err
	}
	defer func() {
		metrics.RecordFeed(preset, res.Candidates, time.Since(start), err)
	}()
	cfg.Weights = req.Overrides.Apply(cfg.Weights)

	var (
		prof       profile.InterestProfile
		candidates []content.Item
		degraded   bool
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := f.profiles.Get(gCtx, req.ViewerID)
		if err != nil {
			slog.Warn("feed: profile load failed, using empty profile", "viewer", profile.ViewerKey(req.ViewerID), "error", err)
			metrics.ProfileDegraded.Inc()
			p = profile.NewInterestProfile()
			degraded = true
		}
		prof = p
		return nil
	})
	g.Go(func() error {
		items, err := f.items.ListItems(storage.ItemFilter{
			Type:       req.Type,
			PublicOnly: true,
			Limit:      f.opts.CandidateLimit,
		})
		if err != nil {
			return fmt.Errorf("loading candidates: %w", err)
		}
		candidates = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return FeedResult{}, err
	}

	scored := f.composer.ComposeScored(candidates, prof, cfg, f.opts.Now())
	limit := f.clampLimit(req.Limit)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	slog.Debug("feed composed",
		"viewer", profile.ViewerKey(req.ViewerID),
		"preset", preset,
		"candidates", len(candidates),
		"returned", len(scored),
	)

	return FeedResult{
		Items:           scored,
		Preset:          preset,
		Weights:         cfg.Weights.Normalize(),
		Candidates:      len(candidates),
		Reranker:        f.composer.Reranker().Name(),
		ProfileDegraded: degraded,
		GeneratedAt:     f.opts.Now().UTC(),
	}, nil
}

// Related returns public items similar to itemID, drawn from all public
// items. storage.ErrNotFound is returned for an unknown target.
func (f *Feeder) Related(ctx context.Context, itemID string, limit int) ([]related.Scored, error) {
	start := time.Now()
	defer func() { metrics.RecordLookup("related", time.Since(start)) }()

	if limit <= 0 {
		limit = f.opts.RelatedLimit
	}
	limit = min(limit, f.opts.MaxLimit)

	target, err := f.items.GetItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item %s: %w", itemID, err)
	}
	candidates, err := f.items.ListItems(storage.ItemFilter{
		PublicOnly: true,
		Limit:      f.opts.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("loading related candidates: %w", err)
	}
	return related.RelatedScored(target, candidates, limit, f.opts.Now()), nil
}

// RankedItem is an item with its viewer-independent popularity rank.
type RankedItem struct {
	content.Item
	Rank float64 `json:"rank"`
}

// Popular returns a channel's public items ordered by ItemRank.
// Equal ranks keep the store's newest-first order.
func (f *Feeder) Popular(ctx context.Context, channelID string, limit int) ([]RankedItem, error) {
	start := time.Now()
	defer func() { metrics.RecordLookup("popular", time.Since(start)) }()

	items, err := f.items.ListItems(storage.ItemFilter{ChannelID: channelID, PublicOnly: true})
	if err != nil {
		return nil, fmt.Errorf("loading channel %s items: %w", channelID, err)
	}

	now := f.opts.Now()
	ranked := make([]RankedItem, len(items))
	for i, it := range items {
		ranked[i] = RankedItem{Item: it, Rank: scoring.ItemRank(it, now)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank > ranked[j].Rank
	})

	if n := f.clampLimit(limit); len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (f *Feeder) clampLimit(limit int) int {
	if limit <= 0 {
		return f.opts.DefaultLimit
	}
	return min(limit, f.opts.MaxLimit)
}
