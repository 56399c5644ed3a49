package profile

import (
	"errors"
	"fmt"
	"time"
)

// MaxRecentInteractions caps the per-viewer event history.
const MaxRecentInteractions = 100

// DefaultViewerKey is the store key used when no viewer id is supplied.
const DefaultViewerKey = "_anonymous"

// ErrUnknownKind is returned when an event carries a kind outside the
// four tracked actions.
var ErrUnknownKind = errors.New("unknown interaction kind")

// Kind is the tracked user action.
type Kind string

const (
	KindView      Kind = "view"
	KindLike      Kind = "like"
	KindComment   Kind = "comment"
	KindSubscribe Kind = "subscribe"
)

// Weight returns the score increment for the kind. Unknown kinds weigh 0.
func (k Kind) Weight() float64 {
	switch k {
	case KindView:
		return 1
	case KindLike:
		return 3
	case KindComment:
		return 5
	case KindSubscribe:
		return 10
	default:
		return 0
	}
}

// Valid reports whether k is one of the tracked kinds.
func (k Kind) Valid() bool {
	return k.Weight() > 0
}

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// InteractionEvent is one behavioural event. Empty Category/ChannelID and a
// nil WatchDurationSeconds mean the field was not supplied.
type InteractionEvent struct {
	ContentID            string    `json:"content_id"`
	ChannelID            string    `json:"channel_id,omitempty"`
	Category             string    `json:"category,omitempty"`
	Tags                 []string  `json:"tags"`
	Kind                 Kind      `json:"kind"`
	Timestamp            time.Time `json:"timestamp"`
	WatchDurationSeconds *float64  `json:"watch_duration_seconds,omitempty"`
}

// InterestProfile is the accumulated affinity record of one viewer.
// RecentInteractions is ordered most-recent-first.
type InterestProfile struct {
	Categories         map[string]float64 `json:"categories"`
	Channels           map[string]float64 `json:"channels"`
	Tags               map[string]float64 `json:"tags"`
	RecentInteractions []InteractionEvent `json:"recent_interactions"`
}

// NewInterestProfile returns an empty profile with allocated maps.
func NewInterestProfile() InterestProfile {
	return InterestProfile{
		Categories:         map[string]float64{},
		Channels:           map[string]float64{},
		Tags:               map[string]float64{},
		RecentInteractions: []InteractionEvent{},
	}
}

// IsEmpty reports whether the profile carries no signal.
func (p InterestProfile) IsEmpty() bool {
	return len(p.Categories) == 0 && len(p.Channels) == 0 && len(p.Tags) == 0 && len(p.RecentInteractions) == 0
}

// Apply folds ev into the profile: the event is pushed to the head of the
// history (dropping from the tail past MaxRecentInteractions) and the
// category, channel and tag maps are incremented. Tags count half.
func (p *InterestProfile) Apply(ev InteractionEvent) {
	if p.Categories == nil {
		p.Categories = map[string]float64{}
	}
	if p.Channels == nil {
		p.Channels = map[string]float64{}
	}
	if p.Tags == nil {
		p.Tags = map[string]float64{}
	}

	recent := make([]InteractionEvent, 0, min(len(p.RecentInteractions)+1, MaxRecentInteractions))
	recent = append(recent, ev)
	for _, old := range p.RecentInteractions {
		if len(recent) == MaxRecentInteractions {
			break
		}
		recent = append(recent, old)
	}
	p.RecentInteractions = recent

	w := ev.Kind.Weight()
	if ev.Category != "" {
		p.Categories[ev.Category] += w
	}
	if ev.ChannelID != "" {
		p.Channels[ev.ChannelID] += w
	}
	for _, tag := range ev.Tags {
		if tag == "" {
			continue
		}
		p.Tags[tag] += w * 0.5
	}
}

// Affinity is a single named weight, used for summaries.
type Affinity struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Summary lists a viewer's strongest affinities per dimension.
type Summary struct {
	ViewerKey         string     `json:"viewer_key"`
	TopCategories     []Affinity `json:"top_categories"`
	TopChannels       []Affinity `json:"top_channels"`
	TopTags           []Affinity `json:"top_tags"`
	InteractionsCount int        `json:"interactions_count"`
}
