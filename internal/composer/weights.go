package composer

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPreset is returned for a preset name that is not registered.
var ErrUnknownPreset = errors.New("unknown feed preset")

// DefaultPreset is used when a request names no preset.
const DefaultPreset = "balanced"

// Weights are the per-signal blend weights. They need not sum to 1.
type Weights struct {
	Interest  float64 `json:"interest"`
	Trending  float64 `json:"trending"`
	Discovery float64 `json:"discovery"`
	Regional  float64 `json:"regional"`
}

// Sum returns the total of the non-negative weights.
func (w Weights) Sum() float64 {
	w = w.clamped()
	return w.Interest + w.Trending + w.Discovery + w.Regional
}

// Normalize returns a copy scaled to sum to 1. Negative weights count as 0;
// if nothing is left the four signals share equally.
func (w Weights) Normalize() Weights {
	w = w.clamped()
	sum := w.Interest + w.Trending + w.Discovery + w.Regional
	if sum == 0 {
		return Weights{Interest: 0.25, Trending: 0.25, Discovery: 0.25, Regional: 0.25}
	}
	return Weights{
		Interest:  w.Interest / sum,
		Trending:  w.Trending / sum,
		Discovery: w.Discovery / sum,
		Regional:  w.Regional / sum,
	}
}

func (w Weights) clamped() Weights {
	return Weights{
		Interest:  max(w.Interest, 0),
		Trending:  max(w.Trending, 0),
		Discovery: max(w.Discovery, 0),
		Regional:  max(w.Regional, 0),
	}
}

// Overrides replaces individual weights of a base set. Nil fields keep
// the base value.
type Overrides struct {
	Interest  *float64
	Trending  *float64
	Discovery *float64
	Regional  *float64
}

// IsZero reports whether no weight is overridden.
func (o Overrides) IsZero() bool {
	return o.Interest == nil && o.Trending == nil && o.Discovery == nil && o.Regional == nil
}

// Apply returns base with the set fields replaced.
func (o Overrides) Apply(base Weights) Weights {
	for _, f := range []struct {
		src *float64
		dst *float64
	}{
		{o.Interest, &base.Interest},
		{o.Trending, &base.Trending},
		{o.Discovery, &base.Discovery},
		{o.Regional, &base.Regional},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return base
}

// FeedConfig is the per-request ranking configuration. Built once per
// request and not mutated afterwards.
type FeedConfig struct {
	UserRegion string `json:"user_region,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Weights
}

var presets = map[string]Weights{
	"balanced": {Interest: 0.4, Trending: 0.3, Discovery: 0.1, Regional: 0.2},
	"personal": {Interest: 0.7, Trending: 0.15, Discovery: 0.05, Regional: 0.1},
	"trending": {Interest: 0.15, Trending: 0.7, Discovery: 0.05, Regional: 0.1},
	"explore":  {Interest: 0.2, Trending: 0.2, Discovery: 0.5, Regional: 0.1},
	"local":    {Interest: 0.3, Trending: 0.2, Discovery: 0.1, Regional: 0.4},
}

// PresetWeights looks up a preset by name. Empty means DefaultPreset.
func PresetWeights(name string) (Weights, error) {
	if name == "" {
		name = DefaultPreset
	}
	w, ok := presets[name]
	if !ok {
		return Weights{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return w, nil
}

// ConfigFromPreset builds a FeedConfig for the given viewer from a preset.
func ConfigFromPreset(name, userID, region string) (FeedConfig, error) {
	w, err := PresetWeights(name)
	if err != nil {
		return FeedConfig{}, err
	}
	return FeedConfig{UserID: userID, UserRegion: region, Weights: w}, nil
}

// PresetNames lists the registered presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
