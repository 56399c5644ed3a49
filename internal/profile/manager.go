package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store. A missing profile reads as "".
type ProfileStore interface {
	GetProfileData(viewerKey string) (string, error)
	SetProfileData(viewerKey, data string) error
	DeleteProfileData(viewerKey string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager records interaction events into per-viewer interest profiles and
// loads them back. Profiles are read from the store on every call; nothing
// is cached across requests.
type Manager struct {
	store ProfileStore
	clock Clock

	mu      sync.Mutex
	viewers map[string]*viewerLock
}

type viewerLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a Manager backed by store.
func NewManager(store ProfileStore) *Manager {
	return NewManagerWithClock(store, realClock{})
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock) *Manager {
	return &Manager{
		store:   store,
		clock:   clock,
		viewers: make(map[string]*viewerLock),
	}
}

// ViewerKey maps an optional viewer id to its store key.
func ViewerKey(viewerID string) string {
	if viewerID == "" {
		return DefaultViewerKey
	}
	return viewerID
}

// Get loads the profile for viewerID. A missing or malformed stored profile
// yields an empty profile.
func (m *Manager) Get(ctx context.Context, viewerID string) (InterestProfile, error) {
	return m.load(ViewerKey(viewerID))
}

// Record applies ev to the viewer's profile and persists it. The
// load-modify-save cycle is serialized per viewer within this process.
func (m *Manager) Record(ctx context.Context, viewerID string, ev InteractionEvent) (InterestProfile, error) {
	if !ev.Kind.Valid() {
		return InterestProfile{}, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.clock.Now().UTC()
	}

	key := ViewerKey(viewerID)
	unlock := m.lockViewer(key)
	defer unlock()

	p, err := m.load(key)
	if err != nil {
		return InterestProfile{}, err
	}
	p.Apply(ev)

	data, err := json.Marshal(p)
	if err != nil {
		return InterestProfile{}, fmt.Errorf("marshalling profile for %q: %w", key, err)
	}
	if err := m.store.SetProfileData(key, string(data)); err != nil {
		return InterestProfile{}, fmt.Errorf("saving profile for %q: %w", key, err)
	}

	slog.Debug("interaction recorded", "viewer", key, "kind", ev.Kind, "content_id", ev.ContentID)
	return p, nil
}

// Wipe deletes everything stored for the viewer.
func (m *Manager) Wipe(ctx context.Context, viewerID string) error {
	key := ViewerKey(viewerID)
	unlock := m.lockViewer(key)
	defer unlock()

	if err := m.store.DeleteProfileData(key); err != nil {
		return fmt.Errorf("deleting profile for %q: %w", key, err)
	}
	return nil
}

// Summary returns the top n affinities per dimension. n <= 0 means 5.
func (m *Manager) Summary(ctx context.Context, viewerID string, n int) (Summary, error) {
	p, err := m.Get(ctx, viewerID)
	if err != nil {
		return Summary{}, fmt.Errorf("getting profile for summary: %w", err)
	}
	return Summarize(ViewerKey(viewerID), p, n), nil
}

func (m *Manager) load(key string) (InterestProfile, error) {
	raw, err := m.store.GetProfileData(key)
	if err != nil {
		return InterestProfile{}, fmt.Errorf("loading profile for %q: %w", key, err)
	}
	return decodeProfile(key, raw), nil
}

// lockViewer acquires the per-viewer mutex and returns its release func.
// Entries are reference counted so idle viewers do not accumulate.
func (m *Manager) lockViewer(key string) func() {
	m.mu.Lock()
	vl, ok := m.viewers[key]
	if !ok {
		vl = &viewerLock{}
		m.viewers[key] = vl
	}
	vl.refs++
	m.mu.Unlock()

	vl.mu.Lock()
	return func() {
		vl.mu.Unlock()
		m.mu.Lock()
		vl.refs--
		if vl.refs == 0 {
			delete(m.viewers, key)
		}
		m.mu.Unlock()
	}
}

// decodeProfile parses stored JSON, logging a warning and returning an empty
// profile if the value is present but malformed.
func decodeProfile(key, raw string) InterestProfile {
	p := NewInterestProfile()
	if raw == "" {
		return p
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("malformed stored profile, treating as empty", "viewer", key, "error", err)
		return NewInterestProfile()
	}
	if p.Categories == nil {
		p.Categories = map[string]float64{}
	}
	if p.Channels == nil {
		p.Channels = map[string]float64{}
	}
	if p.Tags == nil {
		p.Tags = map[string]float64{}
	}
	if len(p.RecentInteractions) > MaxRecentInteractions {
		p.RecentInteractions = p.RecentInteractions[:MaxRecentInteractions]
	}
	return p
}

// Summarize builds the Summary of p under key. n <= 0 means 5.
func Summarize(key string, p InterestProfile, n int) Summary {
	if n <= 0 {
		n = 5
	}
	return Summary{
		ViewerKey:         key,
		TopCategories:     topAffinities(p.Categories, n),
		TopChannels:       topAffinities(p.Channels, n),
		TopTags:           topAffinities(p.Tags, n),
		InteractionsCount: len(p.RecentInteractions),
	}
}

// topAffinities sorts by weight descending, then name for deterministic output.
func topAffinities(m map[string]float64, n int) []Affinity {
	out := make([]Affinity, 0, len(m))
	for name, w := range m {
		out = append(out, Affinity{Name: name, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
