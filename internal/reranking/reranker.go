package reranking

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"
)

const (
	// DefaultTopFraction is the share of the ranked list that gets perturbed.
	DefaultTopFraction = 0.3
	// DefaultJitter bounds the uniform noise added to totals while perturbing.
	DefaultJitter = 10.0
)

// Entry is one ranked row: Index points into the caller's item slice and
// Total is the blended score it was sorted by.
type Entry struct {
	Index int
	Total float64
}

// Reranker reorders an already sorted ranking in place and returns it.
type Reranker interface {
	Name() string
	Rerank(entries []Entry) []Entry
}

// Rand is the randomness the feed needs. *rand.Rand satisfies it but is not
// safe for concurrent use; wrap it with NewLockedRand when sharing.
type Rand interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// LockedRand serializes access to an underlying Rand.
type LockedRand struct {
	mu sync.Mutex
	r  Rand
}

// NewLockedRand wraps r. A nil r gets a freshly seeded PCG generator.
func NewLockedRand(r Rand) *LockedRand {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LockedRand{r: r}
}

// NewSeededRand returns a deterministic generator, for tests and replays.
func NewSeededRand(seed uint64) *LockedRand {
	return NewLockedRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *LockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// Uniform draws from [lo, hi).
func Uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// New returns a Perturber when enabled, NoOp otherwise.
func New(enabled bool, topFraction float64, r Rand) Reranker {
	if !enabled {
		return NoOp{}
	}
	return NewPerturber(topFraction, DefaultJitter, r)
}

// Perturber shuffles the head of a ranking and re-sorts it with small noise
// so the same top items do not come back in the same order on every call.
// Entries past the head keep their position.
type Perturber struct {
	topFraction float64
	jitter      float64
	rand        Rand
}

// NewPerturber builds a Perturber. topFraction outside (0,1] falls back to
// DefaultTopFraction; a non-positive jitter falls back to DefaultJitter.
func NewPerturber(topFraction, jitter float64, r Rand) *Perturber {
	if topFraction <= 0 || topFraction > 1 {
		topFraction = DefaultTopFraction
	}
	if jitter <= 0 {
		jitter = DefaultJitter
	}
	if r == nil {
		r = NewLockedRand(nil)
	}
	return &Perturber{topFraction: topFraction, jitter: jitter, rand: r}
}

func (p *Perturber) Name() string { return "perturb" }

// HeadSize returns how many of n entries are perturbed: ceil(fraction*n).
func (p *Perturber) HeadSize(n int) int {
	k := int(math.Ceil(p.topFraction * float64(n)))
	return min(k, n)
}

func (p *Perturber) Rerank(entries []Entry) []Entry {
	if len(entries) <= 1 {
		return entries
	}
	k := p.HeadSize(len(entries))
	if k <= 1 {
		return entries
	}

	head := entries[:k]
	p.rand.Shuffle(len(head), func(i, j int) {
		head[i], head[j] = head[j], head[i]
	})

	keys := make([]float64, len(head))
	for i := range head {
		keys[i] = head[i].Total + Uniform(p.rand, -p.jitter, p.jitter)
	}
	sort.Stable(byKey{entries: head, keys: keys})
	return entries
}

type byKey struct {
	entries []Entry
	keys    []float64
}

func (b byKey) Len() int           { return len(b.entries) }
func (b byKey) Less(i, j int) bool { return b.keys[i] > b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.entries[i], b.entries[j] = b.entries[j], b.entries[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// NoOp passes entries through unchanged. Used when perturbation is disabled.
type NoOp struct{}

func (NoOp) Name() string                  { return "none" }
func (NoOp) Rerank(entries []Entry) []Entry { return entries }
