package targeting

import (
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/condohub/condohub/internal/structure"
)

// DefaultMemoSize bounds the number of cached resolutions.
const DefaultMemoSize = 256

// Memo caches Resolve results keyed by tree fingerprint and selection key.
// Results are identical to calling Resolve directly; concurrent misses for the
// same key share one computation.
type Memo struct {
	mu      sync.Mutex
	size    int
	entries map[string][]AffectedUnit
	fifo    []string
	group   singleflight.Group

	// OnLookup, when set, observes each lookup as a hit or miss.
	OnLookup func(hit bool)
}

// NewMemo constructs a Memo holding at most size entries.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	return &Memo{size: size, entries: make(map[string][]AffectedUnit, size)}
}

// Resolve returns a copy of the memoized resolution, computing it on a miss.
func (m *Memo) Resolve(tree *structure.Tree, sel Selection) []AffectedUnit {
	if m == nil || tree == nil {
		return Resolve(tree, sel)
	}
	key := tree.Fingerprint() + "|" + sel.Key()

	m.mu.Lock()
	cached, ok := m.entries[key]
	m.mu.Unlock()
	m.observe(ok)
	if ok {
		return slices.Clone(cached)
	}

	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		resolved := Resolve(tree, sel)
		m.store(key, resolved)
		return resolved, nil
	})
	return slices.Clone(v.([]AffectedUnit))
}

// Len reports the number of cached resolutions.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) store(key string, resolved []AffectedUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; exists {
		return
	}
	for len(m.fifo) >= m.size {
		oldest := m.fifo[0]
		m.fifo = m.fifo[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = resolved
	m.fifo = append(m.fifo, key)
}

func (m *Memo) observe(hit bool) {
	if m.OnLookup != nil {
		m.OnLookup(hit)
	}
}
