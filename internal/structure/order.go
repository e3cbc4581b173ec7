package structure

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// newCollator returns a case-insensitive collator that orders digit runs by
// numeric value, so "Unit 2" sorts before "Unit 10". Collators keep internal
// buffers and must not be shared across goroutines.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
}

func comparePaths(c *collate.Collator, a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if cmp := c.CompareString(a[i], b[i]); cmp != 0 {
			return cmp
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// canonicalOrder sorts unit ids by ancestor path, then unit number, falling
// back to unit id so equal labels still order deterministically.
func canonicalOrder(units map[int64]Unit, paths map[int64][]string) []int64 {
	ids := make([]int64, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	c := newCollator()
	sort.Slice(ids, func(i, j int) bool {
		a, b := units[ids[i]], units[ids[j]]
		if cmp := comparePaths(c, paths[a.NodeID], paths[b.NodeID]); cmp != 0 {
			return cmp < 0
		}
		if cmp := c.CompareString(a.Number, b.Number); cmp != 0 {
			return cmp < 0
		}
		if a.NodeID != b.NodeID {
			return a.NodeID < b.NodeID
		}
		return a.ID < b.ID
	})
	return ids
}
