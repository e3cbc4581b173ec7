package structure

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"

	"github.com/condohub/condohub/internal/shared"
)

// Tree is an immutable block/unit hierarchy. It is safe for concurrent reads.
type Tree struct {
	nodes       map[int64]*Node
	units       map[int64]Unit
	roots       []int64
	paths       map[int64][]string
	order       []int64
	rank        map[int64]int
	fingerprint uint64
}

// Build links flat node and unit records into a Tree. It fails with an
// InvalidTopologyError on duplicate ids, dangling references, duplicated unit
// numbers within a block, or a parent cycle.
func Build(flatNodes []Node, flatUnits []Unit) (*Tree, error) {
	t := &Tree{
		nodes: make(map[int64]*Node, len(flatNodes)),
		units: make(map[int64]Unit, len(flatUnits)),
	}
	sequence := make([]int64, 0, len(flatNodes))
	for _, n := range flatNodes {
		if _, dup := t.nodes[n.ID]; dup {
			return nil, &shared.InvalidTopologyError{NodeID: n.ID, Reason: "duplicate node id"}
		}
		node := n
		node.Children = nil
		node.Units = nil
		if n.ParentID != nil {
			parent := *n.ParentID
			node.ParentID = &parent
		}
		t.nodes[n.ID] = &node
		sequence = append(sequence, n.ID)
	}

	for _, id := range sequence {
		node := t.nodes[id]
		if node.ParentID == nil {
			t.roots = append(t.roots, id)
			continue
		}
		parentID := *node.ParentID
		if parentID == id {
			return nil, &shared.InvalidTopologyError{NodeID: id, Reason: "node is its own parent"}
		}
		parent, ok := t.nodes[parentID]
		if !ok {
			return nil, &shared.InvalidTopologyError{
				NodeID: id,
				Reason: "dangling parent",
				Err:    &shared.NotFoundError{Kind: "block", ID: parentID},
			}
		}
		parent.Children = append(parent.Children, id)
	}

	t.paths = make(map[int64][]string, len(t.nodes))
	t.walkPaths()
	if len(t.paths) != len(t.nodes) {
		// Every node has at most one parent, so anything unreachable from a
		// root sits on a cycle.
		for _, id := range sequence {
			if _, ok := t.paths[id]; !ok {
				return nil, &shared.InvalidTopologyError{NodeID: id, Reason: "cycle detected"}
			}
		}
	}

	fold := cases.Fold()
	numbers := make(map[int64]map[string]int64, len(t.nodes))
	for _, u := range flatUnits {
		if _, dup := t.units[u.ID]; dup {
			return nil, &shared.InvalidTopologyError{NodeID: u.NodeID, Reason: fmt.Sprintf("duplicate unit id %d", u.ID)}
		}
		node, ok := t.nodes[u.NodeID]
		if !ok {
			return nil, &shared.InvalidTopologyError{
				NodeID: u.NodeID,
				Reason: fmt.Sprintf("unit %d references missing block", u.ID),
				Err:    &shared.NotFoundError{Kind: "block", ID: u.NodeID},
			}
		}
		key := fold.String(strings.TrimSpace(u.Number))
		if numbers[u.NodeID] == nil {
			numbers[u.NodeID] = make(map[string]int64)
		}
		if other, taken := numbers[u.NodeID][key]; taken {
			return nil, &shared.InvalidTopologyError{
				NodeID: u.NodeID,
				Reason: fmt.Sprintf("unit number %q shared by units %d and %d", u.Number, other, u.ID),
			}
		}
		numbers[u.NodeID][key] = u.ID
		node.Units = append(node.Units, u.ID)
		t.units[u.ID] = u
	}

	t.order = canonicalOrder(t.units, t.paths)
	t.rank = make(map[int64]int, len(t.order))
	for i, id := range t.order {
		t.rank[id] = i
	}
	t.fingerprint = t.hash()
	return t, nil
}

func (t *Tree) walkPaths() {
	type frame struct {
		id   int64
		path []string
	}
	stack := make([]frame, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		id := t.roots[i]
		stack = append(stack, frame{id: id, path: []string{t.nodes[id].Name}})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := t.paths[top.id]; seen {
			continue
		}
		t.paths[top.id] = top.path
		children := t.nodes[top.id].Children
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			path := make([]string, len(top.path)+1)
			copy(path, top.path)
			path[len(top.path)] = t.nodes[child].Name
			stack = append(stack, frame{id: child, path: path})
		}
	}
}

// Node returns a copy of the block with the given id.
func (t *Tree) Node(id int64) (Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	out := *n
	out.Children = slices.Clone(n.Children)
	out.Units = slices.Clone(n.Units)
	return out, true
}

// Unit returns the unit with the given id.
func (t *Tree) Unit(id int64) (Unit, bool) {
	u, ok := t.units[id]
	return u, ok
}

// HasNode reports whether the block exists.
func (t *Tree) HasNode(id int64) bool {
	_, ok := t.nodes[id]
	return ok
}

// Roots returns top-level block ids in source order.
func (t *Tree) Roots() []int64 {
	return slices.Clone(t.roots)
}

// NodeCount returns the number of blocks.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// UnitCount returns the number of units.
func (t *Tree) UnitCount() int { return len(t.units) }

// RepresentedBy returns the blocks whose representative is userID, in id order.
func (t *Tree) RepresentedBy(userID int64) []int64 {
	var out []int64
	for id, n := range t.nodes {
		if n.RepresentativeID != nil && *n.RepresentativeID == userID {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Descendants returns id followed by every block beneath it, depth first.
// Unknown ids yield nil.
func (t *Tree) Descendants(id int64) []int64 {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	out := make([]int64, 0, 1)
	stack := []int64{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, current)
		children := t.nodes[current].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// DescendantSet expands every id to its subtree and returns the union.
func (t *Tree) DescendantSet(ids ...int64) map[int64]struct{} {
	set := make(map[int64]struct{})
	for _, id := range ids {
		if _, done := set[id]; done {
			continue
		}
		for _, d := range t.Descendants(id) {
			set[d] = struct{}{}
		}
	}
	return set
}

// AncestorPath returns block names from the root down to id.
func (t *Tree) AncestorPath(id int64) []string {
	return slices.Clone(t.paths[id])
}

// BlockPath joins AncestorPath with PathSeparator.
func (t *Tree) BlockPath(id int64) string {
	return strings.Join(t.paths[id], PathSeparator)
}

// Units returns every unit in canonical order.
func (t *Tree) Units() []Unit {
	out := make([]Unit, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.units[id])
	}
	return out
}

// UnitsUnder returns the units inside the given blocks and their
// descendants, deduplicated and in canonical order.
func (t *Tree) UnitsUnder(ids ...int64) []Unit {
	blocks := t.DescendantSet(ids...)
	picked := make([]int64, 0)
	for blockID := range blocks {
		picked = append(picked, t.nodes[blockID].Units...)
	}
	sort.Slice(picked, func(i, j int) bool {
		return t.rank[picked[i]] < t.rank[picked[j]]
	})
	out := make([]Unit, 0, len(picked))
	for _, id := range picked {
		out = append(out, t.units[id])
	}
	return out
}

// Fingerprint is a structural hash of the tree input, stable across builds
// of equal records. It keys memoized resolutions and preview caches.
func (t *Tree) Fingerprint() string {
	return strconv.FormatUint(t.fingerprint, 16)
}

func (t *Tree) hash() uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(int64(len(s)))
		_, _ = h.WriteString(s)
	}
	writeOptional := func(v *int64) {
		if v == nil {
			writeInt(-1)
			return
		}
		writeInt(*v)
	}

	nodeIDs := make([]int64, 0, len(t.nodes))
	for id := range t.nodes {
		nodeIDs = append(nodeIDs, id)
	}
	slices.Sort(nodeIDs)
	for _, id := range nodeIDs {
		n := t.nodes[id]
		writeInt(n.ID)
		writeString(n.Name)
		writeOptional(n.ParentID)
		writeString(string(n.Kind))
		writeOptional(n.RepresentativeID)
		writeInt(int64(len(n.Children)))
		for _, c := range n.Children {
			writeInt(c)
		}
	}
	unitIDs := make([]int64, 0, len(t.units))
	for id := range t.units {
		unitIDs = append(unitIDs, id)
	}
	slices.Sort(unitIDs)
	for _, id := range unitIDs {
		u := t.units[id]
		writeInt(u.ID)
		writeString(u.Number)
		writeString(string(u.Kind))
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(u.Coefficient))
		_, _ = h.Write(buf[:])
		writeInt(u.NodeID)
	}
	return h.Sum64()
}
