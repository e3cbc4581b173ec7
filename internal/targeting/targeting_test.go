package targeting

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/structure"
)

func ptr(v int64) *int64 { return &v }

// Portal (1) -> Stair A (2) -> Level 1 (5), Portal (1) -> Stair B (3), Tower (4).
func newTree(t *testing.T) *structure.Tree {
	t.Helper()
	tree, err := structure.Build(
		[]structure.Node{
			{ID: 1, Name: "Portal"},
			{ID: 2, Name: "Stair A", ParentID: ptr(1)},
			{ID: 3, Name: "Stair B", ParentID: ptr(1)},
			{ID: 4, Name: "Tower"},
			{ID: 5, Name: "Level 1", ParentID: ptr(2)},
		},
		[]structure.Unit{
			{ID: 100, Number: "2", Coefficient: 0.1, NodeID: 2},
			{ID: 101, Number: "10", Coefficient: 0.1, NodeID: 2},
			{ID: 102, Number: "1B", Coefficient: 0.2, NodeID: 3},
			{ID: 103, Number: "PH", Coefficient: 0.4, NodeID: 4},
			{ID: 104, Number: "5", Coefficient: 0.2, NodeID: 5},
		},
	)
	require.NoError(t, err)
	return tree
}

func ids(units []AffectedUnit) []int64 {
	out := make([]int64, 0, len(units))
	for _, u := range units {
		out = append(out, u.Unit.ID)
	}
	return out
}

func TestResolveAll(t *testing.T) {
	tree := newTree(t)
	got := Resolve(tree, All())

	assert.Equal(t, []int64{100, 101, 104, 102, 103}, ids(got))
	seen := map[int64]int{}
	for _, u := range got {
		seen[u.Unit.ID]++
	}
	assert.Len(t, seen, tree.UnitCount())
	for id, n := range seen {
		assert.Equal(t, 1, n, "unit %d listed more than once", id)
	}
	assert.Equal(t, "Portal / Stair A / Level 1", got[2].BlockPath)
	assert.Equal(t, "Tower", got[4].BlockPath)
}

func TestResolveBlocksExpandsRawSelection(t *testing.T) {
	tree := newTree(t)

	raw := Selection{Type: TargetBlocks, BlockIDs: []int64{1}}
	assert.Equal(t, []int64{100, 101, 104, 102}, ids(Resolve(tree, raw)))

	overlapping := Selection{Type: TargetBlocks, BlockIDs: []int64{5, 2, 5, 99}}
	assert.Equal(t, []int64{100, 101, 104}, ids(Resolve(tree, overlapping)))
}

func TestResolveIgnoresInactiveFields(t *testing.T) {
	tree := newTree(t)

	sel := Selection{Type: TargetAll, BlockIDs: []int64{4}, UnitID: ptr(103)}
	assert.Len(t, Resolve(tree, sel), 5)

	sel = Selection{Type: TargetUnit, BlockIDs: []int64{1}, UnitID: ptr(103)}
	assert.Equal(t, []int64{103}, ids(Resolve(tree, sel)))

	sel = Selection{Type: TargetBlocks, BlockIDs: []int64{4}, UnitID: ptr(100)}
	assert.Equal(t, []int64{103}, ids(Resolve(tree, sel)))
}

func TestResolveUnit(t *testing.T) {
	tree := newTree(t)

	got := Resolve(tree, SingleUnit(104))
	require.Len(t, got, 1)
	assert.Equal(t, "Portal / Stair A / Level 1", got[0].BlockPath)

	assert.Empty(t, Resolve(tree, SingleUnit(999)))
	assert.Empty(t, Resolve(tree, Selection{Type: TargetUnit}))
	assert.Empty(t, Resolve(tree, Selection{Type: "floor"}))
	assert.Empty(t, Resolve(nil, All()))
}

func TestResolveIsDeterministic(t *testing.T) {
	a := Resolve(newTree(t), Blocks(3, 2))
	b := Resolve(newTree(t), Blocks(2, 3))
	assert.Equal(t, a, b)
}

func TestToggleBlockCascades(t *testing.T) {
	tree := newTree(t)

	sel := ToggleBlock(Blocks(), tree, 1)
	assert.Equal(t, []int64{1, 2, 3, 5}, sel.BlockIDs)

	// Deselecting a child keeps the parent selected: partial selection is legal.
	sel = ToggleBlock(sel, tree, 2)
	assert.Equal(t, []int64{1, 3}, sel.BlockIDs)

	sel = ToggleBlock(sel, tree, 1)
	assert.Empty(t, sel.BlockIDs)
}

func TestToggleBlockRoundTrip(t *testing.T) {
	tree := newTree(t)
	starts := []Selection{
		Blocks(),
		Blocks(4),
		Blocks(1, 2, 3, 5),
		Blocks(2, 5, 4),
		Blocks(3),
	}
	for _, start := range starts {
		for _, block := range []int64{1, 2, 3, 4, 5} {
			subtree := tree.Descendants(block)
			uniform := true
			first := start.Selected(subtree[0])
			for _, id := range subtree {
				if start.Selected(id) != first {
					uniform = false
				}
			}
			if !uniform {
				continue
			}
			got := ToggleBlock(ToggleBlock(start, tree, block), tree, block)
			assert.True(t, got.Equal(start), "start=%v block=%d got=%v", start.BlockIDs, block, got.BlockIDs)
		}
	}
}

func TestToggleBlockUnknownOrForeignSelection(t *testing.T) {
	tree := newTree(t)

	sel := ToggleBlock(Blocks(4), tree, 42)
	assert.Equal(t, []int64{4}, sel.BlockIDs)

	sel = ToggleBlock(All(), tree, 4)
	assert.Equal(t, TargetBlocks, sel.Type)
	assert.Equal(t, []int64{4}, sel.BlockIDs)
}

func TestSelectionValidate(t *testing.T) {
	assert.NoError(t, All().Validate())
	assert.NoError(t, Blocks(1).Validate())
	assert.NoError(t, SingleUnit(1).Validate())
	assert.ErrorIs(t, Blocks().Validate(), shared.ErrValidation)
	assert.ErrorIs(t, Selection{Type: TargetUnit}.Validate(), shared.ErrValidation)
	assert.ErrorIs(t, Selection{Type: "everyone"}.Validate(), shared.ErrValidation)
}

func TestSelectionKey(t *testing.T) {
	assert.Equal(t, "blocks:1,2", Selection{Type: TargetBlocks, BlockIDs: []int64{2, 1, 2}}.Key())
	assert.Equal(t, "all", Selection{Type: TargetAll, BlockIDs: []int64{1}}.Key())
	assert.Equal(t, "unit:7", SingleUnit(7).Key())
}

func TestMemoMatchesResolve(t *testing.T) {
	tree := newTree(t)
	var hits, misses int
	var mu sync.Mutex
	memo := NewMemo(2)
	memo.OnLookup = func(hit bool) {
		mu.Lock()
		defer mu.Unlock()
		if hit {
			hits++
		} else {
			misses++
		}
	}

	first := memo.Resolve(tree, Blocks(1))
	assert.Equal(t, Resolve(tree, Blocks(1)), first)

	first[0].BlockPath = "mutated"
	second := memo.Resolve(tree, Blocks(1))
	assert.Equal(t, "Portal / Stair A", second[0].BlockPath)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	memo.Resolve(tree, All())
	memo.Resolve(tree, SingleUnit(103))
	assert.Equal(t, 2, memo.Len())

	// Rebuilding an equal tree reuses entries through the fingerprint.
	again := memo.Resolve(newTree(t), SingleUnit(103))
	assert.Equal(t, []int64{103}, ids(again))
	assert.Equal(t, 2, hits)
}

func TestMemoConcurrentUse(t *testing.T) {
	tree := newTree(t)
	memo := NewMemo(0)
	want := Resolve(tree, All())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, memo.Resolve(tree, All()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, memo.Len())
}
