package targeting

import (
	"slices"

	"github.com/condohub/condohub/internal/structure"
)

// ToggleBlock flips blockID in a blocks selection, cascading to its subtree:
// a selected block is removed together with all its descendants, an
// unselected one is added together with all its descendants. Other entries,
// including partially deselected children elsewhere, are left untouched.
//
// Toggling twice restores the input whenever the block's subtree was
// uniformly selected or unselected beforehand. Unknown blocks leave the
// selection unchanged. A non-blocks selection is treated as empty.
func ToggleBlock(sel Selection, tree *structure.Tree, blockID int64) Selection {
	current := Blocks()
	if sel.Type == TargetBlocks {
		current = Blocks(sel.BlockIDs...)
	}
	if tree == nil || !tree.HasNode(blockID) {
		return current
	}
	subtree := tree.Descendants(blockID)

	if current.Selected(blockID) {
		drop := make(map[int64]struct{}, len(subtree))
		for _, id := range subtree {
			drop[id] = struct{}{}
		}
		kept := slices.DeleteFunc(slices.Clone(current.BlockIDs), func(id int64) bool {
			_, ok := drop[id]
			return ok
		})
		return Blocks(kept...)
	}
	return Blocks(append(slices.Clone(current.BlockIDs), subtree...)...)
}
