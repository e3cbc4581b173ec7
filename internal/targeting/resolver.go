package targeting

import "github.com/condohub/condohub/internal/structure"

// Resolve materializes a selection into affected units in canonical order.
// Block selections are expanded to full subtrees even when the caller did not
// cascade them. An unknown unit id or type resolves to no units.
func Resolve(tree *structure.Tree, sel Selection) []AffectedUnit {
	if tree == nil {
		return []AffectedUnit{}
	}
	switch sel.Type {
	case TargetAll:
		return label(tree, tree.Units())
	case TargetBlocks:
		return label(tree, tree.UnitsUnder(sel.BlockIDs...))
	case TargetUnit:
		if sel.UnitID == nil {
			return []AffectedUnit{}
		}
		u, ok := tree.Unit(*sel.UnitID)
		if !ok {
			return []AffectedUnit{}
		}
		return label(tree, []structure.Unit{u})
	default:
		return []AffectedUnit{}
	}
}

func label(tree *structure.Tree, units []structure.Unit) []AffectedUnit {
	out := make([]AffectedUnit, 0, len(units))
	paths := make(map[int64]string)
	for _, u := range units {
		path, ok := paths[u.NodeID]
		if !ok {
			path = tree.BlockPath(u.NodeID)
			paths[u.NodeID] = path
		}
		out = append(out, AffectedUnit{Unit: u, BlockPath: path})
	}
	return out
}
