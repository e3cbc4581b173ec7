package visibility

import (
	"slices"

	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

// Options tune product decisions left open by the policy.
type Options struct {
	// PrivateRepresentativesOnly narrows private block-scoped records to the
	// block's representatives and private community-wide records to authors
	// and elevated roles. Off by default: Private is triage metadata only.
	PrivateRepresentativesOnly bool
}

// Policy evaluates read access against one structure snapshot.
type Policy struct {
	tree *structure.Tree
	opts Options
}

// NewPolicy constructs a Policy. A nil tree disables subtree expansion, so
// block scopes only match exact ids.
func NewPolicy(tree *structure.Tree, opts Options) *Policy {
	return &Policy{tree: tree, opts: opts}
}

// CanView applies the ordered rules: author, elevated role, unit scope,
// block scope, community scope, deny.
func (p *Policy) CanView(v Viewer, r Record) bool {
	if v.Authenticated() && v.UserID == r.AuthorID {
		return true
	}
	if v.Authenticated() && v.Role.Elevated() {
		return true
	}
	// Unit-scoped records are decided on ownership alone. Block ids stored
	// next to a unit id must never widen the audience to block neighbours.
	if r.UnitID != nil {
		return slices.Contains(v.OwnedUnitIDs, *r.UnitID)
	}
	switch r.TargetType {
	case targeting.TargetBlocks:
		return p.blockScopeMatches(v, r)
	case targeting.TargetAll:
		if !v.Authenticated() {
			return false
		}
		if p.opts.PrivateRepresentativesOnly && r.Visibility == Private {
			return false
		}
		return true
	default:
		return false
	}
}

// Filter keeps the records v may read, preserving order.
func (p *Policy) Filter(v Viewer, records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if p.CanView(v, r) {
			out = append(out, r)
		}
	}
	return out
}

// CanView evaluates a single decision without keeping a Policy around.
func CanView(tree *structure.Tree, v Viewer, r Record) bool {
	return NewPolicy(tree, Options{}).CanView(v, r)
}

func (p *Policy) blockScopeMatches(v Viewer, r Record) bool {
	targets := r.targetBlocks()
	if len(targets) == 0 {
		return false
	}
	scope := p.expand(targets)

	for _, id := range p.expandList(v.RepresentedBlockIDs) {
		if _, ok := scope[id]; ok {
			return true
		}
	}
	if p.opts.PrivateRepresentativesOnly && r.Visibility == Private {
		return false
	}
	for _, unitID := range v.OwnedUnitIDs {
		if p.tree == nil {
			continue
		}
		u, ok := p.tree.Unit(unitID)
		if !ok {
			continue
		}
		if _, ok := scope[u.NodeID]; ok {
			return true
		}
	}
	return false
}

func (p *Policy) expand(ids []int64) map[int64]struct{} {
	if p.tree == nil {
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		return set
	}
	set := p.tree.DescendantSet(ids...)
	// Ids the tree no longer knows still match literally.
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (p *Policy) expandList(ids []int64) []int64 {
	if p.tree == nil || len(ids) == 0 {
		return ids
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		desc := p.tree.Descendants(id)
		if desc == nil {
			out = append(out, id)
			continue
		}
		out = append(out, desc...)
	}
	return out
}
