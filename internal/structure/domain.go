// Package structure models a community's physical layout as a tree of
// nested blocks holding units.
package structure

// Kind enumerates block types.
type Kind string

const (
	// KindGeneric is an unspecified container.
	KindGeneric Kind = "generic"
	// KindPortal is an entrance/portal.
	KindPortal Kind = "portal"
	// KindStaircase is a staircase within a portal.
	KindStaircase Kind = "staircase"
	// KindTower is a standalone tower.
	KindTower Kind = "tower"
	// KindLevel is a floor.
	KindLevel Kind = "level"
)

// UnitKind enumerates unit types.
type UnitKind string

const (
	// UnitApartment is a flat.
	UnitApartment UnitKind = "apartment"
	// UnitHouse is a detached or terraced house.
	UnitHouse UnitKind = "house"
	// UnitCommercial is a commercial lot.
	UnitCommercial UnitKind = "commercial"
)

// PathSeparator joins ancestor names in a block path.
const PathSeparator = " / "

// Node is a block. Children and Units are populated by Build in source order.
type Node struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ParentID         *int64  `json:"parent_id"`
	Kind             Kind    `json:"structure_type"`
	RepresentativeID *int64  `json:"representative_id"`
	Children         []int64 `json:"children,omitempty"`
	Units            []int64 `json:"units,omitempty"`
}

// Unit is a billable space inside exactly one block.
type Unit struct {
	ID          int64    `json:"id"`
	Number      string   `json:"unit_number"`
	Kind        UnitKind `json:"type"`
	Coefficient float64  `json:"coefficient"`
	NodeID      int64    `json:"block_id"`
}

// NormalizeKind maps stored structure types onto Kind, defaulting to generic.
func NormalizeKind(raw string) Kind {
	switch Kind(raw) {
	case KindPortal, KindStaircase, KindTower, KindLevel:
		return Kind(raw)
	default:
		return KindGeneric
	}
}

// NormalizeUnitKind maps stored unit types onto UnitKind, defaulting to apartment.
func NormalizeUnitKind(raw string) UnitKind {
	switch UnitKind(raw) {
	case UnitHouse, UnitCommercial:
		return UnitKind(raw)
	default:
		return UnitApartment
	}
}
