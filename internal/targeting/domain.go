// Package targeting turns audience selections into concrete unit lists.
package targeting

import (
	"slices"
	"strconv"
	"strings"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/structure"
)

// TargetType enumerates audience scopes.
type TargetType string

const (
	// TargetAll addresses every unit in the community.
	TargetAll TargetType = "all"
	// TargetBlocks addresses the units under a set of blocks.
	TargetBlocks TargetType = "blocks"
	// TargetUnit addresses a single unit.
	TargetUnit TargetType = "unit"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetAll, TargetBlocks, TargetUnit:
		return true
	}
	return false
}

// Selection declares an audience. BlockIDs is only read for TargetBlocks and
// UnitID only for TargetUnit. Values are immutable; helpers return copies.
type Selection struct {
	Type     TargetType `json:"target_type" validate:"required,oneof=all blocks unit"`
	BlockIDs []int64    `json:"target_blocks,omitempty" validate:"omitempty,dive,gt=0"`
	UnitID   *int64     `json:"unit_id,omitempty" validate:"omitempty,gt=0"`
}

// All selects every unit.
func All() Selection {
	return Selection{Type: TargetAll}
}

// Blocks selects the given blocks. Ids are sorted and deduplicated.
func Blocks(ids ...int64) Selection {
	return Selection{Type: TargetBlocks, BlockIDs: normalizeIDs(ids)}
}

// SingleUnit selects one unit.
func SingleUnit(id int64) Selection {
	return Selection{Type: TargetUnit, UnitID: &id}
}

// Validate rejects selections whose active field is missing.
func (s Selection) Validate() error {
	switch s.Type {
	case TargetAll:
		return nil
	case TargetBlocks:
		if len(s.BlockIDs) == 0 {
			return shared.Invalid("target_blocks", "at least one block required")
		}
		return nil
	case TargetUnit:
		if s.UnitID == nil {
			return shared.Invalid("unit_id", "unit required")
		}
		return nil
	default:
		return shared.Invalid("target_type", "unknown target type "+strconv.Quote(string(s.Type)))
	}
}

// Selected reports whether blockID is part of a blocks selection.
func (s Selection) Selected(blockID int64) bool {
	if s.Type != TargetBlocks {
		return false
	}
	return slices.Contains(s.BlockIDs, blockID)
}

// Equal compares the meaningful fields of two selections.
func (s Selection) Equal(other Selection) bool {
	return s.Key() == other.Key()
}

// Key is a canonical string for the active fields, used in cache keys.
func (s Selection) Key() string {
	switch s.Type {
	case TargetBlocks:
		ids := normalizeIDs(s.BlockIDs)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return "blocks:" + strings.Join(parts, ",")
	case TargetUnit:
		if s.UnitID == nil {
			return "unit:"
		}
		return "unit:" + strconv.FormatInt(*s.UnitID, 10)
	default:
		return string(s.Type)
	}
}

// AffectedUnit is a resolved unit with its block path label.
type AffectedUnit struct {
	Unit      structure.Unit `json:"unit"`
	BlockPath string         `json:"block_path"`
}

func normalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
