// Package visibility decides which reports a resident may read.
package visibility

import (
	"strings"
	"time"

	"github.com/condohub/condohub/internal/targeting"
)

// Role is a community role resolved by the auth layer.
type Role string

const (
	RoleAdmin       Role = "admin"
	RolePresident   Role = "president"
	RoleMaintenance Role = "maintenance"
	RoleVocal       Role = "vocal"
	RoleOwner       Role = "owner"
	RoleTenant      Role = "tenant"
)

// ElevatedRoles have unrestricted read access.
var ElevatedRoles = map[Role]struct{}{
	RoleAdmin:       {},
	RolePresident:   {},
	RoleMaintenance: {},
}

// ParseRole normalizes a role header value.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Elevated reports whether r bypasses scoping.
func (r Role) Elevated() bool {
	_, ok := ElevatedRoles[r]
	return ok
}

// Visibility is report metadata; scoping is decided by the target fields.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Viewer is the resolved actor asking to read records.
type Viewer struct {
	UserID              int64   `json:"user_id"`
	Role                Role    `json:"role"`
	OwnedUnitIDs        []int64 `json:"owned_unit_ids"`
	RepresentedBlockIDs []int64 `json:"represented_block_ids"`
}

// Authenticated reports whether the viewer carries an identity.
func (v Viewer) Authenticated() bool {
	return v.UserID != 0
}

// Record is a report as far as visibility is concerned. UnitID, when set,
// scopes the record to that unit regardless of any block ids. BlockID is the
// legacy single-block column.
type Record struct {
	ID             int64                `json:"id"`
	Title          string               `json:"title,omitempty"`
	AuthorID       int64                `json:"author_id"`
	Visibility     Visibility           `json:"visibility"`
	TargetType     targeting.TargetType `json:"target_type"`
	TargetBlockIDs []int64              `json:"target_blocks,omitempty"`
	UnitID         *int64               `json:"unit_id,omitempty"`
	BlockID        *int64               `json:"block_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// targetBlocks returns the block scope, falling back to the legacy column.
func (r Record) targetBlocks() []int64 {
	if len(r.TargetBlockIDs) > 0 {
		return r.TargetBlockIDs
	}
	if r.BlockID != nil {
		return []int64{*r.BlockID}
	}
	return nil
}
