package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

func ptr(v int64) *int64 { return &v }

// Block B (1) holds units 10 and 11 and a sub-block Stair (2) holding unit 12.
// Block C (3) holds unit 13.
func newTree(t *testing.T) *structure.Tree {
	t.Helper()
	tree, err := structure.Build(
		[]structure.Node{
			{ID: 1, Name: "B"},
			{ID: 2, Name: "Stair", ParentID: ptr(1)},
			{ID: 3, Name: "C"},
		},
		[]structure.Unit{
			{ID: 10, Number: "1", NodeID: 1},
			{ID: 11, Number: "2", NodeID: 1},
			{ID: 12, Number: "3", NodeID: 2},
			{ID: 13, Number: "1", NodeID: 3},
		},
	)
	require.NoError(t, err)
	return tree
}

func resident(id int64, units ...int64) Viewer {
	return Viewer{UserID: id, Role: RoleOwner, OwnedUnitIDs: units}
}

func TestUnitScopedRecordDoesNotLeakToBlockNeighbours(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	record := Record{
		AuthorID:       1,
		Visibility:     Private,
		TargetType:     targeting.TargetBlocks,
		TargetBlockIDs: []int64{1},
		UnitID:         ptr(10),
		BlockID:        ptr(1),
	}

	assert.False(t, policy.CanView(resident(2, 11), record), "neighbour in the same block must not see it")

	vocal := Viewer{UserID: 3, Role: RoleVocal, RepresentedBlockIDs: []int64{1}}
	assert.False(t, policy.CanView(vocal, record), "block representation does not open unit records")

	assert.True(t, policy.CanView(resident(4, 10), record))
	assert.True(t, policy.CanView(resident(1), record), "author always sees own record")
}

func TestBlockScopedRecord(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	record := Record{AuthorID: 1, Visibility: Public, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{1}}

	assert.True(t, policy.CanView(resident(2, 11), record))
	assert.True(t, policy.CanView(resident(2, 12), record), "units in sub-blocks are inside the target")
	assert.False(t, policy.CanView(resident(2, 13), record))
	assert.False(t, policy.CanView(resident(2), record))

	vocal := Viewer{UserID: 3, Role: RoleVocal, RepresentedBlockIDs: []int64{3}}
	assert.False(t, policy.CanView(vocal, record))
	vocal.RepresentedBlockIDs = []int64{1}
	assert.True(t, policy.CanView(vocal, record))
}

func TestBlockScopedRecordOnSubBlock(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	record := Record{AuthorID: 1, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{2}}

	assert.False(t, policy.CanView(resident(2, 10), record), "parent block residents are outside a sub-block target")
	assert.True(t, policy.CanView(resident(2, 12), record))

	vocal := Viewer{UserID: 3, Role: RoleVocal, RepresentedBlockIDs: []int64{1}}
	assert.True(t, policy.CanView(vocal, record), "representatives cover their subtree")
}

func TestLegacyBlockColumn(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	record := Record{AuthorID: 1, TargetType: targeting.TargetBlocks, BlockID: ptr(3)}

	assert.True(t, policy.CanView(resident(2, 13), record))
	assert.False(t, policy.CanView(resident(2, 10), record))
}

func TestCommunityWideRecord(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	record := Record{AuthorID: 1, Visibility: Private, TargetType: targeting.TargetAll}

	assert.True(t, policy.CanView(resident(2), record))
	assert.True(t, policy.CanView(Viewer{UserID: 9, Role: RoleTenant}, record))
	assert.False(t, policy.CanView(Viewer{}, record))
}

func TestElevatedRolesSeeEverything(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{PrivateRepresentativesOnly: true})
	records := []Record{
		{AuthorID: 1, Visibility: Private, TargetType: targeting.TargetUnit, UnitID: ptr(13)},
		{AuthorID: 1, Visibility: Private, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{3}},
		{AuthorID: 1, Visibility: Private, TargetType: targeting.TargetAll},
		{AuthorID: 1, TargetType: "unknown"},
	}
	for _, role := range []Role{RoleAdmin, RolePresident, RoleMaintenance} {
		viewer := Viewer{UserID: 50, Role: role}
		for i, r := range records {
			assert.True(t, policy.CanView(viewer, r), "role %s record %d", role, i)
		}
	}
}

func TestElevatedRoleRequiresIdentity(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	records := []Record{
		{AuthorID: 1, TargetType: targeting.TargetUnit, UnitID: ptr(13)},
		{AuthorID: 1, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{3}},
		{AuthorID: 1, TargetType: targeting.TargetAll},
	}
	for _, role := range []Role{RoleAdmin, RolePresident, RoleMaintenance} {
		for i, r := range records {
			assert.False(t, policy.CanView(Viewer{Role: role}, r), "anonymous %s record %d", role, i)
		}
	}
}

func TestUnknownTargetDenied(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	assert.False(t, policy.CanView(resident(2, 10), Record{AuthorID: 1, TargetType: targeting.TargetUnit}))
	assert.False(t, policy.CanView(resident(2, 10), Record{AuthorID: 1, TargetType: "floor"}))
	assert.False(t, policy.CanView(resident(2, 10), Record{AuthorID: 1, TargetType: targeting.TargetBlocks}))
}

func TestPrivateRepresentativesOnly(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{PrivateRepresentativesOnly: true})
	private := Record{AuthorID: 1, Visibility: Private, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{1}}
	public := private
	public.Visibility = Public

	assert.False(t, policy.CanView(resident(2, 11), private))
	assert.True(t, policy.CanView(resident(2, 11), public))
	assert.True(t, policy.CanView(Viewer{UserID: 3, Role: RoleVocal, RepresentedBlockIDs: []int64{1}}, private))

	wide := Record{AuthorID: 1, Visibility: Private, TargetType: targeting.TargetAll}
	assert.False(t, policy.CanView(resident(2, 11), wide))
	assert.True(t, policy.CanView(resident(1), wide))
}

func TestFilterPreservesOrder(t *testing.T) {
	policy := NewPolicy(newTree(t), Options{})
	records := []Record{
		{ID: 1, AuthorID: 9, TargetType: targeting.TargetAll},
		{ID: 2, AuthorID: 9, TargetType: targeting.TargetUnit, UnitID: ptr(13)},
		{ID: 3, AuthorID: 9, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{1}},
		{ID: 4, AuthorID: 9, TargetType: targeting.TargetUnit, UnitID: ptr(11)},
	}
	got := policy.Filter(resident(2, 11), records)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 3, 4}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestCanViewWithoutTree(t *testing.T) {
	record := Record{AuthorID: 1, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{1}}
	vocal := Viewer{UserID: 3, Role: RoleVocal, RepresentedBlockIDs: []int64{1}}
	assert.True(t, CanView(nil, vocal, record))
	assert.False(t, CanView(nil, resident(2, 11), record))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.True(t, ParseRole("MAINTENANCE").Elevated())
	assert.False(t, ParseRole("vocal").Elevated())
}
