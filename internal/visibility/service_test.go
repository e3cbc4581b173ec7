package visibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

type stubTrees struct {
	nodes []structure.Node
	units []structure.Unit
	err   error
}

func (s stubTrees) Tree(context.Context, int64) (*structure.Tree, error) {
	if s.err != nil {
		return nil, s.err
	}
	return structure.Build(s.nodes, s.units)
}

type stubStore struct {
	records []Record
	owned   map[int64][]int64
	err     error
}

func (s stubStore) ListReports(context.Context, int64) ([]Record, error) {
	return s.records, s.err
}

func (s stubStore) OwnedUnits(_ context.Context, _ int64, userID int64) ([]int64, error) {
	return s.owned[userID], nil
}

func serviceFixture() (stubTrees, stubStore) {
	trees := stubTrees{
		nodes: []structure.Node{
			{ID: 1, Name: "B", RepresentativeID: ptr(30)},
			{ID: 2, Name: "Stair", ParentID: ptr(1)},
			{ID: 3, Name: "C"},
		},
		units: []structure.Unit{
			{ID: 10, Number: "1", NodeID: 1},
			{ID: 11, Number: "2", NodeID: 1},
			{ID: 12, Number: "3", NodeID: 2},
			{ID: 13, Number: "1", NodeID: 3},
		},
	}
	store := stubStore{
		records: []Record{
			{ID: 1, AuthorID: 20, Visibility: Private, TargetType: targeting.TargetUnit, UnitID: ptr(10), BlockID: ptr(1)},
			{ID: 2, AuthorID: 20, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{2}},
			{ID: 3, AuthorID: 20, TargetType: targeting.TargetAll},
			{ID: 4, AuthorID: 20, TargetType: targeting.TargetBlocks, TargetBlockIDs: []int64{3}},
		},
		owned: map[int64][]int64{21: {11}, 22: {12}},
	}
	return trees, store
}

func recordIDs(records []Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestListVisibleResolvesViewerScope(t *testing.T) {
	trees, store := serviceFixture()
	svc := NewService(trees, store, Options{})
	ctx := context.Background()

	got, err := svc.ListVisible(ctx, 1, shared.Identity{UserID: 21, Role: "owner"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, recordIDs(got), "owner of unit 11 sees neither unit 10's record nor the sub-block record")

	got, err = svc.ListVisible(ctx, 1, shared.Identity{UserID: 22, Role: "tenant"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, recordIDs(got))

	got, err = svc.ListVisible(ctx, 1, shared.Identity{UserID: 30, Role: "vocal"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, recordIDs(got), "representative of B covers Stair")

	got, err = svc.ListVisible(ctx, 1, shared.Identity{UserID: 20, Role: "owner"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, recordIDs(got))

	got, err = svc.ListVisible(ctx, 1, shared.Identity{UserID: 99, Role: "Admin"})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestListVisibleAnonymous(t *testing.T) {
	trees, store := serviceFixture()
	got, err := NewService(trees, store, Options{}).ListVisible(context.Background(), 1, shared.Identity{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListVisiblePropagatesErrors(t *testing.T) {
	trees, store := serviceFixture()
	trees.err = &shared.InvalidTopologyError{NodeID: 1, Reason: "cycle detected"}
	_, err := NewService(trees, store, Options{}).ListVisible(context.Background(), 1, shared.Identity{UserID: 21})
	assert.ErrorIs(t, err, shared.ErrInvalidTopology)

	trees, store = serviceFixture()
	store.err = errors.New("db down")
	_, err = NewService(trees, store, Options{}).ListVisible(context.Background(), 1, shared.Identity{UserID: 21})
	assert.EqualError(t, err, "db down")
}
