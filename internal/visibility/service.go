package visibility

import (
	"context"
	"fmt"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/structure"
)

// TreeSource builds the current structure of a community.
type TreeSource interface {
	Tree(ctx context.Context, communityID int64) (*structure.Tree, error)
}

// Store reads reports and ownership.
type Store interface {
	ListReports(ctx context.Context, communityID int64) ([]Record, error)
	OwnedUnits(ctx context.Context, communityID, userID int64) ([]int64, error)
}

// Service lists the reports a caller may read.
type Service struct {
	trees TreeSource
	store Store
	opts  Options
}

// NewService constructs a Service.
func NewService(trees TreeSource, store Store, opts Options) *Service {
	return &Service{trees: trees, store: store, opts: opts}
}

// ResolveViewer expands an identity into a Viewer: owned units come from the
// ownership table, represented blocks from the tree.
func (s *Service) ResolveViewer(ctx context.Context, tree *structure.Tree, communityID int64, id shared.Identity) (Viewer, error) {
	v := Viewer{UserID: id.UserID, Role: ParseRole(id.Role)}
	if !v.Authenticated() {
		return v, nil
	}
	owned, err := s.store.OwnedUnits(ctx, communityID, id.UserID)
	if err != nil {
		return Viewer{}, err
	}
	v.OwnedUnitIDs = owned
	if tree != nil {
		v.RepresentedBlockIDs = tree.RepresentedBy(id.UserID)
	}
	return v, nil
}

// ListVisible returns the community's reports filtered for the caller.
func (s *Service) ListVisible(ctx context.Context, communityID int64, id shared.Identity) ([]Record, error) {
	tree, err := s.trees.Tree(ctx, communityID)
	if err != nil {
		return nil, err
	}
	viewer, err := s.ResolveViewer(ctx, tree, communityID, id)
	if err != nil {
		return nil, fmt.Errorf("visibility: resolve viewer: %w", err)
	}
	records, err := s.store.ListReports(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return NewPolicy(tree, s.opts).Filter(viewer, records), nil
}
