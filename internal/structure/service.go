package structure

import (
	"context"
	"fmt"
)

// Loader supplies flat records for a community.
type Loader interface {
	LoadStructure(ctx context.Context, communityID int64) ([]Node, []Unit, error)
}

// Service builds a fresh Tree for every request.
type Service struct {
	loader Loader
}

// NewService constructs a Service.
func NewService(loader Loader) *Service {
	return &Service{loader: loader}
}

// Tree loads and builds the community's structure.
func (s *Service) Tree(ctx context.Context, communityID int64) (*Tree, error) {
	nodes, units, err := s.loader.LoadStructure(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("structure: load community %d: %w", communityID, err)
	}
	return Build(nodes, units)
}
