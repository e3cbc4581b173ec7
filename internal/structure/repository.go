package structure

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condohub/condohub/internal/platform/db"
)

// Repository reads flat block and unit records for a community.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadStructure returns blocks and units from a single snapshot.
func (r *Repository) LoadStructure(ctx context.Context, communityID int64) ([]Node, []Unit, error) {
	if r == nil || r.pool == nil {
		return nil, nil, fmt.Errorf("structure: repository not initialised")
	}
	var (
		nodes []Node
		units []Unit
	)
	err := db.WithReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if nodes, err = listNodes(ctx, tx, communityID); err != nil {
			return err
		}
		units, err = listUnits(ctx, tx, communityID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, units, nil
}

func listNodes(ctx context.Context, q db.Querier, communityID int64) ([]Node, error) {
	const query = `SELECT id, name, parent_id, structure_type, representative_id
FROM blocks WHERE community_id = $1 ORDER BY id`
	rows, err := q.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("structure: list blocks: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var (
			n    Node
			kind string
		)
		if err := rows.Scan(&n.ID, &n.Name, &n.ParentID, &kind, &n.RepresentativeID); err != nil {
			return nil, err
		}
		n.Kind = NormalizeKind(kind)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func listUnits(ctx context.Context, q db.Querier, communityID int64) ([]Unit, error) {
	const query = `SELECT u.id, u.unit_number, u.type, COALESCE(u.coefficient, 0)::float8, u.block_id
FROM units u JOIN blocks b ON b.id = u.block_id
WHERE b.community_id = $1 ORDER BY u.id`
	rows, err := q.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("structure: list units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var (
			u    Unit
			kind string
		)
		if err := rows.Scan(&u.ID, &u.Number, &kind, &u.Coefficient, &u.NodeID); err != nil {
			return nil, err
		}
		u.Kind = NormalizeUnitKind(kind)
		units = append(units, u)
	}
	return units, rows.Err()
}
