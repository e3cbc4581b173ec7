package visibility

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condohub/condohub/internal/platform/db"
	"github.com/condohub/condohub/internal/targeting"
)

// Repository reads reports and unit ownership.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListReports returns the community's reports, newest first.
func (r *Repository) ListReports(ctx context.Context, communityID int64) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("visibility: repository not initialised")
	}
	return listReports(ctx, r.pool, communityID)
}

// OwnedUnits returns the units userID owns or rents within the community.
func (r *Repository) OwnedUnits(ctx context.Context, communityID, userID int64) ([]int64, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("visibility: repository not initialised")
	}
	const query = `SELECT DISTINCT uo.unit_id
FROM unit_owners uo
JOIN units u ON u.id = uo.unit_id
JOIN blocks b ON b.id = u.block_id
WHERE b.community_id = $1 AND uo.user_id = $2
ORDER BY uo.unit_id`
	rows, err := r.pool.Query(ctx, query, communityID, userID)
	if err != nil {
		return nil, fmt.Errorf("visibility: owned units: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func listReports(ctx context.Context, q db.Querier, communityID int64) ([]Record, error) {
	const query = `SELECT id, title, author_id, COALESCE(visibility, 'public'),
	COALESCE(target_type, ''), COALESCE(target_blocks, '{}'), unit_id, block_id, created_at
FROM reports WHERE community_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := q.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("visibility: list reports: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			vis        string
			targetType string
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.AuthorID, &vis,
			&targetType, &rec.TargetBlockIDs, &rec.UnitID, &rec.BlockID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Visibility = Visibility(vis)
		rec.TargetType = targeting.TargetType(targetType)
		records = append(records, rec)
	}
	return records, rows.Err()
}
