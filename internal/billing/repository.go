package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/targeting"
)

// Repository reads campaign records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCampaign loads one campaign of a community.
func (r *Repository) GetCampaign(ctx context.Context, communityID, campaignID int64) (Campaign, error) {
	if r == nil || r.pool == nil {
		return Campaign{}, fmt.Errorf("billing: repository not initialised")
	}
	const query = `SELECT id, title, COALESCE(goal_amount, 0)::float8, is_mandatory,
	COALESCE(calculation_method, ''), COALESCE(amount_per_unit, 0)::float8,
	target_type, COALESCE(target_blocks, '{}'), unit_id
FROM campaigns WHERE community_id = $1 AND id = $2`
	var (
		c          Campaign
		method     string
		targetType string
		blocks     []int64
	)
	err := r.pool.QueryRow(ctx, query, communityID, campaignID).Scan(
		&c.ID, &c.Title, &c.GoalAmount, &c.IsMandatory,
		&method, &c.AmountPerUnit,
		&targetType, &blocks, &c.Target.UnitID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, &shared.NotFoundError{Kind: "campaign", ID: campaignID}
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("billing: get campaign: %w", err)
	}
	c.Method = Method(method)
	c.Target.Type = targeting.TargetType(targetType)
	c.Target.BlockIDs = blocks
	return c, nil
}

// ListCampaignIDs returns every campaign id of a community.
func (r *Repository) ListCampaignIDs(ctx context.Context, communityID int64) ([]int64, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("billing: repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM campaigns WHERE community_id = $1 ORDER BY id`, communityID)
	if err != nil {
		return nil, fmt.Errorf("billing: list campaigns: %w", err)
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
