package billing

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

// TreeSource builds the current structure of a community.
type TreeSource interface {
	Tree(ctx context.Context, communityID int64) (*structure.Tree, error)
}

// CampaignStore loads persisted campaigns.
type CampaignStore interface {
	GetCampaign(ctx context.Context, communityID, campaignID int64) (Campaign, error)
}

// Observer receives the outcome of every computed (uncached) preview.
type Observer interface {
	ObserveDistribution(method string, fellBack bool, err error)
}

// Service renders fee previews for campaigns.
type Service struct {
	trees     TreeSource
	campaigns CampaignStore
	cache     *Cache
	memo      *targeting.Memo
	observer  Observer
}

// NewService constructs a Service. cache and memo may be nil.
func NewService(trees TreeSource, campaigns CampaignStore, cache *Cache, memo *targeting.Memo) *Service {
	return &Service{trees: trees, campaigns: campaigns, cache: cache, memo: memo}
}

// WithObserver attaches an outcome observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Preview resolves the campaign audience and distributes its goal.
func (s *Service) Preview(ctx context.Context, communityID int64, c Campaign) (Preview, error) {
	if err := c.Target.Validate(); err != nil {
		return Preview{}, err
	}
	tree, err := s.trees.Tree(ctx, communityID)
	if err != nil {
		return Preview{}, err
	}
	key, err := s.cache.BuildKey(ctx, "billing", "preview", strconv.FormatInt(communityID, 10), tree.Fingerprint(), campaignKey(c))
	if err != nil {
		return Preview{}, fmt.Errorf("billing: preview key: %w", err)
	}
	var preview Preview
	_, err = s.cache.FetchJSON(ctx, key, &preview, func(context.Context) (interface{}, error) {
		return s.compute(communityID, tree, c)
	})
	if err != nil {
		return Preview{}, err
	}
	// Keys ignore id and title, so echo the caller's campaign.
	preview.Campaign = c
	return preview, nil
}

// CampaignPreview renders the preview of a persisted campaign.
func (s *Service) CampaignPreview(ctx context.Context, communityID, campaignID int64) (Preview, error) {
	c, err := s.campaigns.GetCampaign(ctx, communityID, campaignID)
	if err != nil {
		return Preview{}, err
	}
	return s.Preview(ctx, communityID, c)
}

// WarmCampaignPreview populates the cache for a persisted campaign.
func (s *Service) WarmCampaignPreview(ctx context.Context, communityID, campaignID int64) error {
	_, err := s.CampaignPreview(ctx, communityID, campaignID)
	return err
}

// Invalidate drops every cached preview.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) compute(communityID int64, tree *structure.Tree, c Campaign) (Preview, error) {
	var units []targeting.AffectedUnit
	if s.memo != nil {
		units = s.memo.Resolve(tree, c.Target)
	} else {
		units = targeting.Resolve(tree, c.Target)
	}
	dist, err := Distribute(units, c)
	if s.observer != nil {
		method := string(c.Method)
		if !c.IsMandatory {
			method = "voluntary"
		}
		s.observer.ObserveDistribution(method, dist.FellBack, err)
	}
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		CommunityID: communityID,
		Fingerprint: tree.Fingerprint(),
		Campaign:    c,
		Result:      dist,
		Lines:       Lines(units, dist),
	}, nil
}

func campaignKey(c Campaign) string {
	if !c.IsMandatory {
		return "voluntary:" + formatFloat(c.GoalAmount) + ":" + c.Target.Key()
	}
	switch c.Method {
	case MethodFixed:
		return "fixed:" + formatFloat(c.AmountPerUnit) + ":" + c.Target.Key()
	default:
		return string(c.Method) + ":" + formatFloat(c.GoalAmount) + ":" + c.Target.Key()
	}
}

func formatFloat(v float64) string {
	return strconv.FormatUint(math.Float64bits(v), 16)
}
