package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/condohub/condohub/internal/jobs"
	"github.com/condohub/condohub/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PreviewWarmer renders and caches campaign previews.
type PreviewWarmer interface {
	WarmCampaignPreview(ctx context.Context, communityID, campaignID int64) error
}

// CampaignLister enumerates the campaigns of a community.
type CampaignLister interface {
	ListCampaignIDs(ctx context.Context, communityID int64) ([]int64, error)
}

// PreviewWarmupJob pre-populates the billing preview cache.
type PreviewWarmupJob struct {
	Previews  PreviewWarmer
	Campaigns CampaignLister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	// PerCampaignTimeout bounds each render; zero means 20s.
	PerCampaignTimeout time.Duration
}

// NewPreviewWarmupJob wires dependencies for the warm-up handler.
func NewPreviewWarmupJob(previews PreviewWarmer, campaigns CampaignLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *PreviewWarmupJob {
	return &PreviewWarmupJob{Previews: previews, Campaigns: campaigns, Logger: logger, Metrics: metrics}
}

// Handle processes TaskBillingPreviewWarmup tasks.
func (j *PreviewWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Previews == nil {
		return errors.New("preview warmup: handler not configured")
	}
	var payload PreviewWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("preview warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.CommunityID <= 0 {
		return fmt.Errorf("preview warmup: community id required: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskBillingPreviewWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("request_id", payload.RequestID),
		slog.Int64("community_id", payload.CommunityID),
	)
	start := time.Now()

	campaigns, err := j.campaignIDs(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("list campaigns", slog.Any("error", err))
		return resultErr
	}

	warmed := 0
	for _, campaignID := range campaigns {
		if err := j.warm(ctx, payload.CommunityID, campaignID); err != nil {
			if permanent(err) {
				logger.Warn("skip campaign preview", slog.Int64("campaign_id", campaignID), slog.Any("error", err))
				continue
			}
			resultErr = err
			logger.Error("warm campaign preview", slog.Int64("campaign_id", campaignID), slog.Any("error", err))
			break
		}
		warmed++
	}
	j.metrics().AddWarmed(payload.CommunityID, warmed)
	logger.Info("preview warmup finished", slog.Int("warmed", warmed), slog.Int("campaigns", len(campaigns)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *PreviewWarmupJob) campaignIDs(ctx context.Context, p PreviewWarmupPayload) ([]int64, error) {
	if p.CampaignID > 0 {
		return []int64{p.CampaignID}, nil
	}
	if j.Campaigns == nil {
		return nil, errors.New("preview warmup: campaign lister not configured")
	}
	return j.Campaigns.ListCampaignIDs(ctx, p.CommunityID)
}

func (j *PreviewWarmupJob) warm(ctx context.Context, communityID, campaignID int64) error {
	timeout := j.PerCampaignTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Previews.WarmCampaignPreview(ctx, communityID, campaignID)
}

// permanent errors describe campaign data a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, shared.ErrValidation) || (errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrInvalidTopology))
}

func (j *PreviewWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBillingPreviewWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBillingPreviewWarmup))
}

func (j *PreviewWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
