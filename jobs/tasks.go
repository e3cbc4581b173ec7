package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillingPreviewWarmup renders and caches campaign fee previews.
	TaskBillingPreviewWarmup = "billing:preview_warmup"
)

// PreviewWarmupPayload selects the campaigns to warm. A zero CampaignID warms
// every campaign of the community.
type PreviewWarmupPayload struct {
	RequestID   string `json:"request_id"`
	CommunityID int64  `json:"community_id"`
	CampaignID  int64  `json:"campaign_id,omitempty"`
}

// NewPreviewWarmupTask constructs an Asynq task, assigning a request id when
// the caller did not.
func NewPreviewWarmupTask(payload PreviewWarmupPayload) (*asynq.Task, error) {
	if payload.RequestID == "" {
		payload.RequestID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingPreviewWarmup, data), nil
}
