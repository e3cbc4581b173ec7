package billinghttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/condohub/condohub/internal/billing"
	"github.com/condohub/condohub/internal/platform/httpx"
	"github.com/condohub/condohub/internal/targeting"
	"github.com/condohub/condohub/jobs"
)

// Previewer is the subset of billing.Service used by the handler.
type Previewer interface {
	Preview(ctx context.Context, communityID int64, c billing.Campaign) (billing.Preview, error)
	CampaignPreview(ctx context.Context, communityID, campaignID int64) (billing.Preview, error)
}

// Enqueuer schedules preview warm-ups.
type Enqueuer interface {
	EnqueuePreviewWarmup(ctx context.Context, payload jobs.PreviewWarmupPayload) (*asynq.TaskInfo, error)
}

// Handler serves fee previews.
type Handler struct {
	logger    *slog.Logger
	service   Previewer
	jobs      Enqueuer
	validator *validator.Validate
	rateLimit int
}

// NewHandler constructs a Handler. jobs may be nil, disabling warm-ups.
func NewHandler(logger *slog.Logger, service Previewer, jobsClient Enqueuer, rateLimit int) *Handler {
	if rateLimit <= 0 {
		rateLimit = 60
	}
	return &Handler{
		logger:    logger,
		service:   service,
		jobs:      jobsClient,
		validator: httpx.NewValidator(),
		rateLimit: rateLimit,
	}
}

// MountRoutes registers billing routes under a community router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/billing", func(r chi.Router) {
		r.Use(httpx.Limiter(h.rateLimit, time.Minute))
		r.Post("/preview", h.preview)
		r.Post("/coefficients/normalize", h.normalizeCoefficient)
		r.Get("/campaigns/{campaignID}/preview", h.campaignPreview)
		r.Post("/campaigns/{campaignID}/warmup", h.warmup)
	})
}

type campaignRequest struct {
	Title         string              `json:"title" validate:"max=200"`
	GoalAmount    float64             `json:"goal_amount" validate:"gte=0"`
	IsMandatory   bool                `json:"is_mandatory"`
	Method        string              `json:"calculation_method" validate:"omitempty,oneof=fixed coefficient"`
	AmountPerUnit float64             `json:"amount_per_unit" validate:"gte=0"`
	Target        targeting.Selection `json:"target"`
}

func (req campaignRequest) campaign() billing.Campaign {
	return billing.Campaign{
		Title:         req.Title,
		GoalAmount:    req.GoalAmount,
		IsMandatory:   req.IsMandatory,
		Method:        billing.Method(req.Method),
		AmountPerUnit: req.AmountPerUnit,
		Target:        req.Target,
	}
}

type coefficientRequest struct {
	Value  *float64 `json:"value" validate:"required"`
	Format string   `json:"format" validate:"omitempty,oneof=decimal percent"`
}

type coefficientResponse struct {
	Coefficient float64 `json:"coefficient"`
}

type warmupResponse struct {
	RequestID string `json:"request_id"`
	TaskID    string `json:"task_id,omitempty"`
	Status    string `json:"status"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	communityID, err := httpx.Int64Param(r, "communityID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req campaignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	preview, err := h.service.Preview(r.Context(), communityID, req.campaign())
	if err != nil {
		h.logFailure("billing preview", err, slog.Int64("community_id", communityID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

// normalizeCoefficient checks an authored coefficient before the unit form
// saves it. A decimal above 1 answers 400 with the scale error.
func (h *Handler) normalizeCoefficient(w http.ResponseWriter, r *http.Request) {
	var req coefficientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	value, err := billing.NormalizeCoefficient(*req.Value, billing.CoefficientFormat(req.Format))
	if err != nil {
		h.logFailure("normalize coefficient", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, coefficientResponse{Coefficient: value})
}

func (h *Handler) campaignPreview(w http.ResponseWriter, r *http.Request) {
	communityID, campaignID, ok := h.campaignParams(w, r)
	if !ok {
		return
	}
	preview, err := h.service.CampaignPreview(r.Context(), communityID, campaignID)
	if err != nil {
		h.logFailure("campaign preview", err, slog.Int64("community_id", communityID), slog.Int64("campaign_id", campaignID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *Handler) warmup(w http.ResponseWriter, r *http.Request) {
	communityID, campaignID, ok := h.campaignParams(w, r)
	if !ok {
		return
	}
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "background jobs are not configured")
		return
	}
	payload := jobs.PreviewWarmupPayload{
		RequestID:   uuid.NewString(),
		CommunityID: communityID,
		CampaignID:  campaignID,
	}
	resp := warmupResponse{RequestID: payload.RequestID, Status: "queued"}
	info, err := h.jobs.EnqueuePreviewWarmup(r.Context(), payload)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		resp.Status = "already_queued"
	case err != nil:
		h.logger.Error("enqueue preview warmup", slog.Int64("community_id", communityID), slog.Int64("campaign_id", campaignID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	case info != nil:
		resp.TaskID = info.ID
	}
	httpx.JSON(w, http.StatusAccepted, resp)
}

func (h *Handler) campaignParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	communityID, err := httpx.Int64Param(r, "communityID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	campaignID, err := httpx.Int64Param(r, "campaignID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	return communityID, campaignID, true
}

// logFailure keeps client mistakes at debug level.
func (h *Handler) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.Any("error", err))
	if httpx.IsClientError(err) {
		h.logger.Debug(msg, attrs...)
		return
	}
	h.logger.Error(msg, attrs...)
}
