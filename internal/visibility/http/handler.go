package visibilityhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/condohub/condohub/internal/platform/httpx"
	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/visibility"
)

// ReportLister is the subset of visibility.Service used by the handler.
type ReportLister interface {
	ListVisible(ctx context.Context, communityID int64, id shared.Identity) ([]visibility.Record, error)
}

// Handler serves report listings scoped to the caller.
type Handler struct {
	logger  *slog.Logger
	service ReportLister
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service ReportLister) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes under a community router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/reports", h.listReports)
}

type listResponse struct {
	Reports    []visibility.Record `json:"reports"`
	Count      int                 `json:"count"`
	Pagination shared.Pagination   `json:"pagination"`
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	communityID, err := httpx.Int64Param(r, "communityID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id := shared.IdentityFromContext(r.Context())
	if id.UserID == 0 {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	records, err := h.service.ListVisible(r.Context(), communityID, id)
	if err != nil {
		h.logger.Error("list visible reports", slog.Int64("community_id", communityID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page := shared.PaginationFromQuery(r.URL.Query(), len(records))
	start, end := page.Bounds()
	window := make([]visibility.Record, 0, end-start)
	window = append(window, records[start:end]...)
	httpx.JSON(w, http.StatusOK, listResponse{Reports: window, Count: len(records), Pagination: page})
}
