package targetinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/condohub/condohub/internal/platform/httpx"
	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

// TreeSource builds the current structure of a community.
type TreeSource interface {
	Tree(ctx context.Context, communityID int64) (*structure.Tree, error)
}

// Handler serves structure views and selection previews.
type Handler struct {
	logger    *slog.Logger
	trees     TreeSource
	memo      *targeting.Memo
	validator *validator.Validate
	rateLimit int
}

// NewHandler constructs a Handler. memo may be nil.
func NewHandler(logger *slog.Logger, trees TreeSource, memo *targeting.Memo, rateLimit int) *Handler {
	if rateLimit <= 0 {
		rateLimit = 120
	}
	return &Handler{
		logger:    logger,
		trees:     trees,
		memo:      memo,
		validator: httpx.NewValidator(),
		rateLimit: rateLimit,
	}
}

// MountRoutes registers routes under a community router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/structure", h.showStructure)
	r.Group(func(gr chi.Router) {
		gr.Use(httpx.Limiter(h.rateLimit, time.Minute))
		gr.Post("/targeting/resolve", h.resolve)
		gr.Post("/targeting/toggle", h.toggle)
	})
}

type blockView struct {
	structure.Node
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

type structureView struct {
	Fingerprint string                   `json:"fingerprint"`
	Blocks      []blockView              `json:"blocks"`
	Units       []targeting.AffectedUnit `json:"units"`
}

type resolveResponse struct {
	Selection targeting.Selection      `json:"selection"`
	Units     []targeting.AffectedUnit `json:"units"`
	Count     int                      `json:"count"`
}

// Any selection may be toggled, including an empty one.
type toggleRequest struct {
	Selection targeting.Selection `json:"selection" validate:"-"`
	BlockID   int64               `json:"block_id" validate:"required,gt=0"`
}

func (h *Handler) showStructure(w http.ResponseWriter, r *http.Request) {
	communityID, tree, ok := h.loadTree(w, r)
	if !ok {
		return
	}
	view := structureView{
		Fingerprint: tree.Fingerprint(),
		Blocks:      make([]blockView, 0, tree.NodeCount()),
		Units:       h.resolveUnits(tree, targeting.All()),
	}
	for _, root := range tree.Roots() {
		for _, id := range tree.Descendants(root) {
			node, _ := tree.Node(id)
			view.Blocks = append(view.Blocks, blockView{
				Node:  node,
				Path:  tree.BlockPath(id),
				Depth: len(tree.AncestorPath(id)) - 1,
			})
		}
	}
	h.logger.Debug("structure view", slog.Int64("community_id", communityID), slog.Int("blocks", len(view.Blocks)))
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var sel targeting.Selection
	if err := h.decode(r, &sel); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := sel.Validate(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	_, tree, ok := h.loadTree(w, r)
	if !ok {
		return
	}
	h.respondSelection(w, tree, sel)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	_, tree, ok := h.loadTree(w, r)
	if !ok {
		return
	}
	h.respondSelection(w, tree, targeting.ToggleBlock(req.Selection, tree, req.BlockID))
}

func (h *Handler) respondSelection(w http.ResponseWriter, tree *structure.Tree, sel targeting.Selection) {
	units := h.resolveUnits(tree, sel)
	httpx.JSON(w, http.StatusOK, resolveResponse{Selection: sel, Units: units, Count: len(units)})
}

func (h *Handler) resolveUnits(tree *structure.Tree, sel targeting.Selection) []targeting.AffectedUnit {
	var units []targeting.AffectedUnit
	if h.memo != nil {
		units = h.memo.Resolve(tree, sel)
	} else {
		units = targeting.Resolve(tree, sel)
	}
	if units == nil {
		units = []targeting.AffectedUnit{}
	}
	return units
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.ValidateStruct(h.validator, target)
}

func (h *Handler) loadTree(w http.ResponseWriter, r *http.Request) (int64, *structure.Tree, bool) {
	communityID, err := httpx.Int64Param(r, "communityID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, nil, false
	}
	tree, err := h.trees.Tree(r.Context(), communityID)
	if err != nil {
		h.logger.Error("load structure", slog.Int64("community_id", communityID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return 0, nil, false
	}
	return communityID, tree, true
}
