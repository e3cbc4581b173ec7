package targetinghttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

func ptr(v int64) *int64 { return &v }

type stubTrees struct {
	nodes []structure.Node
	units []structure.Unit
	err   error
}

func (s stubTrees) Tree(context.Context, int64) (*structure.Tree, error) {
	if s.err != nil {
		return nil, s.err
	}
	return structure.Build(s.nodes, s.units)
}

func fixture() stubTrees {
	return stubTrees{
		nodes: []structure.Node{
			{ID: 1, Name: "Portal 1", Kind: structure.KindPortal},
			{ID: 2, Name: "Staircase A", ParentID: ptr(1), Kind: structure.KindStaircase},
			{ID: 3, Name: "Tower", Kind: structure.KindTower},
		},
		units: []structure.Unit{
			{ID: 10, Number: "Unit 10", NodeID: 2},
			{ID: 11, Number: "Unit 2", NodeID: 2},
			{ID: 12, Number: "Lobby", NodeID: 1},
			{ID: 13, Number: "PH", NodeID: 3},
		},
	}
}

func newRouter(trees TreeSource) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), trees, targeting.NewMemo(8), 0)
	r := chi.NewRouter()
	r.Route("/communities/{communityID}", h.MountRoutes)
	return r
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func unitIDs(units []targeting.AffectedUnit) []int64 {
	out := make([]int64, 0, len(units))
	for _, u := range units {
		out = append(out, u.Unit.ID)
	}
	return out
}

func TestShowStructure(t *testing.T) {
	rec := do(t, newRouter(fixture()), http.MethodGet, "/communities/1/structure", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body structureView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Blocks, 3)
	assert.Equal(t, "Portal 1 / Staircase A", body.Blocks[1].Path)
	assert.Equal(t, 1, body.Blocks[1].Depth)
	assert.Equal(t, []int64{12, 11, 10, 13}, unitIDs(body.Units))
	assert.NotEmpty(t, body.Fingerprint)
}

func TestResolveBlocks(t *testing.T) {
	rec := do(t, newRouter(fixture()), http.MethodPost, "/communities/1/targeting/resolve",
		`{"target_type":"blocks","target_blocks":[2]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body resolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []int64{11, 10}, unitIDs(body.Units))
	assert.Equal(t, "Portal 1 / Staircase A", body.Units[0].BlockPath)
}

func TestResolveRejectsBadSelections(t *testing.T) {
	router := newRouter(fixture())
	for _, payload := range []string{
		`{"target_type":"floor"}`,
		`{"target_type":"blocks"}`,
		`{"target_type":"unit"}`,
		`{"target_type":"blocks","target_blocks":[-1]}`,
		`{"target_type":"all","extra":true}`,
		`not json`,
	} {
		rec := do(t, router, http.MethodPost, "/communities/1/targeting/resolve", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
	}
}

func TestResolveUnknownUnitIsEmpty(t *testing.T) {
	rec := do(t, newRouter(fixture()), http.MethodPost, "/communities/1/targeting/resolve",
		`{"target_type":"unit","unit_id":999}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"units":[]`)
}

func TestToggleCascades(t *testing.T) {
	router := newRouter(fixture())
	rec := do(t, router, http.MethodPost, "/communities/1/targeting/toggle", `{"selection":{},"block_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body resolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, targeting.Blocks(1, 2), body.Selection)
	assert.Equal(t, []int64{12, 11, 10}, unitIDs(body.Units))

	rec = do(t, router, http.MethodPost, "/communities/1/targeting/toggle",
		`{"selection":{"target_type":"blocks","target_blocks":[1,2,3]},"block_id":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, targeting.Blocks(1, 3), body.Selection)

	rec = do(t, router, http.MethodPost, "/communities/1/targeting/toggle", `{"selection":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopologyErrorsAreUnprocessable(t *testing.T) {
	trees := stubTrees{err: &shared.InvalidTopologyError{NodeID: 2, Reason: "cycle detected"}}
	rec := do(t, newRouter(trees), http.MethodGet, "/communities/1/structure", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, newRouter(fixture()), http.MethodGet, "/communities/zero/structure", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
