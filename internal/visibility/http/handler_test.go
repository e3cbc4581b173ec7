package visibilityhttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/visibility"
)

type stubLister struct {
	records      []visibility.Record
	err          error
	gotIdentity  shared.Identity
	gotCommunity int64
}

func (s *stubLister) ListVisible(_ context.Context, communityID int64, id shared.Identity) ([]visibility.Record, error) {
	s.gotCommunity = communityID
	s.gotIdentity = id
	return s.records, s.err
}

func newRouter(svc ReportLister) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(visibility.IdentityMiddleware)
	r.Route("/communities/{communityID}", h.MountRoutes)
	return r
}

func TestListReportsPassesIdentity(t *testing.T) {
	svc := &stubLister{records: []visibility.Record{{ID: 3, Title: "Leak", AuthorID: 1}}}
	req := httptest.NewRequest(http.MethodGet, "/communities/5/reports", nil)
	req.Header.Set(visibility.HeaderUserID, "42")
	req.Header.Set(visibility.HeaderRole, "Vocal")
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), svc.gotCommunity)
	assert.Equal(t, shared.Identity{UserID: 42, Role: "vocal"}, svc.gotIdentity)

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Leak", body.Reports[0].Title)
}

func TestListReportsRequiresIdentity(t *testing.T) {
	for _, raw := range []string{"", "abc", "-4"} {
		req := httptest.NewRequest(http.MethodGet, "/communities/5/reports", nil)
		if raw != "" {
			req.Header.Set(visibility.HeaderUserID, raw)
		}
		rec := httptest.NewRecorder()
		newRouter(&stubLister{}).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "user id %q", raw)
	}
}

func TestListReportsErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/communities/x/reports", nil)
	req.Header.Set(visibility.HeaderUserID, "1")
	rec := httptest.NewRecorder()
	newRouter(&stubLister{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc := &stubLister{err: &shared.InvalidTopologyError{NodeID: 1, Reason: "cycle detected"}}
	req = httptest.NewRequest(http.MethodGet, "/communities/5/reports", nil)
	req.Header.Set(visibility.HeaderUserID, "1")
	rec = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListReportsEmptyIsArray(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/communities/5/reports", nil)
	req.Header.Set(visibility.HeaderUserID, "1")
	rec := httptest.NewRecorder()
	newRouter(&stubLister{}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reports":[]`)
}

func TestListReportsPaginates(t *testing.T) {
	records := make([]visibility.Record, 0, 5)
	for i := int64(1); i <= 5; i++ {
		records = append(records, visibility.Record{ID: i, AuthorID: 1})
	}
	req := httptest.NewRequest(http.MethodGet, "/communities/5/reports?page=2&per_page=2", nil)
	req.Header.Set(visibility.HeaderUserID, "1")
	rec := httptest.NewRecorder()
	newRouter(&stubLister{records: records}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Count)
	require.Len(t, body.Reports, 2)
	assert.Equal(t, int64(3), body.Reports[0].ID)
	assert.Equal(t, shared.Pagination{Page: 2, PerPage: 2, Total: 5, TotalPages: 3}, body.Pagination)

	req = httptest.NewRequest(http.MethodGet, "/communities/5/reports?page=9223372036854775807&per_page=200", nil)
	req.Header.Set(visibility.HeaderUserID, "1")
	rec = httptest.NewRecorder()
	newRouter(&stubLister{records: records}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body = listResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Count)
	assert.Empty(t, body.Reports)
	assert.Equal(t, 2, body.Pagination.Page)
}
