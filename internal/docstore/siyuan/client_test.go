package siyuan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/docstore"
)

type call struct {
	Path string
	Auth string
	Body map[string]string
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) get(i int) call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeKernel answers each path with the given data and records calls.
func fakeKernel(t *testing.T, data map[string]any) (*httptest.Server, *recorder) {
	t.Helper()
	calls := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls.add(call{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})

		d, ok := data[r.URL.Path]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": -1, "msg": "unknown endpoint"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "", "data": d})
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestQueryBuildsSQL(t *testing.T) {
	srv, calls := fakeKernel(t, map[string]any{
		"/api/query/sql": []map[string]string{
			{"id": "d1", "hpath": "/work/alpha", "box": "nb1"},
		},
	})
	c := New(srv.URL+"/", "secret")

	rows, err := c.Query(context.Background(), docstore.Query{PathContains: "work's"})
	require.NoError(t, err)
	require.Equal(t, []docstore.DocRow{{ID: "d1", HPath: "/work/alpha", Box: "nb1"}}, rows)

	require.Equal(t, 1, calls.len())
	got := calls.get(0)
	assert.Equal(t, "Token secret", got.Auth)
	stmt := got.Body["stmt"]
	assert.Contains(t, stmt, "type = 'd'")
	assert.Contains(t, stmt, `hpath LIKE '%work''s%' ESCAPE '\'`)
	assert.True(t, strings.HasSuffix(stmt, "ORDER BY updated DESC"))
}

func TestQueryByContentWithLimit(t *testing.T) {
	srv, calls := fakeKernel(t, map[string]any{"/api/query/sql": []any{}})
	c := New(srv.URL, "")

	rows, err := c.Query(context.Background(), docstore.Query{ContentContains: "#任务", Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, rows)

	got := calls.get(0)
	assert.Empty(t, got.Auth)
	assert.Contains(t, got.Body["stmt"], "id IN (SELECT root_id FROM blocks WHERE markdown LIKE '%#任务%'")
	assert.True(t, strings.HasSuffix(got.Body["stmt"], "LIMIT 500"))
}

func TestAnnotatedText(t *testing.T) {
	srv, calls := fakeKernel(t, map[string]any{
		"/api/block/getBlockKramdown": map[string]string{"id": "d1", "kramdown": "a #任务\n{: id=\"b1\"}"},
	})
	c := New(srv.URL, "")

	text, err := c.AnnotatedText(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "a #任务\n{: id=\"b1\"}", text)
	assert.Equal(t, "d1", calls.get(0).Body["id"])
}

func TestBlockTextMissing(t *testing.T) {
	srv, _ := fakeKernel(t, map[string]any{
		"/api/block/getBlockKramdown": map[string]string{"id": "b1", "kramdown": ""},
	})
	c := New(srv.URL, "")

	_, err := c.BlockText(context.Background(), "b1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateBlock(t *testing.T) {
	srv, calls := fakeKernel(t, map[string]any{"/api/block/updateBlock": []any{}})
	c := New(srv.URL, "tok")

	require.NoError(t, c.UpdateBlock(context.Background(), "b1", "评审 #done"))
	got := calls.get(0)
	assert.Equal(t, "/api/block/updateBlock", got.Path)
	assert.Equal(t, map[string]string{"dataType": "markdown", "data": "评审 #done", "id": "b1"}, got.Body)
}

func TestKernelErrorCode(t *testing.T) {
	srv, _ := fakeKernel(t, map[string]any{})
	c := New(srv.URL, "")

	_, err := c.Query(context.Background(), docstore.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown endpoint")
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad").AnnotatedText(context.Background(), "d1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestLatestUpdate(t *testing.T) {
	srv, _ := fakeKernel(t, map[string]any{
		"/api/query/sql": []map[string]string{{"updated": "20260224215859"}},
	})
	got, err := New(srv.URL, "").LatestUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20260224215859", got)
}
