package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimq/internal/httpapi"
	"manimq/internal/pkg/logger"
	"manimq/internal/queue"
)

func newTestServer(t *testing.T) (*httptest.Server, *queue.MemoryStore) {
	t.Helper()
	store := queue.NewMemoryStore()
	return newTestServerWithStore(t, store), store
}

func newTestServerWithStore(t *testing.T, store queue.Store) *httptest.Server {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
		Queue: queue.NewClient(store, log),
		Log:   log,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// unreachableStore simulates a store whose backend is down.
type unreachableStore struct {
	*queue.MemoryStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

const sceneCode = `from manim import *

class SquareToCircle(Scene):
    def construct(self):
        self.play(Transform(Square(), Circle()))
`

func TestPostRenderAccepted(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/render", `{"code":`+mustJSON(sceneCode)+`,"prompt_id":"prompt-42"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	taskID, _ := body["task_id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, 1, store.PendingLen())

	// The record is readable as soon as submission returns.
	getResp, err := http.Get(srv.URL + "/task/" + taskID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	got := decodeBody(t, getResp)
	assert.Equal(t, taskID, got["task_id"])
	assert.Equal(t, "pending", got["status"])
	assert.NotContains(t, got, "result")
	assert.NotContains(t, got, "error")
}

func TestPostRenderInvalidJSON(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/render", `{"code": `)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Zero(t, store.PendingLen())
}

func TestPostRenderMissingPromptID(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/render", `{"code":`+mustJSON(sceneCode)+`}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "prompt_id")
	assert.Zero(t, store.PendingLen())
}

func TestPostRenderRejectsBrokenCode(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/render",
		`{"code":"class Foo(Scene):\n    def construct(self):\n        self.play(Create(Circle()\n","prompt_id":"p"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["error"], "invalid code")
	// Nothing is enqueued for a rejected submission.
	assert.Zero(t, store.PendingLen())
}

func TestPostRenderIgnoresUnknownFields(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postJSON(t, srv.URL+"/render",
		`{"code":`+mustJSON(sceneCode)+`,"prompt_id":"p","client_version":"2.1"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["task_id"])
	assert.Equal(t, 1, store.PendingLen())
}

func TestGetTaskNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/task/no-such-id")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "TASK_NOT_FOUND", body["code"])
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	queueCheck, ok := checks["queue"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", queueCheck["status"])
}

func TestHealthStoreDown(t *testing.T) {
	srv := newTestServerWithStore(t, unreachableStore{queue.NewMemoryStore()})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]any)
	queueCheck, ok := checks["queue"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", queueCheck["status"])
	assert.Contains(t, queueCheck["error"], "connection refused")
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
