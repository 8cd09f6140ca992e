package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/cirrus/internal/cluster"
	"github.com/vietdv277/cirrus/internal/lifecycle"
	"github.com/vietdv277/cirrus/internal/logging"
	"github.com/vietdv277/cirrus/internal/readiness"
	"github.com/vietdv277/cirrus/internal/runner"
	"github.com/vietdv277/cirrus/internal/runner/runnertest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	fake   *runnertest.Fake
	repo   *cluster.Repository
	orch   *lifecycle.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	base := t.TempDir()

	tmpl := filepath.Join(base, "template")
	require.NoError(t, os.MkdirAll(tmpl, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "main.tf"), []byte(`name = "##name##"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "inventory.ini"), []byte("[all]\n"), 0o644))

	fake := runnertest.New()
	repo := cluster.NewRepository(filepath.Join(base, "clusters"))
	reg := prometheus.NewRegistry()

	orch, err := lifecycle.New(lifecycle.Options{
		Repo:        repo,
		Locker:      cluster.NewLocker(repo.Root(), 100*time.Millisecond),
		TemplateDir: tmpl,
		Terraform:   runner.NewTerraform(fake, "", 0),
		Ansible:     runner.NewAnsible(fake, "", 0),
		Gate:        readiness.New(0, time.Hour),
		Pods:        map[string]string{"front": "front.yml"},
		Metrics:     lifecycle.NewMetrics(reg),
	})
	require.NoError(t, err)

	router := NewRouter(RouterOptions{Service: orch, Registry: reg, Version: "test"})
	return &testServer{router: router, fake: fake, repo: repo, orch: orch}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if str, ok := body.(string); ok {
			buf.WriteString(str)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestCreateListAndSettings(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/create", map[string]interface{}{"name": "acme", "region": "us-east1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["message"], "acme")

	w = s.do(t, http.MethodGet, "/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clusters":["acme"]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/settings/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"acme","region":"us-east1","repositories":[]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/status/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"acme","state":"ready"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/activity/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	activity := decode(t, w)["activity"].([]interface{})
	assert.NotEmpty(t, activity)
}

func TestListEmpty(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clusters":[]}`, w.Body.String())
}

func TestCreateErrors(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"}).Code)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed body", "{nope", http.StatusBadRequest},
		{"invalid name", map[string]string{"name": "../x", "region": "r"}, http.StatusBadRequest},
		{"missing region", map[string]string{"name": "other"}, http.StatusBadRequest},
		{"existing name", map[string]string{"name": "acme", "region": "r"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/create", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestCreateToolFailureReportsStep(t *testing.T) {
	s := newTestServer(t)
	s.fake.Fail(runner.StepApply, 1, "Error: quota exceeded")

	w := s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode(t, w)
	assert.Equal(t, "tool", body["kind"])
	assert.Equal(t, runner.StepApply, body["step"])
	assert.Equal(t, "Error: quota exceeded", body["output"])
	assert.NoDirExists(t, s.repo.Path("acme"))
}

func TestCreateLocked(t *testing.T) {
	s := newTestServer(t)
	release, err := cluster.NewLocker(s.repo.Root(), time.Second).Lock(context.Background(), "acme")
	require.NoError(t, err)
	defer release()

	w := s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["kind"])
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/delete/ghost"},
		{http.MethodGet, "/settings/ghost"},
		{http.MethodGet, "/activity/ghost"},
		{http.MethodGet, "/status/ghost"},
	} {
		w := s.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}

	w := s.do(t, http.MethodPut, "/settings/ghost", map[string]string{"region": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidNameNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/delete/foo.bar"},
		{http.MethodGet, "/settings/foo.bar"},
		{http.MethodGet, "/activity/foo.bar"},
	} {
		w := s.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestUpdateSettingsCollidingRepositories(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"}).Code)
	before := s.do(t, http.MethodGet, "/settings/acme", nil).Body.String()

	w := s.do(t, http.MethodPut, "/settings/acme", map[string]interface{}{
		"repositories": []map[string]string{
			{"service_name": "api", "repo": "git@host:org/api.git"},
			{"service_name": "mirror", "repo": "https://host/other/api"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "precondition", decode(t, w)["kind"])
	assert.JSONEq(t, before, s.do(t, http.MethodGet, "/settings/acme", nil).Body.String())
}

func TestUpdateSettings(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"}).Code)

	w := s.do(t, http.MethodPut, "/settings/acme", map[string]interface{}{
		"repositories": []map[string]string{{"service_name": "api", "repo": "api", "branch": "main"}},
		"apply":        false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/settings/acme", nil)
	assert.JSONEq(t, `{"name":"acme","region":"r","repositories":[{"service_name":"api","repo":"api","branch":"main","env":null}]}`, w.Body.String())
}

func TestUpdateSettingsParamsMissing(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.repo.Create("bare"))

	w := s.do(t, http.MethodPut, "/settings/bare", map[string]string{"region": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/settings/bare", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"}).Code)

	s.fake.Fail(runner.StepDestroy, 1, "in use")
	w := s.do(t, http.MethodDelete, "/delete/acme", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.DirExists(t, s.repo.Path("acme"))

	w = s.do(t, http.MethodGet, "/status/acme", nil)
	assert.JSONEq(t, `{"name":"acme","state":"failed"}`, w.Body.String())

	s.fake.On(runner.StepDestroy, runnertest.Response{})
	w = s.do(t, http.MethodDelete, "/delete/acme", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoDirExists(t, s.repo.Path("acme"))
}

func TestDeploy(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"}).Code)

	w := s.do(t, http.MethodPost, "/deploy", map[string]string{"name": "acme", "pod": "front", "branch": "dev"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/deploy", map[string]string{"name": "acme", "pod": "db"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/deploy", map[string]string{"name": "acme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/deploy", map[string]string{"name": "ghost", "pod": "front"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.fake.Fail(runner.StepPlaybook, 2, "unreachable")
	w = s.do(t, http.MethodPost, "/deploy", map[string]string{"name": "acme", "pod": "front"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unreachable", decode(t, w)["output"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/list", nil)
	s.do(t, http.MethodPost, "/create", map[string]string{"name": "acme", "region": "r"})

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `cirrus_http_requests_total{endpoint="/list",method="GET",status="200"} 1`), body)
	assert.Contains(t, body, `cirrus_cluster_operations_total{op="create",result="success"} 1`)
}

func TestRequestIDPreserved(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(logging.Discard()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/panic", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodOptions, "/create", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Start(ctx, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, http.NotFoundHandler(), logging.Discard())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
