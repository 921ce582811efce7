//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fileprediction/internal/server"
)

type env struct {
	srv *server.Server
	ts  *httptest.Server
	dir string
}

func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false
	cfg.Sampling.OpenedFileProbability = 1
	cfg.Sampling.CandidateProbability = 1
	cfg.EventLog.Path = filepath.Join(t.TempDir(), "events.jsonl")
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := server.New(cfg, logging.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Close(ctx)
	})

	dir := t.TempDir()
	files := map[string]string{
		"main.go":              "package main\n// uses internal/store/db.go and util.go\n",
		"util.go":              "package main\n",
		"internal/store/db.go": "package store\n",
		"README.md":            "see main.go\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return &env{srv: srv, ts: ts, dir: dir}
}

func (e *env) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *env) openProject(t *testing.T, light bool) string {
	t.Helper()
	body := map[string]any{"name": "demo", "light": light}
	if !light {
		body["path"] = e.dir
	}
	status, data := e.do(t, http.MethodPost, "/api/projects", body)
	require.Equal(t, http.StatusCreated, status, string(data))

	var p struct {
		ID string `json:"id"`
	}
	require.NoError(t, sonic.Unmarshal(data, &p))
	return p.ID
}
