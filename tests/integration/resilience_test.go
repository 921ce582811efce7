//go:build integration
// +build integration

package integration

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
)

func TestRateLimitIntegration(t *testing.T) {
	e := newEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerSecond = 1
		cfg.RateLimit.Burst = 2
	})

	var codes []int
	for i := 0; i < 4; i++ {
		status, _ := e.do(t, http.MethodGet, "/health", nil)
		codes = append(codes, status)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Contains(t, codes[2:], http.StatusTooManyRequests)
}

func TestReferenceFailuresDropOnlyTheirOwnRecord(t *testing.T) {
	e := newEnv(t, func(cfg *config.Config) {
		cfg.Executor.Workers = 1
		cfg.Sampling.CandidateProbability = 0
		cfg.Breaker.MaxFailures = 2
		cfg.Breaker.Timeout = time.Minute
	})
	pid := e.openProject(t, false)

	steps := []map[string]any{
		{"file": "main.go"},
		{"file": "util.go", "prev": "gone-1.go"},
		{"file": "main.go", "prev": "gone-2.go"},
		{"file": "util.go", "prev": "gone-3.go"},
		{"file": "main.go", "prev": "util.go"},
	}
	for _, body := range steps {
		status, _ := e.do(t, http.MethodPost, "/api/projects/"+pid+"/selected", body)
		require.Equal(t, http.StatusAccepted, status)
	}

	require.Eventually(t, func() bool {
		return len(e.srv.Events().Recent(10)) == 1
	}, 5*time.Second, 20*time.Millisecond)

	ev := e.srv.Events().Recent(10)[0]
	assert.Equal(t, types.EventFileOpened, ev.Kind)
	assert.Equal(t, filepath.Join(e.dir, "main.go"), ev.Path)

	_, data := e.do(t, http.MethodGet, "/metrics", nil)
	assert.Contains(t, string(data), `fileprediction_opened_file_logs_total{outcome="failed"} 3`)
	assert.Contains(t, string(data), `fileprediction_opened_file_logs_total{outcome="logged"} 1`)
	assert.NotContains(t, string(data), `outcome="skipped_breaker_open"`)
}
