package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const editorOrigin = "http://localhost:5173"

// navRouter mounts routes shaped like the navigation API behind mw
func navRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "healthy"}) })
	r.POST("/api/projects/:id/selected", func(c *gin.Context) { c.JSON(http.StatusAccepted, gin.H{"accepted": true}) })
	r.DELETE("/api/projects/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func send(r http.Handler, method, path, origin, ip string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if ip != "" {
		req.RemoteAddr = ip + ":41000"
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestCORSShippedDefaults(t *testing.T) {
	cfg := config.Default()
	r := navRouter(CORS(CORSConfigFor(cfg.CORS.AllowOrigins)))

	t.Run("any origin may read", func(t *testing.T) {
		w := send(r, http.MethodGet, "/health", editorOrigin, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight for a selection", func(t *testing.T) {
		w := send(r, http.MethodOptions, "/api/projects/p1/selected", editorOrigin, "", http.Header{
			"Access-Control-Request-Method":  {http.MethodPost},
			"Access-Control-Request-Headers": {"Content-Type"},
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("same-origin request carries no CORS headers", func(t *testing.T) {
		w := send(r, http.MethodGet, "/health", "", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSOriginsFromEnvironment(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"CORS_ALLOW_ORIGINS": editorOrigin + ",https://editor.example.com",
	})
	require.Equal(t, []string{editorOrigin, "https://editor.example.com"}, cfg.CORS.AllowOrigins)
	r := navRouter(CORS(CORSConfigFor(cfg.CORS.AllowOrigins)))

	w := send(r, http.MethodGet, "/health", editorOrigin, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, editorOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")

	w = send(r, http.MethodPost, "/api/projects/p1/selected", "https://evil.example", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitShippedDefaults(t *testing.T) {
	cfg := config.Default()
	require.True(t, cfg.RateLimit.Enabled)
	rl := RateLimitConfigFor(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	assert.Equal(t, DefaultRateLimitConfig(), rl)
	r := navRouter(RateLimit(rl))

	for i := 0; i < cfg.RateLimit.Burst; i++ {
		require.Equal(t, http.StatusAccepted, send(r, http.MethodPost, "/api/projects/p1/selected", "", "10.0.0.1", nil).Code, "request %d", i+1)
	}

	// the bucket refills at RequestsPerSecond, so allow a few extra before the first rejection
	var limited *httptest.ResponseRecorder
	for i := 0; i < cfg.RateLimit.RequestsPerSecond/2 && limited == nil; i++ {
		if w := send(r, http.MethodPost, "/api/projects/p1/selected", "", "10.0.0.1", nil); w.Code == http.StatusTooManyRequests {
			limited = w
		}
	}
	require.NotNil(t, limited, "burst exhausted without a rejection")
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/health", "", "10.0.0.2", nil).Code)
}

func TestRateLimitFromEnvironment(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"RATE_LIMIT_RPS":   "1",
		"RATE_LIMIT_BURST": "2",
	})
	r := navRouter(RateLimit(RateLimitConfigFor(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, send(r, http.MethodGet, "/health", "", "192.168.1.1", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// limiters are per client
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/health", "", "192.168.1.2", nil).Code)
}

func TestCORSAnsweredBeforeRateLimit(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"RATE_LIMIT_RPS":   "1",
		"RATE_LIMIT_BURST": "1",
	})
	r := navRouter(
		CORS(CORSConfigFor(cfg.CORS.AllowOrigins)),
		RateLimit(RateLimitConfigFor(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
	)

	preflight := http.Header{"Access-Control-Request-Method": {http.MethodDelete}}
	for i := 0; i < 3; i++ {
		w := send(r, http.MethodOptions, "/api/projects/p1", editorOrigin, "172.16.0.1", preflight)
		assert.Equal(t, http.StatusNoContent, w.Code, "preflight %d", i+1)
	}
	assert.Equal(t, http.StatusNoContent, send(r, http.MethodDelete, "/api/projects/p1", editorOrigin, "172.16.0.1", nil).Code)
}

func TestLimiterSetEvictsIdleClients(t *testing.T) {
	set := newLimiterSet(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Unix(1000, 0)
	set.now = func() time.Time { return now }

	first := set.get("10.0.0.1")
	set.get("10.0.0.2")
	assert.Equal(t, 2, set.size())
	assert.Same(t, first, set.get("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	set.get("10.0.0.3")
	assert.Equal(t, 1, set.size())
	assert.NotSame(t, first, set.get("10.0.0.1"))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := navRouter(AccessLog(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	send(r, http.MethodPost, "/api/projects/p1/selected", "", "", nil)
	send(r, http.MethodGet, "/missing", "", "", nil)
	send(r, http.MethodGet, "/boom", "", "", nil)

	handled := logs.FilterMessage("request handled").All()
	if assert.Len(t, handled, 1) {
		assert.Equal(t, "/api/projects/:id/selected", handled[0].ContextMap()["route"])
		assert.Equal(t, int64(http.StatusAccepted), handled[0].ContextMap()["status"])
	}
	assert.Equal(t, 1, logs.FilterMessage("request rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}
