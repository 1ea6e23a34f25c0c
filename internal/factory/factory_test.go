package factory

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			HandlerTimeout: 5 * time.Second,
			MaxJSONBytes:   10 * 1024,
			PublicURL:      "http://localhost:3000",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:     true,
			MaxRequests: 2,
			Window:      time.Minute,
			Backend:     "memory",
			UploadRPS:   1,
			UploadBurst: 1,
		},
		Store:   config.StoreConfig{Backend: "memory"},
		Hashing: config.HashingConfig{Argon2MemoryCost: 1024, Argon2TimeCost: 1, Argon2Parallelism: 1, Pepper: "pepper"},
		Uploads: config.UploadsConfig{
			Dir:            t.TempDir(),
			MaxCoverBytes:  1024 * 1024,
			MaxFileBytes:   1024 * 1024,
			CoverMimeTypes: []string{"image/png"},
			FileMimeTypes:  []string{"application/pdf"},
		},
	}
}

func TestNew_MemoryBackends(t *testing.T) {
	util.SetLogger(zap.NewNop())

	f, err := New(memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.IsType(t, &document.MemoryStore{}, f.Store())
	assert.NotNil(t, f.ServiceFactory())
	assert.NotNil(t, f.RateLimitStats())
	assert.Nil(t, f.TLSManager())
	assert.True(t, f.IsHealthy(t.Context()))

	health := f.HealthCheck(t.Context())
	assert.Contains(t, health, "store")
	assert.NotContains(t, health, "redis")
}

func TestNew_UnknownStoreBackend(t *testing.T) {
	util.SetLogger(zap.NewNop())
	cfg := memoryConfig(t)
	cfg.Store.Backend = "mongodb"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestFactory_RouterAppliesRateLimit(t *testing.T) {
	util.SetLogger(zap.NewNop())

	f, err := New(memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	router := f.Router()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/todos", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"store":"ok"`), rec.Body.String())
}

func TestFactory_CloseIsIdempotent(t *testing.T) {
	util.SetLogger(zap.NewNop())

	f, err := New(memoryConfig(t))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	f.WaitForClose()
}
