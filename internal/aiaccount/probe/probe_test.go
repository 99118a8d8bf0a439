package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProber(base string, timeout time.Duration) *Prober {
	return New(&http.Client{Timeout: timeout}, map[domain.Provider]string{
		domain.ProviderOpenAI:    base,
		domain.ProviderAnthropic: base,
		domain.ProviderGoogle:    base,
	}, zap.NewNop())
}

func TestProbe_OpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newTestProber(srv.URL, time.Second).Probe(context.Background(), domain.ProviderOpenAI, "sk-test")
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "连接成功", res.Message)
}

func TestProbe_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"max_tokens":1`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newTestProber(srv.URL, time.Second).Probe(context.Background(), domain.ProviderAnthropic, "ak-test")
	assert.True(t, res.Success)
}

func TestProbe_GoogleQueryKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newTestProber(srv.URL, time.Second).Probe(context.Background(), domain.ProviderGoogle, "g-key")
	assert.True(t, res.Success)
}

func TestProbe_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	res := newTestProber(srv.URL, time.Second).Probe(context.Background(), domain.ProviderOpenAI, "bad")
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "API响应错误: HTTP 401", res.Message)
}

func TestProbe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newTestProber(srv.URL, 50*time.Millisecond).Probe(context.Background(), domain.ProviderGoogle, "secret-key")
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "网络错误: "), res.Message)
	assert.NotContains(t, res.Message, "secret-key")
}

func TestProbe_UnsupportedProvider(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	res := newTestProber(srv.URL, time.Second).Probe(context.Background(), domain.Provider("mistral"), "k")
	require.False(t, res.Success)
	assert.Equal(t, "不支持的提供商: mistral", res.Message)
	assert.Zero(t, res.ResponseTime)
	assert.Zero(t, hits)
}
