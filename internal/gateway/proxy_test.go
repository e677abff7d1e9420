package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"openfeed/internal/config"
	"openfeed/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", name)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGatewayFixture(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.GatewayConfig{
		IdentityURL: upstream(t, "identity").URL,
		PostsURL:    upstream(t, "posts").URL,
		MediaURL:    upstream(t, "media").URL,
		SearchURL:   upstream(t, "search").URL,
	}

	proxy, err := New(cfg, logger.New(logger.DevelopmentMode))
	require.NoError(t, err)

	engine := gin.New()
	engine.NoRoute(proxy.Handler())

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutesByPrefix(t *testing.T) {
	srv := newGatewayFixture(t)

	cases := map[string]string{
		"/v1/auth/login": "identity",
		"/v1/posts":      "posts",
		"/v1/posts/123":  "posts",
		"/v1/feed/live":  "posts",
		"/v1/media":      "media",
		"/v1/search?q=x": "search",
	}

	for path, want := range cases {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, want, res.Header.Get("X-Upstream"), "path %s", path)
	}
}

func TestUnknownPrefixIsNotFound(t *testing.T) {
	srv := newGatewayFixture(t)

	res, err := http.Get(srv.URL + "/v1/nope")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUpstreamDownIsBadGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.GatewayConfig{
		IdentityURL: "http://127.0.0.1:1",
		PostsURL:    "http://127.0.0.1:1",
		MediaURL:    "http://127.0.0.1:1",
		SearchURL:   "http://127.0.0.1:1",
	}

	proxy, err := New(cfg, logger.New(logger.DevelopmentMode))
	require.NoError(t, err)

	engine := gin.New()
	engine.NoRoute(proxy.Handler())
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL + "/v1/posts")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}
