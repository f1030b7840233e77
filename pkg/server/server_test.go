package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/config"
	"github.com/gatewarden/gatewarden/pkg/constant"
)

func newTestGate(t *testing.T, mutate func(*config.Config)) *Gate {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.DisableAllLogging = true
	if mutate != nil {
		mutate(cfg)
	}

	gate, err := NewGate(cfg, zap.NewNop())
	require.NoError(t, err)

	return gate
}

func doRequest(gate *Gate, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	gate.Router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	gate := newTestGate(t, nil)

	resp := doRequest(gate, httptest.NewRequest(http.MethodGet, constant.HealthURL, nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK\n", resp.Body.String())
	assert.NotEmpty(t, resp.Header().Get(constant.VersionHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	gate := newTestGate(t, nil)

	resp := doRequest(gate, httptest.NewRequest(http.MethodGet, constant.MetricsURL, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.EnableMetrics = false
	})

	// falls through to the auth sub-request handler, no scope covers it
	resp := doRequest(gate, httptest.NewRequest(http.MethodGet, constant.MetricsURL, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK\n", resp.Body.String())
}

func TestAdminEndpointsOnSeparateListener(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.ListenAdmin = "127.0.0.1:0"
	})

	require.NotNil(t, gate.adminRouter)

	recorder := httptest.NewRecorder()
	gate.adminRouter.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, constant.HealthURL, nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUnprotectedPathIsAllowed(t *testing.T) {
	gate := newTestGate(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set(constant.HeaderXAuthUsername, "alice")
	req.Header.Set(constant.HeaderXAuthGroups, "admins, auditors")

	resp := doRequest(gate, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice", resp.Header().Get(constant.HeaderXAuthUsername))
	assert.Equal(t, "admins,auditors", resp.Header().Get(constant.HeaderXAuthGroups))
}

func TestProtectedPathDeniedWithoutIdentity(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.Realm = "intranet"
		c.Scopes = []*config.Scope{
			{URI: "/", Require: []*config.Require{{Provider: constant.AuthenticatedProvider}}},
		}
	})

	resp := doRequest(gate, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, `Basic realm="intranet"`, resp.Header().Get(constant.ChallengeHeader))
}

func TestProtectedPathGrantedWithIdentity(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.Scopes = []*config.Scope{
			{URI: "/", Require: []*config.Require{{Provider: constant.AuthenticatedProvider}}},
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(constant.HeaderXAuthUsername, "alice")

	resp := doRequest(gate, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUserProviderRule(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.Scopes = []*config.Scope{
			{URI: "/admin", Require: []*config.Require{
				{Provider: constant.UserProvider, Rule: "alice carol"},
			}},
		}
	})

	cases := []struct {
		User     string
		Expected int
	}{
		{User: "alice", Expected: http.StatusOK},
		{User: "carol", Expected: http.StatusOK},
		{User: "bob", Expected: http.StatusUnauthorized},
		{User: "", Expected: http.StatusUnauthorized},
	}

	for _, testCase := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin/panel", nil)
		if testCase.User != "" {
			req.Header.Set(constant.HeaderXAuthUsername, testCase.User)
		}

		resp := doRequest(gate, req)
		assert.Equal(t, testCase.Expected, resp.Code, "user %q", testCase.User)
	}
}

func TestForwardedURIOverride(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.Scopes = []*config.Scope{
			{URI: "/admin", Require: []*config.Require{
				{Provider: constant.UserProvider, Rule: "alice"},
			}},
		}
	})

	// traefik style auth sub-request: the real path travels in the header
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constant.HeaderXForwardedURI, "/admin/panel")
	req.Header.Set(constant.HeaderXForwardedMethod, http.MethodPost)
	req.Header.Set(constant.HeaderXAuthUsername, "bob")

	resp := doRequest(gate, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req.Header.Set(constant.HeaderXAuthUsername, "alice")
	resp = doRequest(gate, req)
	assert.Equal(t, http.StatusOK, resp.Code)

	// dot segments in the forwarded uri are resolved before scope matching,
	// same as on the request url itself
	req.Header.Set(constant.HeaderXForwardedURI, "/public/../admin/panel")
	req.Header.Set(constant.HeaderXAuthUsername, "bob")
	resp = doRequest(gate, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req.Header.Set(constant.HeaderXForwardedURI, "/admin//panel")
	resp = doRequest(gate, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUnknownMethodNotImplemented(t *testing.T) {
	gate := newTestGate(t, nil)

	req := httptest.NewRequest("BOGUS", "/anything", nil)
	resp := doRequest(gate, req)

	assert.Equal(t, http.StatusNotImplemented, resp.Code)
}

func TestSecurityFilterRejectsWrongHost(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.EnableSecurityFilter = true
		c.Hostnames = []string{"gate.example.com"}
	})

	req := httptest.NewRequest(http.MethodGet, "http://evil.example.com/anything", nil)
	resp := doRequest(gate, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "http://gate.example.com/anything", nil)
	resp = doRequest(gate, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestPathNormalization(t *testing.T) {
	gate := newTestGate(t, func(c *config.Config) {
		c.Scopes = []*config.Scope{
			{URI: "/admin", Require: []*config.Require{
				{Provider: constant.UserProvider, Rule: "alice"},
			}},
		}
	})

	// dot segments must not sneak past the scope matching
	req := httptest.NewRequest(http.MethodGet, "/public/../admin/panel", nil)
	req.Header.Set(constant.HeaderXAuthUsername, "bob")

	resp := doRequest(gate, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDecisionCache(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	gate := newTestGate(t, func(c *config.Config) {
		c.StoreURL = "redis://" + srv.Addr()
		c.Scopes = []*config.Scope{
			{URI: "/", Require: []*config.Require{
				{Provider: constant.UserProvider, Rule: "alice"},
			}},
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set(constant.HeaderXAuthUsername, "alice")

	resp := doRequest(gate, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, srv.Keys(), 1)

	// second request is served from the cache and still granted
	resp = doRequest(gate, req)
	assert.Equal(t, http.StatusOK, resp.Code)

	// denials are cached as well, under a different identity tuple
	denied := httptest.NewRequest(http.MethodGet, "/data", nil)
	denied.Header.Set(constant.HeaderXAuthUsername, "bob")
	resp = doRequest(gate, denied)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Len(t, srv.Keys(), 2)
}

func TestNewGateRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.DisableAllLogging = true
	cfg.Listen = ""

	_, err := NewGate(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewGateRejectsUnknownProvider(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.DisableAllLogging = true
	cfg.Scopes = []*config.Scope{
		{URI: "/", Require: []*config.Require{{Provider: "no-such-provider"}}},
	}

	_, err := NewGate(cfg, zap.NewNop())
	assert.Error(t, err)
}
