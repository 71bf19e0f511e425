// internal/proxy/router/router_test.go
package router

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"realmgate/internal/auth"
	"realmgate/internal/authz/roles"
	"realmgate/internal/claims"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger("error", "text")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

func testRouter(t *testing.T) (*Router, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("upstream: " + r.URL.Path))
	}))
	t.Cleanup(upstream.Close)

	upstreamURL, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parse upstream url: %v", err)
	}

	logger := testLogger(t)
	r := New(Config{
		UpstreamURL:     upstreamURL,
		UpstreamTimeout: 5 * time.Second,
		Rules: []Rule{
			{Name: "public", Action: "allow", Paths: []string{"/public"}, MatchPrefix: true},
			{Name: "blocked", Action: "deny", Paths: []string{"/internal"}, MatchPrefix: true},
			{Name: "events", Action: "auth", Paths: []string{"/api"}, MatchPrefix: true, RequiredRoles: []string{"admin"}},
			{Name: "profile", Action: "auth", Paths: []string{"/me"}},
		},
	}, roles.New(logger), logger, metrics.NewCollector())

	return r, &hits
}

func do(t *testing.T, handler http.Handler, path string, identity *claims.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if identity != nil {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterAllowRuleProxies(t *testing.T) {
	r, hits := testRouter(t)

	rec := do(t, r, "/public/docs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream hits = %d, want 1", got)
	}
}

func TestRouterDenyRule(t *testing.T) {
	r, hits := testRouter(t)

	rec := do(t, r, "/internal/admin", &claims.Identity{Subject: "u", Roles: []string{"admin"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := hits.Load(); got != 0 {
		t.Fatalf("upstream hits = %d, want 0", got)
	}
}

func TestRouterAuthRule(t *testing.T) {
	r, hits := testRouter(t)

	if rec := do(t, r, "/api/events", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want 401", rec.Code)
	}
	if rec := do(t, r, "/api/events", &claims.Identity{Subject: "u", Roles: []string{"viewer"}}); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role: status = %d, want 403", rec.Code)
	}
	if got := hits.Load(); got != 0 {
		t.Fatalf("upstream hit before authorization passed: %d", got)
	}

	rec := do(t, r, "/api/events", &claims.Identity{Subject: "u", Roles: []string{"admin"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized: status = %d, want 200", rec.Code)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream hits = %d, want 1", got)
	}
}

func TestRouterAuthRuleWithoutRoles(t *testing.T) {
	r, _ := testRouter(t)

	// Authentication alone satisfies a role-less auth rule.
	if rec := do(t, r, "/me", &claims.Identity{Subject: "u"}); rec.Code != http.StatusOK {
		t.Fatalf("authenticated: status = %d, want 200", rec.Code)
	}
	if rec := do(t, r, "/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want 401", rec.Code)
	}
}

func TestRouterHealthzAnsweredLocally(t *testing.T) {
	r, hits := testRouter(t)

	rec := do(t, r, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if got := hits.Load(); got != 0 {
		t.Error("health probe reached the upstream")
	}
}

func TestRouterUnmatchedPath(t *testing.T) {
	r, hits := testRouter(t)

	rec := do(t, r, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := hits.Load(); got != 0 {
		t.Error("unmatched request reached the upstream")
	}
}

func TestRouterUnknownActionDenies(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)
	upstreamURL, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parse upstream url: %v", err)
	}

	logger := testLogger(t)
	r := New(Config{
		UpstreamURL:     upstreamURL,
		UpstreamTimeout: 5 * time.Second,
		Rules: []Rule{
			{Name: "odd", Action: "block", Paths: []string{"/odd"}},
		},
	}, roles.New(logger), logger, metrics.NewCollector())

	rec := do(t, r, "/odd", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
