// internal/tenant/directory/client_test.go
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"realmgate/internal/observability/logging"
	"realmgate/internal/tenant"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger("error", "text")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(&Config{}, testLogger(t)); err == nil {
		t.Fatal("New without base URL succeeded, want error")
	}
}

func TestListTenants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tenants" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tenants":[
			{"id":"org1","issuer":"https://idp.example.com/realms/org1"},
			{"id":"org2","issuer":"https://idp.example.com/realms/org2","audience":"calendar-api"}
		]}`)
	}))
	defer srv.Close()

	client, err := New(&Config{BaseURL: srv.URL}, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	defs, err := client.ListTenants(context.Background())
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if defs[0].ID != "org1" || defs[1].Audience != "calendar-api" {
		t.Errorf("unexpected definitions: %+v", defs)
	}
}

func TestFetchTenant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/tenants/org1":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"org1","issuer":"https://idp.example.com/realms/org1","secret":"s"}`)
		case "/v1/tenants/broken":
			http.Error(w, "oops", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := New(&Config{BaseURL: srv.URL}, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	def, err := client.FetchTenant(ctx, "org1")
	if err != nil {
		t.Fatalf("FetchTenant org1: %v", err)
	}
	if def.ID != "org1" || def.Secret != "s" {
		t.Errorf("unexpected definition: %+v", def)
	}

	if _, err := client.FetchTenant(ctx, "org9"); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Errorf("FetchTenant org9: err = %v, want ErrTenantNotFound", err)
	}

	_, err = client.FetchTenant(ctx, "broken")
	if err == nil {
		t.Fatal("FetchTenant broken succeeded, want error")
	}
	if errors.Is(err, tenant.ErrTenantNotFound) {
		t.Errorf("directory failure reported as ErrTenantNotFound: %v", err)
	}
}

func TestClientCredentialsAuthentication(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"directory-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/tenants", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tenants":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := New(&Config{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth/token",
		ClientID:     "realmgate",
		ClientSecret: "hunter2",
	}, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.ListTenants(context.Background()); err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if gotAuth != "Bearer directory-token" {
		t.Errorf("Authorization = %q, want Bearer directory-token", gotAuth)
	}
}
