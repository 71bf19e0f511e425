// internal/tenant/directory/client.go
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"realmgate/internal/observability/logging"
	"realmgate/internal/tenant"
)

// Config holds the tenant directory client settings
type Config struct {
	// BaseURL is the root of the directory service
	BaseURL string

	// Timeout bounds each directory request
	Timeout time.Duration

	// TokenURL, ClientID and ClientSecret enable client-credentials
	// authentication towards the directory. Requests are anonymous when
	// ClientID is unset.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client fetches tenant definitions from the directory service. It
// implements tenant.Source.
type Client struct {
	base   string
	client *http.Client
	logger *logging.Logger
}

// New creates a new directory client
func New(config *Config, logger *logging.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if config.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
			Scopes:       config.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = timeout
	}

	moduleLogger := logger.WithModule("tenant.directory")
	moduleLogger.Info("tenant directory configured",
		"url", logging.RedactStringURL(config.BaseURL),
		"authenticated", config.ClientID != "")

	return &Client{
		base:   strings.TrimSuffix(config.BaseURL, "/"),
		client: httpClient,
		logger: moduleLogger,
	}, nil
}

// ListTenants returns every tenant the directory knows about.
func (c *Client) ListTenants(ctx context.Context) ([]tenant.Definition, error) {
	var payload struct {
		Tenants []tenant.Definition `json:"tenants"`
	}
	if err := c.getJSON(ctx, c.base+"/v1/tenants", &payload); err != nil {
		return nil, err
	}
	return payload.Tenants, nil
}

// FetchTenant returns the definition for one tenant. A directory 404 is
// reported as tenant.ErrTenantNotFound.
func (c *Client) FetchTenant(ctx context.Context, id string) (tenant.Definition, error) {
	var def tenant.Definition
	err := c.getJSON(ctx, c.base+"/v1/tenants/"+url.PathEscape(id), &def)
	if err != nil {
		return tenant.Definition{}, err
	}
	return def, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return tenant.ErrTenantNotFound
	default:
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}
