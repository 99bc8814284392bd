// Package auth exchanges stored connection properties for the bearer token
// every other call needs.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gradeworks/estimate-sync/pkg/logging"
)

// Properties are the user-entered connection settings. All fields are
// required.
type Properties struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	UserName     string
	Password     string
	ServerName   string
	DatabaseName string
}

// ConfigError reports incomplete connection properties. It is surfaced
// before any network call and is distinct from data errors.
type ConfigError struct {
	Missing []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required connection properties: %s", strings.Join(e.Missing, ", "))
}

// Validate checks that every property is present.
func (p Properties) Validate() error {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"baseUrl", p.BaseURL},
		{"clientID", p.ClientID},
		{"clientSecret", p.ClientSecret},
		{"userName", p.UserName},
		{"password", p.Password},
		{"serverName", p.ServerName},
		{"dbName", p.DatabaseName},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// ConnectionString derives the tenant database connection string sent as a
// header with every write call.
func (p Properties) ConnectionString() string {
	return fmt.Sprintf("Server=%s;Database=%s;MultipleActiveResultSets=true;Integrated Security=SSPI;",
		p.ServerName, p.DatabaseName)
}

// Session is the result of a successful login.
type Session struct {
	Token   string
	BaseURL string
}

// Provider performs the login handshake.
type Provider struct {
	props      Properties
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewProvider creates a provider for the given properties.
func NewProvider(props Properties) *Provider {
	return &Provider{
		props:      props,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewLogger("auth"),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (p *Provider) SetHTTPClient(c *http.Client) {
	p.httpClient = c
}

// Authenticate validates the stored properties and exchanges them for a
// bearer token at the remote login endpoint.
func (p *Provider) Authenticate(ctx context.Context) (Session, error) {
	if err := p.props.Validate(); err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.props.BaseURL+"/login", nil)
	if err != nil {
		return Session{}, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("clientID", p.props.ClientID)
	req.Header.Set("clientSecret", p.props.ClientSecret)
	req.Header.Set("userName", p.props.UserName)
	req.Header.Set("password", p.props.Password)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Error().Int("status", resp.StatusCode).Msg("Login rejected")
		return Session{}, fmt.Errorf("authenticating with the estimate API failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Session{}, fmt.Errorf("read login response: %w", err)
	}
	var payload struct {
		AccessToken string `json:"AccessToken"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if payload.AccessToken == "" {
		return Session{}, fmt.Errorf("login response carried no access token")
	}

	p.logger.Debug().Msg("Authenticated")
	return Session{Token: payload.AccessToken, BaseURL: p.props.BaseURL}, nil
}
