package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/comunidadlabs/community-auth/internal/api/metrics"
	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

// DefaultTimeout bounds every remote call; exceeding it is treated as a
// transport failure.
const DefaultTimeout = 8 * time.Second

// TokenSource supplies the bearer token for authenticated endpoints.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the production user service over HTTP.
type Client struct {
	baseURL     string
	http        *http.Client
	tokenSource TokenSource
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithTokenSource wires the bearer token used on authenticated endpoints.
func WithTokenSource(src TokenSource) ClientOption {
	return func(c *Client) { c.tokenSource = src }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// NewClient builds a Client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: DefaultTimeout,
			// The API never redirects; a 3xx means a proxy or captive
			// portal is in the way and must surface as such, not be
			// followed into whatever it points at.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UsableBaseURL reports whether baseURL points at a real deployment. An
// empty value or an example.com placeholder pins the mock for the process
// lifetime.
func UsableBaseURL(baseURL string) bool {
	if baseURL == "" {
		return false
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	return host != "example.com" && !strings.HasSuffix(host, ".example.com")
}

// authResponse is the envelope returned by login and register.
type authResponse struct {
	Token string               `json:"token,omitempty"`
	User  domain.RawUserRecord `json:"user"`
}

func (c *Client) Login(ctx context.Context, credential, password string) (domain.RawUserRecord, error) {
	body := map[string]string{"email": credential, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, false, &resp); err != nil {
		return domain.RawUserRecord{}, err
	}
	record := resp.User
	record.Token = resp.Token
	return record, nil
}

func (c *Client) Register(ctx context.Context, credential, password, name string) (domain.RawUserRecord, error) {
	body := map[string]string{"email": credential, "password": password, "name": name}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, false, &resp); err != nil {
		return domain.RawUserRecord{}, err
	}
	record := resp.User
	record.Token = resp.Token
	return record, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, true, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.RawUserRecord, error) {
	var records []domain.RawUserRecord
	if err := c.do(ctx, http.MethodGet, "/users", nil, true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (domain.RawUserRecord, error) {
	body := map[string]string{"role": string(role)}
	var record domain.RawUserRecord
	path := "/users/" + url.PathEscape(userID) + "/role"
	if err := c.do(ctx, http.MethodPatch, path, body, true, &record); err != nil {
		return domain.RawUserRecord{}, err
	}
	return record, nil
}

// do runs one request. Credential rejections come back as *domain.AuthError;
// everything else (transport faults, timeouts, 5xx) is a plain error, which
// the fallback layer treats as "service unreachable".
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	op := operationName(method, path)
	timer := time.Now()
	defer func() {
		metrics.RemoteRequestDuration.WithLabelValues(op).Observe(time.Since(timer).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authed && c.tokenSource != nil {
		token, err := c.tokenSource(ctx)
		if err != nil {
			return fmt.Errorf("%s: token source: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || (resp.StatusCode >= 300 && resp.StatusCode < 400) {
		return fmt.Errorf("%s: server error (%d)", op, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return domain.NewAuthError(errorMessage(resp.Body, resp.StatusCode), rejectionCause(resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage extracts the {"error": ...} envelope, falling back to the
// HTTP status text.
func errorMessage(body io.Reader, status int) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return http.StatusText(status)
}

func rejectionCause(status int) error {
	switch status {
	case http.StatusConflict:
		return domain.ErrUserExists
	case http.StatusNotFound:
		return domain.ErrUserNotFound
	case http.StatusForbidden:
		return domain.ErrForbidden
	default:
		return domain.ErrInvalidCredentials
	}
}

func operationName(method, path string) string {
	switch {
	case strings.HasPrefix(path, "/auth/login"):
		return "login"
	case strings.HasPrefix(path, "/auth/register"):
		return "register"
	case strings.HasPrefix(path, "/auth/logout"):
		return "logout"
	case method == http.MethodGet:
		return "list_users"
	default:
		return "update_user_role"
	}
}
