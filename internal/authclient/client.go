package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
)

const (
	APIKeyHeader   = "X-API-Key"
	DefaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// ValidateResponse is the redemption endpoint's JSON body. Absent fields
// are null on the wire.
type ValidateResponse struct {
	Valid       bool     `json:"valid"`
	Username    *string  `json:"username"`
	DisplayName *string  `json:"displayName"`
	Roles       []string `json:"roles"`
	Reason      *string  `json:"reason"`
}

// Redemption converts the wire body into the domain result.
func (r *ValidateResponse) Redemption() domain.Redemption {
	if !r.Valid || r.Username == nil {
		reason := domain.ReasonTokenNotFound
		if r.Reason != nil {
			reason = domain.FailureReason(*r.Reason)
		}
		return domain.Rejected(reason)
	}
	id := domain.Identity{Username: *r.Username, Roles: r.Roles}
	if r.DisplayName != nil {
		id.DisplayName = *r.DisplayName
	}
	return domain.Redeemed(id)
}

// Client calls an auth service's redemption endpoint. Calls are bounded by
// the client timeout and never retried: a retry after a lost success would
// only report the token as already used.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Validate redeems tok. A rejected API key yields domain.ErrUnauthorized;
// transport failures and unexpected statuses wrap
// domain.ErrRedemptionUnavailable.
func (c *Client) Validate(ctx context.Context, tok string) (*ValidateResponse, error) {
	endpoint := c.baseURL + "/validate?" + url.Values{"token": {tok}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRedemptionUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.ErrUnauthorized
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", domain.ErrRedemptionUnavailable, resp.StatusCode)
	}

	var body ValidateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", domain.ErrRedemptionUnavailable, err)
	}
	return &body, nil
}

// Ping checks the auth service's liveness endpoint. Used as a readiness
// dependency by client apps.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth system unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection can be reused

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth system health: status %d", resp.StatusCode)
	}
	return nil
}

// Redeem is Validate reduced to the domain result.
func (c *Client) Redeem(ctx context.Context, tok string) (domain.Redemption, error) {
	resp, err := c.Validate(ctx, tok)
	if err != nil {
		return domain.Redemption{}, err
	}
	return resp.Redemption(), nil
}
