package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ledgerops/go-console-auth/internal/utils"
)

const defaultRequestTimeout = 15 * time.Second

// TokenFunc returns the current access token, read fresh per request so the
// client keeps working across re-logins.
type TokenFunc func() string

// Client wraps the console's paginated listing and status-transition
// endpoints. Every screen of the console follows the same shape — fetch a
// page with a bearer token, then PATCH a status transition on operator
// action — so the client is deliberately thin.
type Client struct {
	baseURL    string
	token      TokenFunc
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption modifies a Client instance.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger overrides the default global logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// New creates an admin API client for the backend at baseURL.
func New(baseURL string, token TokenFunc, options ...ClientOption) (*Client, error) {
	if token == nil {
		return nil, errors.New("[adminapi.New] token func is required")
	}
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// ListUsers returns one page of end-user accounts.
func (c *Client) ListUsers(ctx context.Context, page PageRequest) (PageResult[User], error) {
	return listPage[User](ctx, c, "users", page)
}

// ListStores returns one page of merchant accounts.
func (c *Client) ListStores(ctx context.Context, page PageRequest) (PageResult[Store], error) {
	return listPage[Store](ctx, c, "stores", page)
}

// ListBanks returns one page of participating banks.
func (c *Client) ListBanks(ctx context.Context, page PageRequest) (PageResult[Bank], error) {
	return listPage[Bank](ctx, c, "banks", page)
}

// ListAccounts returns one page of token accounts.
func (c *Client) ListAccounts(ctx context.Context, page PageRequest) (PageResult[Account], error) {
	return listPage[Account](ctx, c, "accounts", page)
}

// ListTokenRequests returns one page of token issuance requests.
func (c *Client) ListTokenRequests(ctx context.Context, page PageRequest) (PageResult[TokenRequest], error) {
	return listPage[TokenRequest](ctx, c, "token-requests", page)
}

// ListSettlements returns one page of settlement history.
func (c *Client) ListSettlements(ctx context.Context, page PageRequest) (PageResult[Settlement], error) {
	return listPage[Settlement](ctx, c, "settlements", page)
}

// UpdateUserStatus transitions a user to the given status. reason is
// optional and recorded by the backend when present.
func (c *Client) UpdateUserStatus(ctx context.Context, id string, status Status, reason string) error {
	return c.updateStatus(ctx, "users", id, status, reason)
}

// UpdateStoreStatus transitions a store to the given status.
func (c *Client) UpdateStoreStatus(ctx context.Context, id string, status Status, reason string) error {
	return c.updateStatus(ctx, "stores", id, status, reason)
}

// UpdateBankStatus transitions a bank to the given status.
func (c *Client) UpdateBankStatus(ctx context.Context, id string, status Status, reason string) error {
	return c.updateStatus(ctx, "banks", id, status, reason)
}

// UpdateAccountStatus transitions an account to the given status.
func (c *Client) UpdateAccountStatus(ctx context.Context, id string, status Status, reason string) error {
	return c.updateStatus(ctx, "accounts", id, status, reason)
}

// UpdateTokenRequestStatus approves or rejects a token issuance request.
func (c *Client) UpdateTokenRequestStatus(ctx context.Context, id string, status Status, reason string) error {
	return c.updateStatus(ctx, "token-requests", id, status, reason)
}

type statusUpdateRequest struct {
	Status Status  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

func (c *Client) updateStatus(ctx context.Context, resource, id string, status Status, reason string) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = utils.Ptr(reason)
	}
	path := fmt.Sprintf("/api/admin/%s/%s/status", resource, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, path, statusUpdateRequest{Status: status, Reason: reasonPtr}, nil); err != nil {
		return errors.Wrapf(err, "[Client.updateStatus] %s %s", resource, id)
	}
	c.log.Info().Str("resource", resource).Str("id", id).Str("status", string(status)).
		Msg("status transition applied")
	return nil
}

func listPage[T any](ctx context.Context, c *Client, resource string, page PageRequest) (PageResult[T], error) {
	path := fmt.Sprintf("/api/admin/%s?page=%d&size=%d", resource, page.Page, page.Size)
	var result PageResult[T]
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return PageResult[T]{}, errors.Wrapf(err, "[adminapi.listPage] %s", resource)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("X-Request-ID", uuid.New().String())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(RequestFailedErr, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return UnauthorizedErr
	case resp.StatusCode == http.StatusNotFound:
		return NotFoundErr
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.Wrapf(RequestFailedErr, "unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
