package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ledgerops/go-console-auth/credentials"
)

// RoleAdmin is the only role accepted by the console. The login endpoint is
// shared with other clients, so a successful exchange that returns any other
// role is still an authorization failure.
const RoleAdmin = "ADMIN"

const (
	loginPath   = "/api/admin/login"
	captchaPath = "/api/captcha"

	defaultRequestTimeout = 15 * time.Second
)

// LoginParams carries the operator's credentials plus the CAPTCHA challenge
// answer. The backend rejects logins without a CAPTCHA, so the key/value are
// optional only at this layer.
type LoginParams struct {
	LoginID      string
	Password     string
	CaptchaKey   string
	CaptchaValue string
}

// Captcha is a CAPTCHA challenge issued by the backend.
type Captcha struct {
	Key      string `json:"captchaKey"`
	ImageURL string `json:"captchaImageUrl"`
}

// Client performs the credential exchange with the backend. It does not
// retry and it does not cache; every call is a single request.
type Client struct {
	baseURL    string
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

// New creates a Client for the backend at baseURL (scheme://host, no
// trailing slash).
func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaKey   string `json:"captchaKey,omitempty"`
	CaptchaValue string `json:"captchaValue,omitempty"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Login exchanges the operator's credentials for a Credential Pair. A
// transport failure carries the server-provided message when one is present;
// a non-admin role is reported as InsufficientPrivilegeErr even though the
// exchange itself succeeded.
func (c *Client) Login(ctx context.Context, params LoginParams) (credentials.Pair, error) {
	if params.LoginID == "" || params.Password == "" {
		return credentials.Pair{}, MissingCredentialsErr
	}

	body, err := json.Marshal(loginRequest{
		Email:        params.LoginID,
		Password:     params.Password,
		CaptchaKey:   params.CaptchaKey,
		CaptchaValue: params.CaptchaValue,
	})
	if err != nil {
		return credentials.Pair{}, errors.Wrap(err, "[Client.Login] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return credentials.Pair{}, errors.Wrap(err, "[Client.Login] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return credentials.Pair{}, errors.Wrap(LoginFailedErr, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := serverMessage(resp.Body)
		c.log.Warn().Int("status", resp.StatusCode).Str("message", msg).Msg("login rejected")
		if msg == "" {
			return credentials.Pair{}, LoginFailedErr
		}
		return credentials.Pair{}, errors.Wrap(LoginFailedErr, msg)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return credentials.Pair{}, errors.Wrap(err, "[Client.Login] decode response")
	}

	if lr.Role != RoleAdmin {
		c.log.Warn().Str("role", lr.Role).Msg("login refused for non-admin role")
		return credentials.Pair{}, InsufficientPrivilegeErr
	}

	return credentials.Pair{
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
	}, nil
}

// FetchCaptcha requests a fresh CAPTCHA challenge. Callers request a new one
// after every failed login.
func (c *Client) FetchCaptcha(ctx context.Context) (Captcha, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+captchaPath, nil)
	if err != nil {
		return Captcha{}, errors.Wrap(err, "[Client.FetchCaptcha] build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Captcha{}, errors.Wrap(CaptchaRequestErr, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Captcha{}, errors.Wrapf(CaptchaRequestErr, "unexpected status %d", resp.StatusCode)
	}

	var captcha Captcha
	if err := json.NewDecoder(resp.Body).Decode(&captcha); err != nil {
		return Captcha{}, errors.Wrap(err, "[Client.FetchCaptcha] decode response")
	}
	return captcha, nil
}

// serverMessage extracts the backend's error message from a failed response,
// returning "" when the body is not the expected shape.
func serverMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return ""
	}
	return er.Message
}
