// Package idp is the HTTP client for the identity provider endpoints
// (/v1/auth/signup, /v1/auth/login). Provider error details are surfaced
// verbatim to callers.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docchat/internal/models"
)

// Credentials is the provider's answer to a successful sign-in.
type Credentials struct {
	Token  string
	UserID string
	Email  string
}

// Error is a provider-reported failure (invalid credentials, duplicate
// account, …). The Detail string comes straight from the provider.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("identity provider error: status %d", e.StatusCode)
}

// Client talks to the identity provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SignUp registers a new account. The account still has to sign in to
// obtain a token.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	_, err := c.post(ctx, "/v1/auth/signup", models.SignupRequest{Email: email, Password: password})
	return err
}

// SignIn exchanges email/password for a bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	body, err := c.post(ctx, "/v1/auth/login", models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return Credentials{}, err
	}

	var resp models.AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return Credentials{
		Token:  resp.AccessToken,
		UserID: resp.UserID,
		Email:  resp.Email,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e models.ErrorResponse
		_ = json.Unmarshal(body.Bytes(), &e)
		return nil, &Error{StatusCode: resp.StatusCode, Detail: e.Detail}
	}
	return body.Bytes(), nil
}
