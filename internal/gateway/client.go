// Package gateway is the HTTP client for the RAG backend: file upload,
// question submission, and history retrieval. A bearer credential from
// the session store is attached when present; without one the request
// goes out unauthenticated and the server rejects it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"docchat/internal/models"
)

// ErrNoActiveSession is returned when a question is submitted with no
// chat id set, before any network activity.
var ErrNoActiveSession = errors.New("no active chat session; upload a file first")

// TokenSource supplies the bearer credential for backend calls. An empty
// token means "send unauthenticated".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StatusError is a non-2xx backend response. Detail carries the
// server-provided explanation when one exists.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Client talks to the RAG backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tokens:     tokens,
	}
}

// TestConnection hits the unauthenticated health endpoint.
func (c *Client) TestConnection(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/public", nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// UploadDocument POSTs the file as the multipart field "file" and returns
// the backend-issued chat id with the status message.
func (c *Client) UploadDocument(ctx context.Context, fileName string, contents io.Reader) (*models.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, contents); err != nil {
		return nil, fmt.Errorf("failed to read upload contents: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/UploadFile", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp models.UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ask submits a question within an existing chat. Fails with
// ErrNoActiveSession before any network call when chatID is empty.
func (c *Client) Ask(ctx context.Context, chatID, question string) (string, error) {
	if chatID == "" {
		return "", ErrNoActiveSession
	}

	req, err := c.jsonRequest(ctx, "/chat", models.AskRequest{ChatID: chatID, Question: question})
	if err != nil {
		return "", err
	}

	var resp models.AskResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// ChatIDs lists the caller's chat ids known to the backend.
func (c *Client) ChatIDs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get_chat_ids", nil)
	if err != nil {
		return nil, err
	}

	var resp models.ChatIDsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.ChatIDs, nil
}

// ChatHistory retrieves one chat's full history from the backend.
func (c *Client) ChatHistory(ctx context.Context, chatID string) ([]models.ChatEntry, error) {
	if chatID == "" {
		return nil, ErrNoActiveSession
	}

	path := "/get_chat_by_id?chat_id=" + url.QueryEscape(chatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	var resp models.ChatHistoryResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes the request with the bearer credential attached when one is
// available, and maps non-2xx responses to *StatusError with the server's
// detail string when present.
func (c *Client) do(req *http.Request, out any) error {
	if c.tokens != nil {
		token, err := c.tokens.Token(req.Context())
		if err != nil {
			return fmt.Errorf("failed to obtain credential: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e models.ErrorResponse
		_ = json.Unmarshal(body, &e)
		return &StatusError{StatusCode: resp.StatusCode, Detail: e.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
