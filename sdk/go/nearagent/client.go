// Package nearagent is a Go client for the agent's HTTP API.
package nearagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Transaction submission waits for the node to commit, so it is longer than a
// typical API call.
const DefaultHTTPTimeout = 60 * time.Second

// Client wraps the HTTP interactions with the agent API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Running   bool   `json:"running"`
	Network   string `json:"network"`
	AccountID string `json:"account_id"`
	NodeURL   string `json:"node_url"`
}

// Balance mirrors GET /api/v1/balance. Amounts are yoctoNEAR decimal strings.
type Balance struct {
	Total     string `json:"total"`
	Staked    string `json:"staked"`
	Available string `json:"available"`
}

// Action is the payload of POST /api/v1/actions.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// ActionRecord is one entry of the action journal.
type ActionRecord struct {
	ID           int64  `json:"id"`
	AccountID    string `json:"account_id"`
	Network      string `json:"network"`
	ActionType   string `json:"action_type"`
	ReceiverID   string `json:"receiver_id,omitempty"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("nearagent api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("nearagent api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the agent API. When httpClient is nil, a
// default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// AccessToken returns the bearer token sent with every request.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken sets the bearer token. An empty token sends no header.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Status returns the agent status snapshot.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, nil, &status)
	return status, err
}

// Balance returns the agent account balance.
func (c *Client) Balance(ctx context.Context) (Balance, error) {
	var balance Balance
	err := c.do(ctx, http.MethodGet, "/api/v1/balance", nil, nil, &balance)
	return balance, err
}

// ExecuteAction submits an action and returns the raw node result.
func (c *Client) ExecuteAction(ctx context.Context, action Action) (json.RawMessage, error) {
	var out struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/actions", nil, action, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Transfer is a shortcut for a single-transfer transaction.
func (c *Client) Transfer(ctx context.Context, receiverID, yoctoAmount string) (json.RawMessage, error) {
	return c.ExecuteAction(ctx, Action{Type: "transaction", Params: map[string]any{
		"receiver_id": receiverID,
		"actions":     []any{map[string]any{"type": "transfer", "deposit": yoctoAmount}},
	}})
}

// ListActions returns the latest journal entries, newest first.
func (c *Client) ListActions(ctx context.Context, limit int) ([]ActionRecord, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var records []ActionRecord
	err := c.do(ctx, http.MethodGet, "/api/v1/actions", query, nil, &records)
	return records, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path.Join(c.baseURL.Path, endpoint), RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		_ = json.Unmarshal(data, &struct {
			Error *APIError `json:"error"`
		}{Error: apiErr})
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
