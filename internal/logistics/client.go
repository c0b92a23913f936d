// Package logistics is the client for the upstream logistics REST API. All
// inventory arithmetic, authorization, and persistence happen upstream; this
// package only shapes requests and decodes responses.
package logistics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jkoblar/garrison/internal/model"
)

// Client calls the upstream API. If a bearer credential is present in the
// request context it is attached to every call; there is no refresh, retry,
// or automatic logout — an expired credential simply fails the next call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx upstream response. Message is the server-provided
// message field, empty when the body carried none.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %d", e.Status)
}

// ErrorMessage returns the upstream message from err if it carries one,
// otherwise fallback. Handlers use it to surface create/update failures.
func ErrorMessage(err error, fallback string) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type contextKey string

const tokenKey contextKey = "token"

// WithToken returns a context carrying the bearer credential for outbound
// calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext retrieves the bearer credential, or "" if absent.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// envelope is the upstream response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// do issues one request and decodes the enveloped response body into out
// (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Message
		if msg == "" {
			msg = errBody.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s %s data: %w", method, path, err)
	}
	return nil
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	BaseID *int64 `json:"baseId"`
}

// Login exchanges credentials for a bearer token and the user's identity.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	return result, err
}

// Register creates an upstream account. BaseID is null for admins.
func (c *Client) Register(ctx context.Context, username, password, role string, baseID *int64) error {
	return c.do(ctx, http.MethodPost, "/auth/register", map[string]any{
		"username": username,
		"password": password,
		"role":     role,
		"baseId":   baseID,
	}, nil)
}

// ListBases fetches all bases.
func (c *Client) ListBases(ctx context.Context) ([]model.Base, error) {
	var bases []model.Base
	err := c.do(ctx, http.MethodGet, "/base", nil, &bases)
	return bases, err
}

// ListAssets fetches assets visible to the current user.
func (c *Client) ListAssets(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	err := c.do(ctx, http.MethodGet, "/asset", nil, &assets)
	return assets, err
}

// AssetsByBase fetches the assets held at one base.
func (c *Client) AssetsByBase(ctx context.Context, baseID int64) ([]model.Asset, error) {
	var assets []model.Asset
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/asset/%d", baseID), nil, &assets)
	return assets, err
}

// CreateAsset registers a new asset at a base.
func (c *Client) CreateAsset(ctx context.Context, assetType, name string, quantity int, baseID int64) error {
	return c.do(ctx, http.MethodPost, "/asset", map[string]any{
		"type":     assetType,
		"name":     name,
		"quantity": quantity,
		"baseId":   baseID,
	}, nil)
}

// Quantity adjustment operations.
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// AdjustAsset adds or removes quantity from an asset.
func (c *Client) AdjustAsset(ctx context.Context, assetID int64, quantity int, operation string) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/asset/%d", assetID), map[string]any{
		"quantity":  quantity,
		"operation": operation,
	}, nil)
}

// ListPurchases fetches all purchases.
func (c *Client) ListPurchases(ctx context.Context) ([]model.Purchase, error) {
	var purchases []model.Purchase
	err := c.do(ctx, http.MethodGet, "/purchase", nil, &purchases)
	return purchases, err
}

// CreatePurchase records a purchase of an asset.
func (c *Client) CreatePurchase(ctx context.Context, assetID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, "/purchase", map[string]any{
		"assetId":  assetID,
		"quantity": quantity,
	}, nil)
}

// ListAssignments fetches all assignments.
func (c *Client) ListAssignments(ctx context.Context) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := c.do(ctx, http.MethodGet, "/assignment", nil, &assignments)
	return assignments, err
}

// CreateAssignment assigns a quantity of an asset to an assignee.
func (c *Client) CreateAssignment(ctx context.Context, assetID int64, quantity int, assignee, date string) error {
	return c.do(ctx, http.MethodPost, "/assignment", map[string]any{
		"assetId":  assetID,
		"quantity": quantity,
		"assignee": assignee,
		"date":     date,
	}, nil)
}

// ExpendAssignment marks an assignment as consumed. One-way, no reversal.
func (c *Client) ExpendAssignment(ctx context.Context, assignmentID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/assignment/%d/expend", assignmentID), nil, nil)
}

// ListTransfers fetches all transfers.
func (c *Client) ListTransfers(ctx context.Context) ([]model.Transfer, error) {
	var transfers []model.Transfer
	err := c.do(ctx, http.MethodGet, "/transfer", nil, &transfers)
	return transfers, err
}

// CreateTransfer moves a quantity of an asset between bases.
func (c *Client) CreateTransfer(ctx context.Context, assetID, fromBaseID, toBaseID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, "/transfer", map[string]any{
		"assetId":    assetID,
		"fromBaseId": fromBaseID,
		"toBaseId":   toBaseID,
		"quantity":   quantity,
	}, nil)
}

// DashboardMetrics fetches the precomputed dashboard summary.
func (c *Client) DashboardMetrics(ctx context.Context) (model.Metrics, error) {
	var metrics model.Metrics
	err := c.do(ctx, http.MethodGet, "/dashboard/metrics", nil, &metrics)
	return metrics, err
}
