// Package backend talks to the upstream production backend that owns
// batches and users, and defines the wire shapes both sides share.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/config"
)

// APIError is a non-successful upstream response.
type APIError struct {
	Status   int
	Envelope Envelope
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error: status=%d, message=%s", e.Status, e.Envelope.ErrorMessage())
}

// Unwrap exposes field errors so allocation.IsClientError recognizes them.
func (e *APIError) Unwrap() error {
	if fe := e.Envelope.FieldErrors(); !fe.Empty() {
		return fe
	}
	return nil
}

// Client is a resty-backed upstream client.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds an upstream client. The token is sent as a Bearer
// credential on every request when set.
func NewClient(cfg config.UpstreamConfig) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &Client{httpClient: restyClient}
}

// ListBatches fetches one page of batches.
func (c *Client) ListBatches(ctx context.Context, pageSize int) ([]allocation.Batch, error) {
	body, err := c.get(ctx, "/workflow/batches/", pageSize)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	items, err := decodeList[Batch](body)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	batches := make([]allocation.Batch, 0, len(items))
	for _, b := range items {
		batches = append(batches, b.Domain())
	}
	return batches, nil
}

// ListUsers fetches one page of users. Some deployments answer with a bare
// JSON array instead of the envelope; both are accepted.
func (c *Client) ListUsers(ctx context.Context, pageSize int) ([]allocation.User, error) {
	body, err := c.get(ctx, "/users/", pageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	items, err := decodeList[User](body)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]allocation.User, 0, len(items))
	for _, u := range items {
		users = append(users, u.Domain())
	}
	return users, nil
}

// CreateWorkforceAllocation submits a workforce allocation.
func (c *Client) CreateWorkforceAllocation(ctx context.Context, p WorkforcePayload) (*Envelope, error) {
	return c.post(ctx, "/allocations/workforce/", p)
}

// CreateMaterialAllocation submits a material allocation.
func (c *Client) CreateMaterialAllocation(ctx context.Context, p MaterialPayload) (*Envelope, error) {
	return c.post(ctx, "/allocations/material/", p)
}

func (c *Client) get(ctx context.Context, path string, pageSize int) ([]byte, error) {
	req := c.httpClient.R().SetContext(ctx)
	if pageSize > 0 {
		req.SetQueryParam("page_size", strconv.Itoa(pageSize))
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		env := Envelope{}
		_ = json.Unmarshal(resp.Body(), &env)
		return nil, &APIError{Status: resp.StatusCode(), Envelope: env}
	}
	return resp.Body(), nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*Envelope, error) {
	env := new(Envelope)
	apiErr := new(Envelope)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(env).
		SetError(apiErr).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return apiErr, &APIError{Status: resp.StatusCode(), Envelope: *apiErr}
	}
	if !env.Success {
		return env, &APIError{Status: resp.StatusCode(), Envelope: *env}
	}
	return env, nil
}

// decodeList accepts {success, data: {results: [...]}}, {success, data: [...]}
// and a bare [...].
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return nil, &APIError{Status: http.StatusOK, Envelope: env}
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}

	var page Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
