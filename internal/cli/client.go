package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/me/wdl2vidarr/pkg/vidarr"
)

// Client is an HTTP client for the workflow API of Vidarr servers.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a Vidarr API client.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{},
		Logger:     logger.With("component", "client"),
	}
}

// Response is the status and raw body of an API call.
type Response struct {
	StatusCode int
	Body       []byte
}

// do performs an HTTP request. Non-2xx statuses are not errors; callers
// interpret them.
func (c *Client) do(ctx context.Context, method, target string, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		c.Logger.Debug("HTTP request body", "bytes", len(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	c.Logger.Debug("HTTP request", "method", method, "url", target, "request_id", requestID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "request_id", requestID, "bytes", len(respBody))
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func workflowURL(server string, parts ...string) string {
	u := server + "/api/workflow"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// WorkflowRegistered reports whether the server knows a workflow name.
func (c *Client) WorkflowRegistered(ctx context.Context, server, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, workflowURL(server, name), nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

// RegisterVersion posts a bundle as a version of a workflow.
func (c *Client) RegisterVersion(ctx context.Context, server, name, version string, w *vidarr.Workflow) (*Response, error) {
	return c.do(ctx, http.MethodPost, workflowURL(server, name, version), w)
}
