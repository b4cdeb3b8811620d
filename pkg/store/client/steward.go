package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/api"
)

const actorHeader = "X-Actor"

// Client talks to a running steward service over its dashboard API.
type Client struct {
	baseURL string
	actor   string
	http    *http.Client
}

func New(baseURL, actor string) *Client {
	return &Client{
		baseURL: baseURL,
		actor:   actor,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]api.Workspace, error) {
	var out []api.Workspace
	err := c.do(ctx, http.MethodGet, "/api/v1/workspaces", nil, &out)
	return out, err
}

func (c *Client) SnapshotHistory(ctx context.Context, workspaceID string) ([]api.Snapshot, error) {
	var out []api.Snapshot
	path := fmt.Sprintf("/api/v1/workspaces/%s/snapshots", url.PathEscape(workspaceID))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ListActions(ctx context.Context, status string) ([]api.Action, error) {
	path := "/api/v1/actions"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []api.Action
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) QueryAudit(ctx context.Context, workspaceID string, page, pageSize int) (api.AuditPage, error) {
	q := url.Values{}
	if workspaceID != "" {
		q.Set("workspace", workspaceID)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprint(pageSize))
	}
	path := "/api/v1/audit"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out api.AuditPage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CostSummary(ctx context.Context) (api.CostSummary, error) {
	var out api.CostSummary
	err := c.do(ctx, http.MethodGet, "/api/v1/costs/summary", nil, &out)
	return out, err
}

func (c *Client) Activity(ctx context.Context, limit int) ([]api.ActivityEvent, error) {
	path := "/api/v1/activity"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out []api.ActivityEvent
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) RunDiscovery(ctx context.Context) (api.DiscoveryRun, error) {
	var out api.DiscoveryRun
	err := c.do(ctx, http.MethodPost, "/api/v1/discovery/run", nil, &out)
	return out, err
}

// Command applies one approval command (approve, reject, cancel, retry)
// to an action.
func (c *Client) Command(ctx context.Context, actionID, command string) (api.Action, error) {
	var out api.Action
	path := fmt.Sprintf("/api/v1/actions/%s/%s", url.PathEscape(actionID), command)
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) ExecuteAction(ctx context.Context, actionID string) (api.AuditEntry, error) {
	var out api.AuditEntry
	path := fmt.Sprintf("/api/v1/actions/%s/execute", url.PathEscape(actionID))
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
