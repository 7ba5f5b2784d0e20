// Package client provides a Go client library for the codemode API server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

// Client communicates with the codemode API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new codemode API client pointing at the given base URL
// (e.g. "http://localhost:7171").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest builds and executes an HTTP request.
// If body is non-nil it is JSON-encoded and sent as the request body.
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// doJSON executes a request, checks for a 2xx status, and JSON-decodes
// the response body into target (when target is non-nil).
func (c *Client) doJSON(method, path string, body interface{}, target interface{}) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Healthz checks whether the API server is healthy.
func (c *Client) Healthz() error {
	resp, err := c.doRequest(http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("healthz failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Toolsets
// ---------------------------------------------------------------------------

// CreateToolset creates a new toolset.
func (c *Client) CreateToolset(ts *v1alpha1.Toolset) (*v1alpha1.Toolset, error) {
	var out v1alpha1.Toolset
	if err := c.doJSON(http.MethodPost, "/api/v1alpha1/toolsets", ts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetToolset retrieves a toolset by name.
func (c *Client) GetToolset(name string) (*v1alpha1.Toolset, error) {
	var out v1alpha1.Toolset
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/toolsets/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListToolsets returns all toolsets.
func (c *Client) ListToolsets() ([]*v1alpha1.Toolset, error) {
	var out []*v1alpha1.Toolset
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/toolsets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateToolset replaces an existing toolset.
func (c *Client) UpdateToolset(ts *v1alpha1.Toolset) (*v1alpha1.Toolset, error) {
	var out v1alpha1.Toolset
	path := "/api/v1alpha1/toolsets/" + url.PathEscape(ts.Metadata.Name)
	if err := c.doJSON(http.MethodPut, path, ts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteToolset deletes a toolset by name.
func (c *Client) DeleteToolset(name string) error {
	return c.doJSON(http.MethodDelete, "/api/v1alpha1/toolsets/"+url.PathEscape(name), nil, nil)
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// CreateRun submits a run for asynchronous execution. The returned run
// is in the Pending phase; poll GetRun for the result.
func (c *Client) CreateRun(run *v1alpha1.Run) (*v1alpha1.Run, error) {
	var out v1alpha1.Run
	if err := c.doJSON(http.MethodPost, "/api/v1alpha1/runs", run, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun retrieves a run by name.
func (c *Client) GetRun(name string) (*v1alpha1.Run, error) {
	var out v1alpha1.Run
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/runs/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRuns returns all runs, optionally filtered by phase.
func (c *Client) ListRuns(phase string) ([]*v1alpha1.Run, error) {
	path := "/api/v1alpha1/runs"
	if phase != "" {
		path += "?phase=" + url.QueryEscape(phase)
	}
	var out []*v1alpha1.Run
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRun cancels (if executing) and deletes a run by name.
func (c *Client) DeleteRun(name string) error {
	return c.doJSON(http.MethodDelete, "/api/v1alpha1/runs/"+url.PathEscape(name), nil, nil)
}

// CancelRun cancels an executing run.
func (c *Client) CancelRun(name string) error {
	path := "/api/v1alpha1/runs/" + url.PathEscape(name) + "/cancel"
	return c.doJSON(http.MethodPost, path, nil, nil)
}

// GetRunLog retrieves the captured execution log of a run.
func (c *Client) GetRunLog(name string) (string, error) {
	resp, err := c.doRequest(http.MethodGet, "/api/v1alpha1/runs/"+url.PathEscape(name)+"/log", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}

// WaitForRun polls a run until it reaches a terminal phase or the
// timeout elapses.
func (c *Client) WaitForRun(name string, timeout time.Duration) (*v1alpha1.Run, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := c.GetRun(name)
		if err != nil {
			return nil, err
		}
		if run.Status.Phase == v1alpha1.RunSucceeded || run.Status.Phase == v1alpha1.RunFailed {
			return run, nil
		}
		if time.Now().After(deadline) {
			return run, fmt.Errorf("timed out waiting for run %q (phase: %s)", name, run.Status.Phase)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

// Apply performs a create-or-update of any resource.
func (c *Client) Apply(resource interface{}) error {
	return c.doJSON(http.MethodPost, "/api/v1alpha1/apply", resource, nil)
}
