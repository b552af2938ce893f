// Package apiclient provides a REST API client for seawardctl.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the Seaward API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	user       string
	bearer     string
}

// New creates a new API client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetUser sets the trusted-header identity (auth mode "header").
func (c *Client) SetUser(user string) {
	c.user = user
}

// SetBearer sets the JWT bearer token (auth mode "jwt").
func (c *Client) SetBearer(bearer string) {
	c.bearer = bearer
}

// do performs an HTTP request and decodes the JSON response into result.
// headers may be nil; the returned header gives access to the ETag.
func (c *Client) do(method, path string, query url.Values, headers map[string]string, body, result any) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set("X-Seaward-User", c.user)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return resp.Header, parseAPIError(resp.StatusCode, data)
	}
	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.Header, nil
}
