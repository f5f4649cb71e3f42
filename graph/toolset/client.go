// Package toolset implements the client side of the ToolSet wire protocol:
// POST {base_url}/tools/{tool_name} with {"messages": [...]}, response
// {"messages": [...]}, plus the GET {base_url}/tools catalog (spec §6). A
// ToolSet node's action is entirely this HTTP call; the engine never embeds
// a tool server, it only invokes one through graph.ToolInvoker.
package toolset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/supersteps/graphrun/graph"
)

// Client implements graph.ToolInvoker against a remote tool server.
type Client struct {
	httpClient *http.Client
	authToken  string
}

// NewClient returns a Client using a default-configured http.Client with a
// 30s timeout. Use ClientOption to override.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client (e.g. for custom
// transports or test doubles).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithAuthToken sets the bearer token sent as the Authorization header on
// every request.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) { c.authToken = token }
}

type wireMessages struct {
	Messages []any `json:"messages"`
}

// InvokeTool performs POST {baseURL}/tools/{toolName} with the state's
// messages, returning the State reconstructed from the response's messages.
// A 401 response surfaces as ErrUnauthorized.
func (c *Client) InvokeTool(ctx context.Context, baseURL, toolName string, state graph.State) (graph.State, error) {
	reqBody, err := json.Marshal(wireMessages{Messages: state.Messages})
	if err != nil {
		return graph.State{}, fmt.Errorf("toolset: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/tools/%s", baseURL, toolName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return graph.State{}, fmt.Errorf("toolset: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return graph.State{}, fmt.Errorf("toolset: request %s: %w", toolName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return graph.State{}, fmt.Errorf("toolset: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return graph.State{}, fmt.Errorf("toolset: %s: %w", toolName, ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		return graph.State{}, fmt.Errorf("%w: toolset: %s returned status %d: %s", graph.ErrInvalidOutput, toolName, resp.StatusCode, string(respBody))
	}

	var out wireMessages
	if err := json.Unmarshal(respBody, &out); err != nil {
		return graph.State{}, fmt.Errorf("%w: toolset: unmarshal response: %v", graph.ErrInvalidOutput, err)
	}
	return graph.State{Messages: out.Messages}, nil
}

// ErrUnauthorized is returned when a tool server rejects a call with 401.
var ErrUnauthorized = fmt.Errorf("toolset: unauthorized")

// ToolDescriptor describes one entry in a tool server's catalog.
type ToolDescriptor struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Doc  string `json:"doc"`
}

// Catalog performs GET {baseURL}/tools and returns the server's advertised
// tool list.
func (c *Client) Catalog(ctx context.Context, baseURL string) ([]ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("toolset: build catalog request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toolset: catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("toolset: catalog returned status %d", resp.StatusCode)
	}

	var descriptors []ToolDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&descriptors); err != nil {
		return nil, fmt.Errorf("toolset: decode catalog: %w", err)
	}
	return descriptors, nil
}
