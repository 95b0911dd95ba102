package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/registry"
)

// httpClient is shared by every Client for connection pooling across the
// peers a single process talks to.
var httpClient = &http.Client{Timeout: 5 * time.Second}

// postJSON sends body as a JSON-encoded POST to url and decodes the
// response into out (skipped if out is nil). A status >= 300 is reported
// as an error carrying the response body as its message.
func postJSON(ctx context.Context, url string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rpc: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(url, resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON sends a GET request to url and decodes the response into out.
func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(url, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(url string, resp *http.Response) error {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return fmt.Errorf("rpc: %s: http %d: %s", url, resp.StatusCode, buf.String())
}

// Client is a registry.RPCStub implementation that makes HTTP calls
// against one peer's base URL (e.g. "http://shard-3.internal:8090").
type Client struct {
	baseURL string
}

// NewClient returns a Client targeting baseURL, which must not have a
// trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL}
}

var _ registry.RPCStub = (*Client)(nil)

// Index implements registry.RPCStub.
func (c *Client) Index(ctx context.Context, batch []cluster.Document) ([]cluster.FieldError, error) {
	var resp fieldErrorsResponse
	if err := postJSON(ctx, c.baseURL+"/index", indexRequest{Docs: batch}, &resp); err != nil {
		return nil, err
	}
	return resp.FieldErrors, nil
}

// Sync implements registry.RPCStub.
func (c *Client) Sync(ctx context.Context, batch []cluster.ScannedDocument) ([]cluster.FieldError, error) {
	var resp fieldErrorsResponse
	if err := postJSON(ctx, c.baseURL+"/sync", syncRequest{Docs: batch}, &resp); err != nil {
		return nil, err
	}
	return resp.FieldErrors, nil
}

// Search implements registry.RPCStub.
func (c *Client) Search(ctx context.Context, req registry.SearchRequest) (registry.SearchResponse, error) {
	var resp searchResponse
	wire := searchRequest{Query: req.Query, IncludeCold: req.IncludeCold, Max: req.Max}
	if err := postJSON(ctx, c.baseURL+"/search", wire, &resp); err != nil {
		return registry.SearchResponse{}, err
	}
	return registry.SearchResponse{Hits: resp.Hits}, nil
}

// Stats implements registry.RPCStub.
func (c *Client) Stats(ctx context.Context) (registry.StatsResponse, error) {
	var resp statsResponse
	if err := getJSON(ctx, c.baseURL+"/stats", &resp); err != nil {
		return registry.StatsResponse{}, err
	}
	return registry.StatsResponse{Count: resp.Count, Bytes: resp.Bytes, ReadOnly: resp.ReadOnly}, nil
}

// Configure implements registry.RPCStub.
func (c *Client) Configure(ctx context.Context, partial cluster.ShardConfig) error {
	return postJSON(ctx, c.baseURL+"/configure", partial, nil)
}

// HTTPRegistry resolves replica descriptors and cold-shard addresses to
// Clients using a static address book supplied at construction. It is the
// production counterpart to registry.InMemoryRegistry.
type HTTPRegistry struct {
	byKey map[string]string
	cold  map[string]string
}

// NewHTTPRegistry builds an HTTPRegistry. byKey maps a
// cluster.ReplicaDescriptor.Key() to a peer's base URL; cold maps a
// "<prefix>-<index>" cold-shard address to its base URL.
func NewHTTPRegistry(byKey map[string]string, cold map[string]string) *HTTPRegistry {
	if byKey == nil {
		byKey = make(map[string]string)
	}
	if cold == nil {
		cold = make(map[string]string)
	}
	return &HTTPRegistry{byKey: byKey, cold: cold}
}

var _ registry.Registry = (*HTTPRegistry)(nil)

// Resolve implements registry.Registry.
func (h *HTTPRegistry) Resolve(_ context.Context, d cluster.ReplicaDescriptor) (registry.RPCStub, error) {
	url, ok := h.byKey[d.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, d.Key())
	}
	return NewClient(url), nil
}

// ResolveCold implements registry.Registry.
func (h *HTTPRegistry) ResolveCold(_ context.Context, prefix string, index int) (registry.RPCStub, error) {
	key := fmt.Sprintf("%s-%d", prefix, index)
	url, ok := h.cold[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, key)
	}
	return NewClient(url), nil
}
