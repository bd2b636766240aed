// Package client wraps REST access to the gateway admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the admin listener of a running gateway daemon.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a client with the provided base URL (e.g. http://127.0.0.1:8091).
func New(rawURL string) (*Client, error) {
	if rawURL == "" {
		rawURL = "http://127.0.0.1:8091"
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse url: %w", err)
	}
	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Route is the API representation of one configured route.
type Route struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Legend  string `json:"legend"`
	SubPath string `json:"subPath,omitempty"`
	RouteTo string `json:"routeTo"`
	Legacy  string `json:"legacy,omitempty"`
	New     string `json:"new,omitempty"`
	FromCds bool   `json:"fromCds"`
}

// Message is the API representation of one dead-lettered message.
type Message struct {
	ID         string    `json:"id"`
	Queue      string    `json:"queue"`
	ResourceID string    `json:"resourceId,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func (c *Client) ListRoutes(ctx context.Context) ([]Route, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/routes", nil)
	if err != nil {
		return nil, err
	}
	var routes []Route
	if err := c.do(req, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

func (c *Client) ListDead(ctx context.Context, queue string) ([]Message, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/queues/"+url.PathEscape(queue)+"/dead", nil)
	if err != nil {
		return nil, err
	}
	var messages []Message
	if err := c.do(req, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Redrive returns every dead-lettered message on the queue to ready and
// reports how many moved.
func (c *Client) Redrive(ctx context.Context, queue string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/queues/"+url.PathEscape(queue)+"/redrive", nil)
	if err != nil {
		return 0, err
	}
	var result map[string]int
	if err := c.do(req, &result); err != nil {
		return 0, err
	}
	return result["redriven"], nil
}

// Drain deletes every dead-lettered message on the queue and reports how
// many were removed.
func (c *Client) Drain(ctx context.Context, queue string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/queues/"+url.PathEscape(queue)+"/dead", nil)
	if err != nil {
		return 0, err
	}
	var result map[string]int
	if err := c.do(req, &result); err != nil {
		return 0, err
	}
	return result["drained"], nil
}

// Remove deletes a single message by id.
func (c *Client) Remove(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	resolved := c.baseURL.ResolveReference(&url.URL{Path: path})
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("client: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("client: http %d", resp.StatusCode)
		}
		if msg, ok := apiErr["error"].(string); ok {
			return fmt.Errorf("client: http %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("client: http %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
