package fathom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/pkg/httpretry"
)

// Client is the Fathom external API client. Fathom authenticates with
// an X-Api-Key header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Fathom API client.
func NewClient(cfg config.FathomConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpretry.NewClient(&http.Client{Timeout: cfg.Timeout()}, httpretry.Fathom),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// ListMeetings pages through every recording created after the cutoff.
func (c *Client) ListMeetings(ctx context.Context, createdAfter time.Time) ([]Meeting, error) {
	params := url.Values{}
	params.Set("limit", "50")
	params.Set("created_after", createdAfter.UTC().Format("2006-01-02T15:04:05Z"))

	var all []Meeting
	for {
		body, err := c.doRequest(ctx, "/meetings", params)
		if err != nil {
			return nil, fmt.Errorf("list meetings: %w", err)
		}

		var page meetingList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse meetings page: %w", err)
		}
		all = append(all, page.Items...)

		if page.NextCursor == "" {
			break
		}
		params.Set("cursor", page.NextCursor)
	}
	return all, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
