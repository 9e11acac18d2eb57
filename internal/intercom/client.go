package intercom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/pkg/httpretry"
)

// Client is the Intercom API client.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  httpretry.HTTPDoer
}

// NewClient creates a new Intercom API client.
func NewClient(cfg config.IntercomConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  httpretry.NewClient(&http.Client{Timeout: cfg.Timeout()}, httpretry.Intercom),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// ListContacts pages through every contact in the workspace.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var all []Contact
	cursor := ""

	for {
		endpoint := "/contacts?per_page=150"
		if cursor != "" {
			endpoint += "&starting_after=" + url.QueryEscape(cursor)
		}

		body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("list contacts: %w", err)
		}

		var page contactList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse contacts page: %w", err)
		}
		all = append(all, page.Data...)

		if page.Pages.Next == nil || page.Pages.Next.StartingAfter == "" {
			break
		}
		cursor = page.Pages.Next.StartingAfter
	}

	return all, nil
}

// ContactConversations returns every conversation attached to a contact.
func (c *Client) ContactConversations(ctx context.Context, contactID string) ([]Conversation, error) {
	query := map[string]any{
		"query": map[string]any{
			"field":    "contact_ids",
			"operator": "=",
			"value":    contactID,
		},
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/conversations/search", query)
	if err != nil {
		return nil, fmt.Errorf("search conversations for %s: %w", contactID, err)
	}

	var resp conversationSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse conversation search: %w", err)
	}
	return resp.Conversations, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
