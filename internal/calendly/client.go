package calendly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/pkg/httpretry"
)

// Client is the Calendly API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer

	userCache map[string]User
}

// NewClient creates a new Calendly API client.
func NewClient(cfg config.CalendlyConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpretry.NewClient(&http.Client{Timeout: cfg.Timeout()}, httpretry.Calendly),
		userCache:  make(map[string]User),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// CurrentUser returns the authenticated user, whose organization URI
// scopes all event listings.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	body, err := c.doRequest(ctx, "/users/me", nil)
	if err != nil {
		return User{}, fmt.Errorf("current user: %w", err)
	}
	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return User{}, fmt.Errorf("parse current user: %w", err)
	}
	return resp.Resource, nil
}

// ListScheduledEvents pages through scheduled events in the window for
// the given status.
func (c *Client) ListScheduledEvents(ctx context.Context, orgURI, status string, minStart, maxStart time.Time) ([]Event, error) {
	params := url.Values{}
	params.Set("organization", orgURI)
	params.Set("count", "100")
	params.Set("sort", "start_time:desc")
	params.Set("status", status)
	params.Set("min_start_time", minStart.UTC().Format(time.RFC3339))
	params.Set("max_start_time", maxStart.UTC().Format(time.RFC3339))

	var all []Event
	for {
		body, err := c.doRequest(ctx, "/scheduled_events", params)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		var page eventList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse events page: %w", err)
		}
		all = append(all, page.Collection...)

		if page.Pagination.NextPageToken == "" {
			break
		}
		params.Set("page_token", page.Pagination.NextPageToken)
	}
	return all, nil
}

// EventInvitees returns every invitee on an event.
func (c *Client) EventInvitees(ctx context.Context, eventURI string) ([]Invitee, error) {
	uuid := lastSegment(eventURI)

	params := url.Values{}
	params.Set("count", "100")

	var all []Invitee
	for {
		body, err := c.doRequest(ctx, "/scheduled_events/"+uuid+"/invitees", params)
		if err != nil {
			return nil, fmt.Errorf("list invitees for %s: %w", uuid, err)
		}
		var page inviteeList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse invitees page: %w", err)
		}
		all = append(all, page.Collection...)

		if page.Pagination.NextPageToken == "" {
			break
		}
		params.Set("page_token", page.Pagination.NextPageToken)
	}
	return all, nil
}

// GetUser fetches a user (the event organizer) by URI, caching per
// client since organizers repeat across events.
func (c *Client) GetUser(ctx context.Context, userURI string) (User, error) {
	if u, ok := c.userCache[userURI]; ok {
		return u, nil
	}

	body, err := c.doRequest(ctx, "/users/"+lastSegment(userURI), nil)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return User{}, fmt.Errorf("parse user: %w", err)
	}
	c.userCache[userURI] = resp.Resource
	return resp.Resource, nil
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

func lastSegment(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
