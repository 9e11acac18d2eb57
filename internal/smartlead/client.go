package smartlead

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/pkg/httpretry"
)

// Client is the SmartLead API client. SmartLead authenticates with an
// api_key query parameter, not a header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new SmartLead API client.
func NewClient(cfg config.SmartleadConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpretry.NewClient(&http.Client{Timeout: cfg.Timeout()}, httpretry.SmartLead),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// ListCampaigns fetches every campaign in the account.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	body, err := c.doRequest(ctx, "/campaigns")
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	var campaigns []Campaign
	if err := json.Unmarshal(body, &campaigns); err != nil {
		return nil, fmt.Errorf("parse campaigns: %w", err)
	}
	return campaigns, nil
}

// CampaignAnalytics fetches the counter block for one campaign.
func (c *Client) CampaignAnalytics(ctx context.Context, campaignID string) (Analytics, error) {
	body, err := c.doRequest(ctx, "/campaigns/"+url.PathEscape(campaignID)+"/analytics")
	if err != nil {
		return Analytics{}, fmt.Errorf("campaign analytics %s: %w", campaignID, err)
	}

	var a Analytics
	if err := json.Unmarshal(body, &a); err != nil {
		return Analytics{}, fmt.Errorf("parse analytics: %w", err)
	}
	return a, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	u := c.baseURL + endpoint + "?api_key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
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
