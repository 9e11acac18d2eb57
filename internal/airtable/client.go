package airtable

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

// Record is one Airtable row. Field values are loosely typed; linked
// and multi-select fields come back as arrays.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type recordList struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// Client is the Airtable API client, scoped to one base.
type Client struct {
	baseURL    string
	apiKey     string
	baseID     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Airtable API client.
func NewClient(cfg config.AirtableConfig) *Client {
	return &Client{
		baseURL:    "https://api.airtable.com/v0",
		apiKey:     cfg.APIKey,
		baseID:     cfg.BaseID,
		httpClient: httpretry.NewClient(&http.Client{Timeout: cfg.Timeout()}, httpretry.Airtable),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetBaseURL overrides the API host (useful for testing).
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// ListRecords pages through every record in a table.
func (c *Client) ListRecords(ctx context.Context, table string) ([]Record, error) {
	var all []Record
	offset := ""

	for {
		params := url.Values{}
		if offset != "" {
			params.Set("offset", offset)
		}

		endpoint := c.baseURL + "/" + c.baseID + "/" + url.PathEscape(table)
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}

		var page recordList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse records page: %w", err)
		}
		all = append(all, page.Records...)

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	return all, nil
}

// FieldString reads a text field, unwrapping single-element arrays the
// way linked records come back.
func (r Record) FieldString(name string) string {
	switch v := r.Fields[name].(type) {
	case string:
		return v
	case []any:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// FieldStrings reads a multi-value field.
func (r Record) FieldStrings(name string) []string {
	switch v := r.Fields[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
