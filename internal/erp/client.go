// Package erp is the boundary to the host application's read-only
// resource API. The assistant tools only ever query through it.
package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client lists and counts host documents. The two calls mirror the
// host's resource listing and count endpoints and are all the tool
// layer needs.
type Client interface {
	GetList(ctx context.Context, doctype string, opts ListOptions) ([]map[string]interface{}, error)
	Count(ctx context.Context, doctype string, filters map[string]interface{}) (int, error)
}

type ListOptions struct {
	Fields    []string
	Filters   map[string]interface{}
	OrFilters map[string]interface{}
	OrderBy   string
	Limit     int
}

// HTTPClient talks to the ERP host over its REST API with token
// key:secret authentication.
type HTTPClient struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, apiKey, apiSecret string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		authHeader: fmt.Sprintf("token %s:%s", apiKey, apiSecret),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) GetList(ctx context.Context, doctype string, opts ListOptions) ([]map[string]interface{}, error) {
	params := url.Values{}
	if len(opts.Fields) > 0 {
		fields, err := json.Marshal(opts.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode fields: %w", err)
		}
		params.Set("fields", string(fields))
	}
	if len(opts.Filters) > 0 {
		filters, err := json.Marshal(opts.Filters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		params.Set("filters", string(filters))
	}
	if len(opts.OrFilters) > 0 {
		orFilters, err := json.Marshal(opts.OrFilters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode or_filters: %w", err)
		}
		params.Set("or_filters", string(orFilters))
	}
	if opts.OrderBy != "" {
		params.Set("order_by", opts.OrderBy)
	}
	if opts.Limit > 0 {
		params.Set("limit_page_length", strconv.Itoa(opts.Limit))
	}

	endpoint := fmt.Sprintf("%s/api/resource/%s?%s", c.baseURL, url.PathEscape(doctype), params.Encode())

	var payload struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *HTTPClient) Count(ctx context.Context, doctype string, filters map[string]interface{}) (int, error) {
	params := url.Values{}
	params.Set("doctype", doctype)
	if len(filters) > 0 {
		encoded, err := json.Marshal(filters)
		if err != nil {
			return 0, fmt.Errorf("failed to encode filters: %w", err)
		}
		params.Set("filters", string(encoded))
	}

	endpoint := fmt.Sprintf("%s/api/method/frappe.client.get_count?%s", c.baseURL, params.Encode())

	var payload struct {
		Message int `json:"message"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return 0, err
	}
	return payload.Message, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build ERP request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ERP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ERP request returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ERP response: %w", err)
	}
	return nil
}
