// Package shopify is a small Admin API client covering the GraphQL queries and REST
// endpoints the sync jobs need.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopsync/config"
	"shopsync/internal/httpx"
)

// PageSize is the maximum page size accepted by the Admin API.
const PageSize = 250

type Client struct {
	doer        *httpx.Doer
	storeURL    string
	accessToken string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.doer.Client = hc }
}

func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.doer.MaxRetries = maxRetries
		c.doer.RetryDelay = delay
	}
}

func NewClient(cfg config.ShopifyConfig, opts ...Option) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("shopify store url is empty")
	}
	c := &Client{
		doer:        &httpx.Doer{Client: &http.Client{Timeout: 60 * time.Second}},
		storeURL:    strings.TrimRight(cfg.StoreURL, "/"),
		accessToken: cfg.AccessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// query runs a GraphQL document and decodes its data field into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	resp, err := c.doer.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL+"/graphql.json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(resp.Body, &gqlResp); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return fmt.Errorf("graphql response has no data")
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return nil
}

// get fetches an absolute REST url.
func (c *Client) get(ctx context.Context, url string) (*httpx.Response, error) {
	return c.doer.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	})
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
}
