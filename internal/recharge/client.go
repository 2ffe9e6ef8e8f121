// Package recharge reads orders and subscriptions from the Recharge billing API.
package recharge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shopsync/config"
	"shopsync/internal/httpx"
)

// PageSize is the largest page the orders endpoint returns.
const PageSize = 250

type Client struct {
	doer       *httpx.Doer
	limiter    *rate.Limiter
	baseURL    string
	token      string
	apiVersion string
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

func NewClient(cfg config.RechargeConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("recharge base url is empty")
	}
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}
	c := &Client{
		doer:       &httpx.Doer{Client: &http.Client{Timeout: 60 * time.Second}},
		limiter:    rate.NewLimiter(limit, burst),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		apiVersion: cfg.APIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ExternalID carries the ids Recharge mirrors from the ecommerce platform.
type ExternalID struct {
	Ecommerce string `json:"ecommerce"`
}

// Int parses the ecommerce id. Missing ids are an error.
func (e ExternalID) Int() (int64, error) {
	if e.Ecommerce == "" {
		return 0, fmt.Errorf("external id is empty")
	}
	id, err := strconv.ParseInt(e.Ecommerce, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid external id %q: %w", e.Ecommerce, err)
	}
	return id, nil
}

type Order struct {
	ID              int64           `json:"id"`
	ExternalOrderID ExternalID      `json:"external_order_id"`
	LineItems       []OrderLineItem `json:"line_items"`
}

type OrderLineItem struct {
	PurchaseItemID    int64      `json:"purchase_item_id"`
	PurchaseItemType  string     `json:"purchase_item_type"`
	Title             string     `json:"title"`
	SKU               *string    `json:"sku"`
	ExternalVariantID ExternalID `json:"external_variant_id"`
}

// IsSubscription reports whether the line item was bought as a subscription.
func (li OrderLineItem) IsSubscription() bool {
	return li.PurchaseItemType == "subscription"
}

type Subscription struct {
	ID                      int64      `json:"id"`
	Status                  string     `json:"status"`
	NextChargeScheduledAt   *Timestamp `json:"next_charge_scheduled_at"`
	OrderIntervalUnit       string     `json:"order_interval_unit"`
	OrderIntervalFrequency  FlexInt    `json:"order_interval_frequency"`
	ChargeIntervalUnit      string     `json:"charge_interval_unit"`
	ChargeIntervalFrequency FlexInt    `json:"charge_interval_frequency"`
	ExternalVariantID       ExternalID `json:"external_variant_id"`
	CreatedAt               *Timestamp `json:"created_at"`
	UpdatedAt               *Timestamp `json:"updated_at"`
}

// ListOrders returns one page of orders sorted by descending id. Pages start at 1.
func (c *Client) ListOrders(ctx context.Context, page, limit int) ([]Order, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	q.Set("sort_by", "id-desc")

	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := c.get(ctx, "/orders?"+q.Encode(), &body); err != nil {
		return nil, fmt.Errorf("list orders page %d: %w", page, err)
	}
	return body.Orders, nil
}

// GetSubscription returns nil, nil when the API answers without a subscription body.
func (c *Client) GetSubscription(ctx context.Context, id int64) (*Subscription, error) {
	var body struct {
		Subscription *Subscription `json:"subscription"`
	}
	if err := c.get(ctx, "/subscriptions/"+strconv.FormatInt(id, 10), &body); err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return body.Subscription, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.doer.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Recharge-Version", c.apiVersion)
		req.Header.Set("X-Recharge-Access-Token", c.token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
