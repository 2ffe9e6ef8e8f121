package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Money decodes REST price fields, which arrive as decimal strings.
type Money float64

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid money value %s: %w", data, err)
	}
	*m = Money(f)
	return nil
}

type Order struct {
	ID                            int64           `json:"id"`
	CancelReason                  *string         `json:"cancel_reason"`
	CancelledAt                   *time.Time      `json:"cancelled_at"`
	ClosedAt                      *time.Time      `json:"closed_at"`
	Company                       json.RawMessage `json:"company"`
	ConfirmationNumber            *string         `json:"confirmation_number"`
	Confirmed                     bool            `json:"confirmed"`
	CreatedAt                     time.Time       `json:"created_at"`
	Currency                      string          `json:"currency"`
	CurrentSubtotalPrice          Money           `json:"current_subtotal_price"`
	CurrentSubtotalPriceSet       json.RawMessage `json:"current_subtotal_price_set"`
	CurrentTotalAdditionalFeesSet json.RawMessage `json:"current_total_additional_fees_set"`
	CurrentTotalDiscounts         Money           `json:"current_total_discounts"`
	CurrentTotalDiscountsSet      json.RawMessage `json:"current_total_discounts_set"`
	CurrentTotalDutiesSet         json.RawMessage `json:"current_total_duties_set"`
	CurrentTotalPrice             Money           `json:"current_total_price"`
	CurrentTotalPriceSet          json.RawMessage `json:"current_total_price_set"`
	CurrentTotalTax               Money           `json:"current_total_tax"`
	CurrentTotalTaxSet            json.RawMessage `json:"current_total_tax_set"`
	FulfillmentStatus             *string         `json:"fulfillment_status"`
	Name                          string          `json:"name"`
	Note                          *string         `json:"note"`
	NoteAttributes                json.RawMessage `json:"note_attributes"`
	OrderNumber                   int64           `json:"order_number"`
	OrderStatusURL                string          `json:"order_status_url"`
	PresentmentCurrency           string          `json:"presentment_currency"`
	ProcessedAt                   *time.Time      `json:"processed_at"`
	Reference                     *string         `json:"reference"`
	SubtotalPrice                 Money           `json:"subtotal_price"`
	Tags                          string          `json:"tags"`
	TotalDiscounts                Money           `json:"total_discounts"`
	TotalLineItemsPrice           Money           `json:"total_line_items_price"`
	TotalOutstanding              Money           `json:"total_outstanding"`
	TotalPrice                    Money           `json:"total_price"`
	TotalPriceSet                 json.RawMessage `json:"total_price_set"`
	TotalShippingPriceSet         json.RawMessage `json:"total_shipping_price_set"`
	TotalTax                      Money           `json:"total_tax"`
	TotalTipReceived              Money           `json:"total_tip_received"`
	TotalWeight                   int64           `json:"total_weight"`
	UpdatedAt                     time.Time       `json:"updated_at"`
	Customer                      *Customer       `json:"customer"`
	SourceName                    *string         `json:"source_name"`
	SourceIdentifier              *string         `json:"source_identifier"`
	SourceURL                     *string         `json:"source_url"`
	LocationID                    *int64          `json:"location_id"`
	ShippingAddress               *Address        `json:"shipping_address"`
	LineItems                     []LineItem      `json:"line_items"`
}

type Customer struct {
	ID int64 `json:"id"`
}

type Address struct {
	Address1     *string  `json:"address1"`
	Address2     *string  `json:"address2"`
	City         *string  `json:"city"`
	Zip          *string  `json:"zip"`
	Province     *string  `json:"province"`
	Country      *string  `json:"country"`
	Company      *string  `json:"company"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	CountryCode  *string  `json:"country_code"`
	ProvinceCode *string  `json:"province_code"`
}

type LineItem struct {
	ID                         int64           `json:"id"`
	SKU                        *string         `json:"sku"`
	Name                       string          `json:"name"`
	Grams                      int64           `json:"grams"`
	Price                      Money           `json:"price"`
	Title                      string          `json:"title"`
	Vendor                     *string         `json:"vendor"`
	Taxable                    bool            `json:"taxable"`
	Quantity                   int64           `json:"quantity"`
	GiftCard                   bool            `json:"gift_card"`
	PriceSet                   json.RawMessage `json:"price_set"`
	TaxLines                   json.RawMessage `json:"tax_lines"`
	ProductID                  *int64          `json:"product_id"`
	Properties                 json.RawMessage `json:"properties"`
	VariantID                  *int64          `json:"variant_id"`
	PreTaxPrice                Money           `json:"pre_tax_price"`
	VariantTitle               *string         `json:"variant_title"`
	ProductExists              bool            `json:"product_exists"`
	TotalDiscount              Money           `json:"total_discount"`
	CurrentQuantity            int64           `json:"current_quantity"`
	AttributedStaffs           json.RawMessage `json:"attributed_staffs"`
	PreTaxPriceSet             json.RawMessage `json:"pre_tax_price_set"`
	RequiresShipping           bool            `json:"requires_shipping"`
	FulfillmentStatus          *string         `json:"fulfillment_status"`
	TotalDiscountSet           json.RawMessage `json:"total_discount_set"`
	FulfillmentService         *string         `json:"fulfillment_service"`
	AdminGraphqlAPIID          *string         `json:"admin_graphql_api_id"`
	DiscountAllocations        json.RawMessage `json:"discount_allocations"`
	FulfillableQuantity        int64           `json:"fulfillable_quantity"`
	VariantInventoryManagement *string         `json:"variant_inventory_management"`
}

// CompanyText returns the company field as stored: objects are kept as JSON text,
// plain strings as themselves, null as nil.
func (o *Order) CompanyText() *string {
	raw := bytes.TrimSpace(o.Company)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	text := string(raw)
	return &text
}

type OrdersPage struct {
	Orders []Order
	// NextURL is empty on the last page.
	NextURL string
}

// OrdersUpdatedURL builds the first page url for orders updated within [since, until].
func (c *Client) OrdersUpdatedURL(since, until time.Time, limit int) string {
	q := url.Values{}
	q.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	q.Set("updated_at_max", until.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("status", "any")
	return c.storeURL + "/orders.json?" + q.Encode()
}

// FetchOrdersPage fetches one orders page and resolves the next page from the Link header.
func (c *Client) FetchOrdersPage(ctx context.Context, pageURL string) (*OrdersPage, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch orders page: %w", err)
	}

	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode orders page: %w", err)
	}
	return &OrdersPage{Orders: body.Orders, NextURL: NextLink(resp.Header.Get("Link"))}, nil
}

// NextLink extracts the rel="next" target from a Link header, or "" when absent.
func NextLink(header string) string {
	for _, link := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(link, ";")
		if !ok {
			continue
		}
		for _, param := range strings.Split(params, ";") {
			if strings.TrimSpace(param) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(target), "<>")
			}
		}
	}
	return ""
}
