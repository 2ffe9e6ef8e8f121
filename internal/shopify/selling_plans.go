package shopify

import (
	"context"
	"fmt"

	"shopsync/internal/gid"
)

// SellingPlan is the subscription offer attached to an order line item.
type SellingPlan struct {
	SellingPlanID *string `json:"sellingPlanId"`
	Name          *string `json:"name"`
}

type LineItemSellingPlan struct {
	ID          gid.GID      `json:"id"`
	SellingPlan *SellingPlan `json:"sellingPlan"`
}

// FetchSellingPlans lists the first 100 line items of an order with their selling plans.
// A missing order yields an empty list.
func (c *Client) FetchSellingPlans(ctx context.Context, orderID int64) ([]LineItemSellingPlan, error) {
	var data struct {
		Order *struct {
			LineItems struct {
				Nodes []LineItemSellingPlan `json:"nodes"`
			} `json:"lineItems"`
		} `json:"order"`
	}
	id := gid.New(gid.Order, orderID)
	if err := c.query(ctx, sellingPlanQuery, map[string]any{"id": id.String()}, &data); err != nil {
		return nil, fmt.Errorf("fetch selling plans of %s: %w", id, err)
	}
	if data.Order == nil {
		return nil, nil
	}
	return data.Order.LineItems.Nodes, nil
}
