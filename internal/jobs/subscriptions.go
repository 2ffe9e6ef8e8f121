package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"shopsync/internal/postgres"
	"shopsync/internal/recharge"
	"shopsync/internal/shopify"
	"shopsync/models"
	"shopsync/pkg/logger"
)

type BillingSource interface {
	ListOrders(ctx context.Context, page, limit int) ([]recharge.Order, error)
	GetSubscription(ctx context.Context, id int64) (*recharge.Subscription, error)
}

type SellingPlanSource interface {
	FetchSellingPlans(ctx context.Context, orderID int64) ([]shopify.LineItemSellingPlan, error)
}

type SubscriptionStore interface {
	FindLineItem(ctx context.Context, m postgres.LineItemMatch) (*models.LineItem, error)
	UpsertLineItemSubscription(ctx context.Context, sub *models.LineItemSubscription) error
	AppendRechargeWatermark(ctx context.Context, lastOrderID int64) error
	LatestRechargeWatermark(ctx context.Context) (int64, bool, error)
}

type SubscriptionSummary struct {
	Pages     int
	Orders    int
	Upserted  int
	Unmatched int
	// Watermark is the order id appended this run, 0 when no orders were seen.
	Watermark int64
}

type SubscriptionSyncOptions struct {
	// StopAtWatermark ends paging at the first order not newer than the latest stored watermark.
	StopAtWatermark bool
}

// SubscriptionSync links billing subscriptions to locally stored order line items.
type SubscriptionSync struct {
	billing BillingSource
	plans   SellingPlanSource
	store   SubscriptionStore
	opts    SubscriptionSyncOptions
}

func NewSubscriptionSync(billing BillingSource, plans SellingPlanSource, store SubscriptionStore, opts SubscriptionSyncOptions) *SubscriptionSync {
	return &SubscriptionSync{billing: billing, plans: plans, store: store, opts: opts}
}

// Run pages through billing orders newest first and upserts one subscription row per
// matched line item. Any error other than an unmatched line item ends the run.
func (s *SubscriptionSync) Run(ctx context.Context) (SubscriptionSummary, error) {
	var summary SubscriptionSummary

	var stopAt int64
	if s.opts.StopAtWatermark {
		id, ok, err := s.store.LatestRechargeWatermark(ctx)
		if err != nil {
			return summary, err
		}
		if ok {
			stopAt = id
			log.Printf("Stopping at stored Recharge order id %d", stopAt)
		}
	}

	// Selling plans are looked up once per order.
	plans := make(map[int64][]shopify.LineItemSellingPlan)
	var highest int64

	for page := 1; ; page++ {
		orders, err := s.billing.ListOrders(ctx, page, recharge.PageSize)
		if err != nil {
			return summary, err
		}
		if len(orders) == 0 {
			break
		}
		summary.Pages++

		if highest == 0 {
			for _, o := range orders {
				highest = max(highest, o.ID)
			}
		}

		reachedWatermark := false
		for _, o := range orders {
			if stopAt > 0 && o.ID <= stopAt {
				reachedWatermark = true
				break
			}
			summary.Orders++
			if err := s.syncOrder(ctx, o, plans, &summary); err != nil {
				return summary, err
			}
		}

		if reachedWatermark || len(orders) < recharge.PageSize {
			break
		}
	}

	if highest > 0 {
		if err := s.store.AppendRechargeWatermark(ctx, highest); err != nil {
			return summary, err
		}
		summary.Watermark = highest
		logger.Info("🔄 Updated last processed Recharge Order ID to %d", highest)
	}

	logger.Info("✅ All orders processed.")
	return summary, nil
}

func (s *SubscriptionSync) syncOrder(ctx context.Context, order recharge.Order, plans map[int64][]shopify.LineItemSellingPlan, summary *SubscriptionSummary) error {
	for _, item := range order.LineItems {
		if !item.IsSubscription() {
			continue
		}

		shopifyOrderID, err := order.ExternalOrderID.Int()
		if err != nil {
			return fmt.Errorf("recharge order %d: %w", order.ID, err)
		}

		sub, err := s.billing.GetSubscription(ctx, item.PurchaseItemID)
		if err != nil {
			return err
		}
		if sub == nil {
			continue
		}

		variantID, err := sub.ExternalVariantID.Int()
		if err != nil {
			return fmt.Errorf("subscription %d variant: %w", sub.ID, err)
		}

		lineItem, err := s.store.FindLineItem(ctx, postgres.LineItemMatch{
			OrderID:   shopifyOrderID,
			Title:     item.Title,
			SKU:       item.SKU,
			VariantID: variantID,
		})
		if errors.Is(err, postgres.ErrNotFound) {
			logger.Warn("⚠️ Could not match line item for Shopify Order ID %d", shopifyOrderID)
			summary.Unmatched++
			continue
		}
		if err != nil {
			return err
		}

		plan, err := s.sellingPlan(ctx, shopifyOrderID, lineItem.ID, plans)
		if err != nil {
			return err
		}

		row := subscriptionRow(lineItem.ID, sub, plan)
		if err := s.store.UpsertLineItemSubscription(ctx, row); err != nil {
			return err
		}
		summary.Upserted++
		logger.Info("✅ Updated subscription for line_item_id %d", lineItem.ID)
	}
	return nil
}

// sellingPlan returns the plan on the order's line item, or nil if it has none.
func (s *SubscriptionSync) sellingPlan(ctx context.Context, orderID, lineItemID int64, cache map[int64][]shopify.LineItemSellingPlan) (*shopify.SellingPlan, error) {
	items, ok := cache[orderID]
	if !ok {
		var err error
		items, err = s.plans.FetchSellingPlans(ctx, orderID)
		if err != nil {
			return nil, err
		}
		cache[orderID] = items
	}

	for _, item := range items {
		if item.ID.ID == lineItemID {
			return item.SellingPlan, nil
		}
	}
	return nil, nil
}

func subscriptionRow(lineItemID int64, sub *recharge.Subscription, plan *shopify.SellingPlan) *models.LineItemSubscription {
	row := &models.LineItemSubscription{
		LineItemID:             lineItemID,
		IsSubscription:         true,
		SubscriptionContractID: strconv.FormatInt(sub.ID, 10),
		ContractStatus:         sub.Status,
		NextBillingDate:        sub.NextChargeScheduledAt.TimePtr(),
		BillingInterval:        sub.OrderIntervalUnit,
		BillingIntervalCount:   sub.OrderIntervalFrequency.Ptr(),
		DeliveryInterval:       sub.ChargeIntervalUnit,
		DeliveryIntervalCount:  sub.ChargeIntervalFrequency.Ptr(),
		CreatedAt:              sub.CreatedAt.TimePtr(),
		UpdatedAt:              sub.UpdatedAt.TimePtr(),
	}
	if plan != nil {
		row.SellingPlanID = plan.SellingPlanID
		row.SellingPlanName = plan.Name
	}
	return row
}
