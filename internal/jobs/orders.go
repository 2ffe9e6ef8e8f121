package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"shopsync/internal/pipeline"
	"shopsync/internal/shopify"
	"shopsync/models"
	"shopsync/pkg/logger"
)

type OrderSource interface {
	OrdersUpdatedURL(since, until time.Time, limit int) string
	FetchOrdersPage(ctx context.Context, pageURL string) (*shopify.OrdersPage, error)
}

type OrderStore interface {
	UpsertOrders(ctx context.Context, orders []models.Order) error
	SaveLastOrderUpdate(ctx context.Context, t time.Time) error
}

// NewOrdersStage runs ahead of the update pass and returns the lower bound for it.
type NewOrdersStage interface {
	CreateNewOrders(ctx context.Context) (time.Time, error)
}

type OrderEventPublisher interface {
	PublishOrderSynced(ctx context.Context, evt models.OrderSyncedEvent) error
}

type OrderFactRecorder interface {
	InsertOrderFacts(ctx context.Context, facts []models.OrderFact) error
}

type WatermarkReader interface {
	LastOrderUpdate(ctx context.Context) (time.Time, bool, error)
}

// StoredWatermark is the default new-orders stage: it reads the last stored
// order-update time, falling back to Lookback before now.
type StoredWatermark struct {
	Store    WatermarkReader
	Lookback time.Duration
	Now      func() time.Time
}

func (w StoredWatermark) CreateNewOrders(ctx context.Context) (time.Time, error) {
	last, ok, err := w.Store.LastOrderUpdate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return last, nil
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return now().Add(-w.Lookback), nil
}

type OrderSummary struct {
	Since     time.Time
	Until     time.Time
	Pages     int
	Processed int
	LineItems int
	// LatestUpdate is the new watermark; zero when no orders were processed.
	LatestUpdate time.Time
}

type OrderSyncOption func(*OrderSync)

func WithEventPublisher(p OrderEventPublisher) OrderSyncOption {
	return func(s *OrderSync) { s.events = p }
}

func WithFactRecorder(r OrderFactRecorder) OrderSyncOption {
	return func(s *OrderSync) { s.facts = r }
}

func WithClock(now func() time.Time) OrderSyncOption {
	return func(s *OrderSync) { s.now = now }
}

func WithRunID(id string) OrderSyncOption {
	return func(s *OrderSync) { s.runID = id }
}

// OrderSync mirrors every order updated since the last watermark.
type OrderSync struct {
	source    OrderSource
	store     OrderStore
	newOrders NewOrdersStage
	events    OrderEventPublisher
	facts     OrderFactRecorder
	now       func() time.Time
	runID     string
}

func NewOrderSync(source OrderSource, store OrderStore, newOrders NewOrdersStage, opts ...OrderSyncOption) *OrderSync {
	s := &OrderSync{source: source, store: store, newOrders: newOrders, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes create-new-orders then update-old-orders.
func (s *OrderSync) Run(ctx context.Context) (OrderSummary, error) {
	createNew := pipeline.Stage[struct{}, time.Time]{
		Name: "create-new-orders",
		Run: func(ctx context.Context, _ struct{}) (time.Time, error) {
			return s.newOrders.CreateNewOrders(ctx)
		},
	}
	updateOld := pipeline.Stage[time.Time, OrderSummary]{
		Name: "update-old-orders",
		Run:  s.updateOldOrders,
	}
	return pipeline.Then(createNew, updateOld).Execute(ctx, struct{}{})
}

func (s *OrderSync) updateOldOrders(ctx context.Context, since time.Time) (OrderSummary, error) {
	summary := OrderSummary{
		Since: since,
		Until: s.now().UTC().Truncate(time.Second),
	}
	log.Printf("Orders updated. Last update time: %s", since.Format(time.RFC3339))

	nextURL := s.source.OrdersUpdatedURL(summary.Since, summary.Until, shopify.PageSize)
	for nextURL != "" {
		page, err := s.source.FetchOrdersPage(ctx, nextURL)
		if err != nil {
			return summary, fmt.Errorf("error fetching orders: %w", err)
		}
		summary.Pages++

		rows := make([]models.Order, 0, len(page.Orders))
		for _, o := range page.Orders {
			rows = append(rows, orderRow(o))
			if o.UpdatedAt.After(summary.LatestUpdate) {
				summary.LatestUpdate = o.UpdatedAt
			}
		}

		if len(rows) > 0 {
			if err := s.store.UpsertOrders(ctx, rows); err != nil {
				return summary, err
			}
			s.emit(ctx, rows)
		}

		summary.Processed += len(rows)
		for _, r := range rows {
			summary.LineItems += len(r.LineItems)
		}
		log.Printf("Processed orders: %d", len(rows))
		log.Printf("Total orders processed so far: %d", summary.Processed)

		nextURL = page.NextURL
	}

	if summary.Processed == 0 {
		log.Println("No updated orders found")
		summary.LatestUpdate = time.Time{}
		return summary, nil
	}

	if err := s.store.SaveLastOrderUpdate(ctx, summary.LatestUpdate); err != nil {
		return summary, err
	}
	log.Printf("✓ Processed %d orders; last_order_update set to %s", summary.Processed, summary.LatestUpdate.UTC().Format(time.RFC3339))
	return summary, nil
}

// emit hands committed orders to the optional sinks. Sink failures are only logged.
func (s *OrderSync) emit(ctx context.Context, rows []models.Order) {
	if s.events != nil {
		for _, r := range rows {
			evt := models.OrderSyncedEvent{
				Event:         "upserted",
				RunID:         s.runID,
				OrderID:       r.ID,
				LineItemCount: len(r.LineItems),
				UpdatedAt:     r.UpdatedAt,
			}
			if err := s.events.PublishOrderSynced(ctx, evt); err != nil {
				logger.Warn("✗ Failed to publish event for order %d: %v", r.ID, err)
			}
		}
	}

	if s.facts != nil {
		facts := make([]models.OrderFact, 0, len(rows))
		for _, r := range rows {
			facts = append(facts, models.OrderFact{
				OrderID:       r.ID,
				RunID:         s.runID,
				Currency:      r.Currency,
				TotalPrice:    r.TotalPrice,
				TotalTax:      r.TotalTax,
				TotalDiscount: r.TotalDiscounts,
				LineItemCount: len(r.LineItems),
				GiftCardOnly:  r.GiftCardOnly,
				CreatedAt:     r.CreatedAt,
				UpdatedAt:     r.UpdatedAt,
			})
		}
		if err := s.facts.InsertOrderFacts(ctx, facts); err != nil {
			logger.Warn("✗ Failed to record %d order facts: %v", len(facts), err)
		}
	}
}
