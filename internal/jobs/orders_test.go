package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsync/internal/pipeline"
	"shopsync/internal/shopify"
	"shopsync/models"
)

var syncNow = time.Date(2025, 5, 2, 9, 30, 15, 789000000, time.UTC)

func fixedClock() time.Time { return syncNow }

func at(hour int) time.Time {
	return time.Date(2025, 5, 2, hour, 0, 0, 0, time.UTC)
}

func shopifyOrder(id int64, updated time.Time, itemIDs ...int64) shopify.Order {
	o := shopify.Order{
		ID:         id,
		Name:       "#1001",
		Currency:   "USD",
		TotalPrice: 25,
		CreatedAt:  updated.Add(-time.Hour),
		UpdatedAt:  updated,
	}
	for _, itemID := range itemIDs {
		variantID := itemID * 10
		o.LineItems = append(o.LineItems, shopify.LineItem{
			ID:        itemID,
			Title:     "Coffee",
			SKU:       strPtr("CF-1"),
			VariantID: &variantID,
			Quantity:  1,
			Price:     12.5,
		})
	}
	return o
}

func TestOrderSyncWatermarkIsLatestUpdate(t *testing.T) {
	source := &fakeOrders{pages: map[string]*shopify.OrdersPage{
		"first": {
			Orders:  []shopify.Order{shopifyOrder(1, at(7), 11), shopifyOrder(2, at(8), 21, 22)},
			NextURL: "second",
		},
		// Out of chronological order across pages.
		"second": {
			Orders: []shopify.Order{shopifyOrder(3, at(6), 31)},
		},
	}}
	store := newMemStore()

	summary, err := NewOrderSync(source, store, fixedLowerBound(at(5)), WithClock(fixedClock)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, source.fetched)
	assert.Equal(t, at(5), source.since)
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 4, summary.LineItems)
	assert.Equal(t, at(8), summary.LatestUpdate)

	require.NotNil(t, store.lastUpdate)
	assert.Equal(t, at(8), *store.lastUpdate)
	assert.Len(t, store.orders, 3)
	assert.Len(t, store.lineItems, 4)
	assert.Equal(t, int64(2), store.lineItems[22].OrderID)
}

func TestOrderSyncUpperBoundTruncatedToSecond(t *testing.T) {
	source := &fakeOrders{pages: map[string]*shopify.OrdersPage{"first": {}}}

	summary, err := NewOrderSync(source, newMemStore(), fixedLowerBound(at(5)), WithClock(fixedClock)).Run(context.Background())
	require.NoError(t, err)

	want := time.Date(2025, 5, 2, 9, 30, 15, 0, time.UTC)
	assert.Equal(t, want, source.until)
	assert.Equal(t, want, summary.Until)
}

func TestOrderSyncNoOrdersLeavesWatermark(t *testing.T) {
	source := &fakeOrders{pages: map[string]*shopify.OrdersPage{"first": {}}}
	store := newMemStore()
	previous := at(3)
	store.lastUpdate = &previous

	summary, err := NewOrderSync(source, store, fixedLowerBound(previous), WithClock(fixedClock)).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Processed)
	assert.True(t, summary.LatestUpdate.IsZero())
	assert.Equal(t, previous, *store.lastUpdate)
}

func TestOrderSyncIsIdempotent(t *testing.T) {
	pages := map[string]*shopify.OrdersPage{
		"first": {Orders: []shopify.Order{shopifyOrder(1, at(7), 11, 12), shopifyOrder(2, at(8), 21)}},
	}
	store := newMemStore()

	for i := 0; i < 2; i++ {
		_, err := NewOrderSync(&fakeOrders{pages: pages}, store, fixedLowerBound(at(5)), WithClock(fixedClock)).Run(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, store.orders, 2)
	assert.Len(t, store.lineItems, 3)
	assert.Equal(t, at(8), *store.lastUpdate)
}

func TestOrderSyncReplacesLineItems(t *testing.T) {
	store := newMemStore()
	first := &fakeOrders{pages: map[string]*shopify.OrdersPage{
		"first": {Orders: []shopify.Order{shopifyOrder(1, at(7), 11, 12)}},
	}}
	_, err := NewOrderSync(first, store, fixedLowerBound(at(5)), WithClock(fixedClock)).Run(context.Background())
	require.NoError(t, err)

	edited := shopifyOrder(1, at(9), 13)
	edited.TotalPrice = 12.5
	second := &fakeOrders{pages: map[string]*shopify.OrdersPage{
		"first": {Orders: []shopify.Order{edited}},
	}}
	_, err = NewOrderSync(second, store, fixedLowerBound(at(7)), WithClock(fixedClock)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12.5, store.orders[1].TotalPrice)
	assert.Len(t, store.lineItems, 1)
	assert.Contains(t, store.lineItems, int64(13))
	assert.Equal(t, at(9), *store.lastUpdate)
}

func TestOrderSyncFetchErrorKeepsCommittedPages(t *testing.T) {
	source := &fakeOrders{
		pages: map[string]*shopify.OrdersPage{
			"first": {Orders: []shopify.Order{shopifyOrder(1, at(7), 11)}, NextURL: "second"},
		},
		failOn: map[string]error{"second": errors.New("HTTP error! status: 500")},
	}
	store := newMemStore()

	_, err := NewOrderSync(source, store, fixedLowerBound(at(5)), WithClock(fixedClock)).Run(context.Background())
	require.Error(t, err)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "update-old-orders", stageErr.Stage)
	assert.Contains(t, err.Error(), "error fetching orders")

	assert.Contains(t, store.orders, int64(1))
	assert.Nil(t, store.lastUpdate)
}

func TestOrderSyncStoreErrorFails(t *testing.T) {
	source := &fakeOrders{pages: map[string]*shopify.OrdersPage{
		"first": {Orders: []shopify.Order{shopifyOrder(1, at(7), 11)}},
	}}
	store := newMemStore()
	store.failUpsertOrders = errors.New("deadlock detected")

	_, err := NewOrderSync(source, store, fixedLowerBound(at(5)), WithClock(fixedClock)).Run(context.Background())
	assert.ErrorContains(t, err, "deadlock detected")
	assert.Nil(t, store.lastUpdate)
}

func TestOrderSyncNewOrdersStageFailure(t *testing.T) {
	source := &fakeOrders{}

	_, err := NewOrderSync(source, newMemStore(), failingLowerBound{err: errors.New("boom")}).Run(context.Background())

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "create-new-orders", stageErr.Stage)
	assert.Empty(t, source.fetched)
}

func TestOrderSyncEmitsToSinks(t *testing.T) {
	source := &fakeOrders{pages: map[string]*shopify.OrdersPage{
		"first": {Orders: []shopify.Order{shopifyOrder(1, at(7), 11), shopifyOrder(2, at(8))}},
	}}
	events := &recordingPublisher{err: errors.New("channel closed")}
	facts := &recordingFacts{}

	_, err := NewOrderSync(source, newMemStore(), fixedLowerBound(at(5)),
		WithClock(fixedClock), WithEventPublisher(events), WithFactRecorder(facts), WithRunID("run-1"),
	).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, events.events, 2)
	assert.Equal(t, "upserted", events.events[0].Event)
	assert.Equal(t, "run-1", events.events[0].RunID)
	assert.Equal(t, 1, events.events[0].LineItemCount)

	require.Len(t, facts.facts, 2)
	assert.False(t, facts.facts[0].GiftCardOnly)
	assert.True(t, facts.facts[1].GiftCardOnly)
}

func TestStoredWatermark(t *testing.T) {
	store := newMemStore()
	w := StoredWatermark{Store: store, Lookback: 24 * time.Hour, Now: fixedClock}

	since, err := w.CreateNewOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syncNow.Add(-24*time.Hour), since)

	require.NoError(t, store.SaveLastOrderUpdate(context.Background(), at(4)))
	since, err = w.CreateNewOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at(4), since)
}

func TestOrderRow(t *testing.T) {
	o := shopifyOrder(42, at(7), 1)
	o.Company = json.RawMessage(`{"id":5,"location_id":6}`)
	o.TotalPriceSet = json.RawMessage(`{"shop_money":{"amount":"25.00"}}`)
	o.NoteAttributes = json.RawMessage(`null`)
	o.Customer = &shopify.Customer{ID: 77}
	o.ShippingAddress = &shopify.Address{City: strPtr("Lyon"), Zip: strPtr("")}
	o.LineItems[0].GiftCard = true
	o.LineItems[0].Vendor = strPtr("")

	row := orderRow(o)

	assert.Equal(t, int64(42), row.ID)
	require.NotNil(t, row.Company)
	assert.JSONEq(t, `{"id":5,"location_id":6}`, *row.Company)
	assert.JSONEq(t, `{"shop_money":{"amount":"25.00"}}`, string(row.TotalPriceSet))
	assert.Nil(t, row.NoteAttributes)
	require.NotNil(t, row.CustomerID)
	assert.Equal(t, int64(77), *row.CustomerID)
	require.NotNil(t, row.ShippingCity)
	assert.Equal(t, "Lyon", *row.ShippingCity)
	assert.Nil(t, row.ShippingZip)
	assert.True(t, row.GiftCardOnly)

	require.Len(t, row.LineItems, 1)
	assert.Equal(t, int64(42), row.LineItems[0].OrderID)
	assert.Nil(t, row.LineItems[0].Vendor)
	assert.Equal(t, 12.5, row.LineItems[0].Price)
}

func TestGiftCardOnlyEmptyOrder(t *testing.T) {
	row := orderRow(shopifyOrder(1, at(7)))
	assert.True(t, row.GiftCardOnly)
	assert.Empty(t, row.LineItems)
	assert.Equal(t, models.GiftCardOnly(nil), row.GiftCardOnly)
}
