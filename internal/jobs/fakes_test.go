package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"shopsync/internal/gid"
	"shopsync/internal/postgres"
	"shopsync/internal/recharge"
	"shopsync/internal/shopify"
	"shopsync/models"
)

// memStore is an in-memory stand-in for postgres.Store with the same key semantics:
// catalog inserts skip duplicates, everything else upserts by natural key.
type memStore struct {
	mu            sync.Mutex
	products      map[int64]models.Product
	variants      map[int64]models.Variant
	orders        map[int64]models.Order
	lineItems     map[int64]models.LineItem
	subscriptions map[int64]models.LineItemSubscription
	lastUpdate    *time.Time
	rechargeMarks []int64

	failCatalogInsert error
	failUpsertOrders  error
}

func newMemStore() *memStore {
	return &memStore{
		products:      map[int64]models.Product{},
		variants:      map[int64]models.Variant{},
		orders:        map[int64]models.Order{},
		lineItems:     map[int64]models.LineItem{},
		subscriptions: map[int64]models.LineItemSubscription{},
	}
}

func (m *memStore) ClearCatalog(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants = map[int64]models.Variant{}
	m.products = map[int64]models.Product{}
	return nil
}

func (m *memStore) InsertCatalogPage(_ context.Context, products []models.Product, variants []models.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCatalogInsert != nil {
		return m.failCatalogInsert
	}
	for _, p := range products {
		if _, ok := m.products[p.ID]; !ok {
			m.products[p.ID] = p
		}
	}
	for _, v := range variants {
		if _, ok := m.products[v.ProductID]; !ok {
			return fmt.Errorf("variant %d references missing product %d", v.ID, v.ProductID)
		}
		if _, ok := m.variants[v.ID]; !ok {
			m.variants[v.ID] = v
		}
	}
	return nil
}

func (m *memStore) UpsertOrders(_ context.Context, orders []models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsertOrders != nil {
		return m.failUpsertOrders
	}
	for _, o := range orders {
		items := o.LineItems
		o.LineItems = nil
		m.orders[o.ID] = o
		for id, li := range m.lineItems {
			if li.OrderID == o.ID {
				delete(m.lineItems, id)
			}
		}
		for _, li := range items {
			m.lineItems[li.ID] = li
		}
	}
	return nil
}

func (m *memStore) SaveLastOrderUpdate(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdate = &t
	return nil
}

func (m *memStore) LastOrderUpdate(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastUpdate == nil {
		return time.Time{}, false, nil
	}
	return *m.lastUpdate, true, nil
}

func (m *memStore) FindLineItem(_ context.Context, match postgres.LineItemMatch) (*models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.lineItems))
	for id := range m.lineItems {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		li := m.lineItems[id]
		if li.OrderID != match.OrderID || li.Title != match.Title {
			continue
		}
		if li.VariantID == nil || *li.VariantID != match.VariantID {
			continue
		}
		if match.SKU != nil && (li.SKU == nil || *li.SKU != *match.SKU) {
			continue
		}
		return &li, nil
	}
	return nil, postgres.ErrNotFound
}

func (m *memStore) UpsertLineItemSubscription(_ context.Context, sub *models.LineItemSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.LineItemID] = *sub
	return nil
}

func (m *memStore) AppendRechargeWatermark(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rechargeMarks = append(m.rechargeMarks, id)
	return nil
}

func (m *memStore) LatestRechargeWatermark(context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rechargeMarks) == 0 {
		return 0, false, nil
	}
	return m.rechargeMarks[len(m.rechargeMarks)-1], true, nil
}

func (m *memStore) variantCount(productID int64) int {
	n := 0
	for _, v := range m.variants {
		if v.ProductID == productID {
			n++
		}
	}
	return n
}

// fakeCatalog serves product pages keyed by cursor ("" is the first page) and
// variant pages keyed by "<productID>|<cursor>".
type fakeCatalog struct {
	productPages   map[string]*shopify.ProductConnection
	variantPages   map[string]*shopify.VariantConnection
	failOn         map[string]error
	productCursors []string
	variantCursors []string
}

func cursorKey(after *string) string {
	if after == nil {
		return ""
	}
	return *after
}

func (f *fakeCatalog) FetchProducts(_ context.Context, first int, after *string) (*shopify.ProductConnection, error) {
	key := cursorKey(after)
	f.productCursors = append(f.productCursors, key)
	if err := f.failOn[key]; err != nil {
		return nil, err
	}
	page, ok := f.productPages[key]
	if !ok {
		return nil, fmt.Errorf("unexpected product cursor %q", key)
	}
	if len(page.Nodes) > first {
		return nil, fmt.Errorf("page larger than %d", first)
	}
	return clonePage(page), nil
}

func (f *fakeCatalog) FetchVariants(_ context.Context, productID gid.GID, first int, after *string) (*shopify.VariantConnection, error) {
	key := fmt.Sprintf("%d|%s", productID.ID, cursorKey(after))
	f.variantCursors = append(f.variantCursors, key)
	if err := f.failOn[key]; err != nil {
		return nil, err
	}
	page, ok := f.variantPages[key]
	if !ok {
		return nil, fmt.Errorf("unexpected variant cursor %q", key)
	}
	if len(page.Nodes) > first {
		return nil, fmt.Errorf("page larger than %d", first)
	}
	return page, nil
}

// clonePage copies nodes so the job's in-place variant merge does not leak between runs.
func clonePage(page *shopify.ProductConnection) *shopify.ProductConnection {
	out := &shopify.ProductConnection{PageInfo: page.PageInfo, Nodes: make([]shopify.Product, len(page.Nodes))}
	for i, p := range page.Nodes {
		p.Variants.Nodes = append([]shopify.Variant(nil), p.Variants.Nodes...)
		out.Nodes[i] = p
	}
	return out
}

func strPtr(s string) *string { return &s }

func pageInfo(next string) shopify.PageInfo {
	if next == "" {
		return shopify.PageInfo{}
	}
	return shopify.PageInfo{HasNextPage: true, EndCursor: strPtr(next)}
}

// variants builds n variants with ids starting at firstID.
func variants(firstID int64, n int) []shopify.Variant {
	out := make([]shopify.Variant, n)
	for i := range out {
		id := firstID + int64(i)
		out[i] = shopify.Variant{
			ID:    gid.New(gid.Variant, id),
			SKU:   strPtr(fmt.Sprintf("SKU-%d", id)),
			Price: "9.99",
		}
	}
	return out
}

func product(id int64, title string, vs []shopify.Variant, nextVariantCursor string) shopify.Product {
	return shopify.Product{
		ID:        gid.New(gid.Product, id),
		Title:     title,
		Tags:      []string{"a", "b"},
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Variants:  shopify.VariantConnection{PageInfo: pageInfo(nextVariantCursor), Nodes: vs},
	}
}

// fakeOrders serves order pages keyed by url; the first page url is "first".
type fakeOrders struct {
	pages   map[string]*shopify.OrdersPage
	failOn  map[string]error
	fetched []string
	since   time.Time
	until   time.Time
}

func (f *fakeOrders) OrdersUpdatedURL(since, until time.Time, limit int) string {
	f.since, f.until = since, until
	return "first"
}

func (f *fakeOrders) FetchOrdersPage(_ context.Context, pageURL string) (*shopify.OrdersPage, error) {
	f.fetched = append(f.fetched, pageURL)
	if err := f.failOn[pageURL]; err != nil {
		return nil, err
	}
	page, ok := f.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("unexpected page %q", pageURL)
	}
	return page, nil
}

type fixedLowerBound time.Time

func (f fixedLowerBound) CreateNewOrders(context.Context) (time.Time, error) {
	return time.Time(f), nil
}

type failingLowerBound struct{ err error }

func (f failingLowerBound) CreateNewOrders(context.Context) (time.Time, error) {
	return time.Time{}, f.err
}

type recordingPublisher struct {
	events []models.OrderSyncedEvent
	err    error
}

func (r *recordingPublisher) PublishOrderSynced(_ context.Context, evt models.OrderSyncedEvent) error {
	r.events = append(r.events, evt)
	return r.err
}

type recordingFacts struct {
	facts []models.OrderFact
}

func (r *recordingFacts) InsertOrderFacts(_ context.Context, facts []models.OrderFact) error {
	r.facts = append(r.facts, facts...)
	return nil
}

// fakeBilling serves billing order pages (index page-1) and subscriptions by id.
type fakeBilling struct {
	pages         [][]recharge.Order
	subscriptions map[int64]*recharge.Subscription
	subErr        error
	pagesFetched  []int
	subsFetched   []int64
}

func (f *fakeBilling) ListOrders(_ context.Context, page, limit int) ([]recharge.Order, error) {
	f.pagesFetched = append(f.pagesFetched, page)
	if page-1 >= len(f.pages) {
		return nil, nil
	}
	orders := f.pages[page-1]
	if len(orders) > limit {
		return nil, errors.New("page larger than limit")
	}
	return orders, nil
}

func (f *fakeBilling) GetSubscription(_ context.Context, id int64) (*recharge.Subscription, error) {
	f.subsFetched = append(f.subsFetched, id)
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.subscriptions[id], nil
}

type fakePlans struct {
	byOrder map[int64][]shopify.LineItemSellingPlan
	calls   int
}

func (f *fakePlans) FetchSellingPlans(_ context.Context, orderID int64) ([]shopify.LineItemSellingPlan, error) {
	f.calls++
	return f.byOrder[orderID], nil
}
