package workers

import (
	"context"
	"time"

	"shopsync/internal/jobs"
	"shopsync/internal/postgres"
	"shopsync/internal/recharge"
	"shopsync/internal/shopify"
)

// retryDelay is the first backoff step for the API clients; it doubles per attempt.
const retryDelay = 500 * time.Millisecond

func (d *Deps) shopifyClient() (*shopify.Client, error) {
	return shopify.NewClient(d.Config.Shopify,
		shopify.WithHTTPClient(d.HTTP),
		shopify.WithRetries(d.Config.Sync.MaxRetries, retryDelay),
	)
}

func CatalogSync(ctx context.Context, d *Deps, _ string) (Outcome, error) {
	client, err := d.shopifyClient()
	if err != nil {
		return Outcome{}, err
	}

	summary, err := jobs.NewCatalogSync(client, postgres.NewStore(d.Postgres), d.Config.Sync.PageDelay).Run(ctx)
	return Outcome{
		Pages:    summary.Pages + summary.VariantPages,
		Records:  summary.Products + summary.Variants,
		Aborted:  summary.Aborted,
		AbortErr: summary.AbortErr,
	}, err
}

func SubscriptionSync(ctx context.Context, d *Deps, _ string) (Outcome, error) {
	shop, err := d.shopifyClient()
	if err != nil {
		return Outcome{}, err
	}
	billing, err := recharge.NewClient(d.Config.Recharge,
		recharge.WithHTTPClient(d.HTTP),
		recharge.WithRetries(d.Config.Sync.MaxRetries, retryDelay),
	)
	if err != nil {
		return Outcome{}, err
	}

	opts := jobs.SubscriptionSyncOptions{StopAtWatermark: d.Config.Recharge.StopAtWatermark}
	summary, err := jobs.NewSubscriptionSync(billing, shop, postgres.NewStore(d.Postgres), opts).Run(ctx)
	return Outcome{Pages: summary.Pages, Records: summary.Upserted}, err
}

func OrderSync(ctx context.Context, d *Deps, runID string) (Outcome, error) {
	client, err := d.shopifyClient()
	if err != nil {
		return Outcome{}, err
	}

	store := postgres.NewStore(d.Postgres)
	opts := []jobs.OrderSyncOption{jobs.WithRunID(runID)}
	if d.RabbitMQ != nil {
		opts = append(opts, jobs.WithEventPublisher(d.RabbitMQ))
	}
	if d.ClickHouse != nil {
		opts = append(opts, jobs.WithFactRecorder(d.ClickHouse))
	}

	newOrders := jobs.StoredWatermark{Store: store, Lookback: d.Config.Sync.OrderLookback}
	summary, err := jobs.NewOrderSync(client, store, newOrders, opts...).Run(ctx)
	return Outcome{Pages: summary.Pages, Records: summary.Processed}, err
}
