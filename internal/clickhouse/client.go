package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"shopsync/config"
	"shopsync/models"
)

type Client struct {
	conn     driver.Conn
	database string
}

func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		DialTimeout:  time.Second * 30,
	}

	// TLS only on the secure native port
	if cfg.Port == 9440 || cfg.Port == 8443 {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Client{
		conn:     conn,
		database: cfg.Database,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// InsertSyncRun appends one row to the sync_runs ledger.
func (c *Client) InsertSyncRun(ctx context.Context, run models.SyncRun) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.sync_runs (
			run_id, job, started_at, ended_at, pages, records, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.database)

	return c.conn.Exec(ctx, query,
		run.RunID,
		run.Job,
		run.StartedAt,
		run.EndedAt,
		uint32(run.Pages),
		uint32(run.Records),
		run.Status,
		run.Error,
	)
}

// InsertOrderFacts sends one batch to order_facts. Rows are versioned by updated_at,
// so a ReplacingMergeTree keeps the latest state per order.
func (c *Client) InsertOrderFacts(ctx context.Context, facts []models.OrderFact) error {
	if len(facts) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.order_facts`, c.database))
	if err != nil {
		return fmt.Errorf("failed to prepare order facts batch: %w", err)
	}

	for _, f := range facts {
		var giftCardOnly uint8
		if f.GiftCardOnly {
			giftCardOnly = 1
		}
		err := batch.Append(
			f.OrderID,
			f.RunID,
			f.Currency,
			f.TotalPrice,
			f.TotalTax,
			f.TotalDiscount,
			uint32(f.LineItemCount),
			giftCardOnly,
			f.CreatedAt,
			f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append order fact %d: %w", f.OrderID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send order facts batch: %w", err)
	}
	return nil
}
