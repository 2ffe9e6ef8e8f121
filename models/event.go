package models

import "time"

// OrderSyncedEvent is published to RabbitMQ for every order written by the order sync.
type OrderSyncedEvent struct {
	Event         string    `json:"event"` // upserted
	RunID         string    `json:"run_id"`
	OrderID       int64     `json:"order_id"`
	LineItemCount int       `json:"line_item_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrderFact is the analytics row recorded in ClickHouse for a synced order.
type OrderFact struct {
	OrderID       int64
	RunID         string
	Currency      string
	TotalPrice    float64
	TotalTax      float64
	TotalDiscount float64
	LineItemCount int
	GiftCardOnly  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SyncRun summarises one job execution for the ClickHouse run ledger.
type SyncRun struct {
	RunID     string
	Job       string
	StartedAt time.Time
	EndedAt   time.Time
	Pages     int
	Records   int
	Status    string // succeeded | aborted | failed
	Error     string
}
