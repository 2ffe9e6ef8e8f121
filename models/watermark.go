package models

import "time"

// LastOrderUpdateID is the fixed key of the single order-sync watermark row.
const LastOrderUpdateID = 1

type LastOrderUpdate struct {
	ID         int `gorm:"primaryKey;autoIncrement:false"`
	LastUpdate time.Time
}

func (LastOrderUpdate) TableName() string { return "last_order_update" }

// RechargeOrderWatermark rows are appended once per subscription sync run.
type RechargeOrderWatermark struct {
	ID          int64 `gorm:"primaryKey"`
	LastOrderID int64
	CreatedAt   time.Time
}

func (RechargeOrderWatermark) TableName() string { return "recharge_order_id" }
