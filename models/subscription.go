package models

import "time"

// LineItemSubscription links a local line item to its Recharge subscription contract.
type LineItemSubscription struct {
	LineItemID             int64 `gorm:"primaryKey;autoIncrement:false"`
	IsSubscription         bool
	SellingPlanID          *string
	SellingPlanName        *string
	SubscriptionContractID string
	ContractStatus         string
	NextBillingDate        *time.Time
	BillingInterval        string
	BillingIntervalCount   *int
	DeliveryInterval       string
	DeliveryIntervalCount  *int
	CreatedAt              *time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt              *time.Time `gorm:"autoUpdateTime:false"`
}

func (LineItemSubscription) TableName() string { return "line_item_subscriptions" }
