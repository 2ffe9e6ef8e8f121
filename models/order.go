package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order mirrors a Shopify REST order. Line items are replaced wholesale on every upsert.
type Order struct {
	ID                            int64 `gorm:"primaryKey;autoIncrement:false"`
	CancelReason                  *string
	CancelledAt                   *time.Time
	ClosedAt                      *time.Time
	Company                       *string
	ConfirmationNumber            string
	Confirmed                     bool
	CreatedAt                     time.Time `gorm:"autoCreateTime:false"`
	Currency                      string
	CurrentSubtotalPrice          float64
	CurrentSubtotalPriceSet       datatypes.JSON `gorm:"type:jsonb"`
	CurrentTotalAdditionalFeesSet datatypes.JSON `gorm:"type:jsonb"`
	CurrentTotalDiscounts         float64
	CurrentTotalDiscountsSet      datatypes.JSON `gorm:"type:jsonb"`
	CurrentTotalDutiesSet         datatypes.JSON `gorm:"type:jsonb"`
	CurrentTotalPrice             float64
	CurrentTotalPriceSet          datatypes.JSON `gorm:"type:jsonb"`
	CurrentTotalTax               float64
	CurrentTotalTaxSet            datatypes.JSON `gorm:"type:jsonb"`
	FulfillmentStatus             *string
	Name                          string
	Note                          *string
	NoteAttributes                datatypes.JSON `gorm:"type:jsonb"`
	OrderNumber                   int64
	OrderStatusURL                string `gorm:"column:order_status_url"`
	PresentmentCurrency           string
	ProcessedAt                   *time.Time
	Reference                     string
	SubtotalPrice                 float64
	Tags                          string
	TotalDiscounts                float64
	TotalLineItemsPrice           float64
	TotalOutstanding              float64
	TotalPrice                    float64
	TotalPriceSet                 datatypes.JSON `gorm:"type:jsonb"`
	TotalShippingPriceSet         datatypes.JSON `gorm:"type:jsonb"`
	TotalTax                      float64
	TotalTipReceived              float64
	TotalWeight                   int64
	UpdatedAt                     time.Time `gorm:"autoUpdateTime:false"`
	CustomerID                    *int64
	SourceName                    *string
	SourceIdentifier              *string
	SourceURL                     *string `gorm:"column:source_url"`
	LocationID                    *int64
	GiftCardOnly                  bool

	ShippingAddress1     *string `gorm:"column:shipping_address1"`
	ShippingAddress2     *string `gorm:"column:shipping_address2"`
	ShippingCity         *string
	ShippingZip          *string
	ShippingProvince     *string
	ShippingCountry      *string
	ShippingCompany      *string
	ShippingLatitude     *float64
	ShippingLongitude    *float64
	ShippingCountryCode  *string
	ShippingProvinceCode *string

	LineItems []LineItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

type LineItem struct {
	ID                         int64   `gorm:"primaryKey;autoIncrement:false"`
	OrderID                    int64   `gorm:"index"`
	SKU                        *string `gorm:"column:sku"`
	Name                       string
	Grams                      int64
	Price                      float64
	Title                      string
	Vendor                     *string
	Taxable                    bool
	Quantity                   int64
	GiftCard                   bool
	PriceSet                   datatypes.JSON `gorm:"type:jsonb"`
	TaxLines                   datatypes.JSON `gorm:"type:jsonb"`
	ProductID                  *int64
	Properties                 datatypes.JSON `gorm:"type:jsonb"`
	VariantID                  *int64
	PreTaxPrice                float64
	VariantTitle               *string
	ProductExists              bool
	TotalDiscount              float64
	CurrentQuantity            int64
	AttributedStaffs           datatypes.JSON `gorm:"type:jsonb"`
	PreTaxPriceSet             datatypes.JSON `gorm:"type:jsonb"`
	RequiresShipping           bool
	FulfillmentStatus          *string
	TotalDiscountSet           datatypes.JSON `gorm:"type:jsonb"`
	FulfillmentService         *string
	AdminGraphqlAPIID          *string        `gorm:"column:admin_graphql_api_id"`
	DiscountAllocations        datatypes.JSON `gorm:"type:jsonb"`
	FulfillableQuantity        int64
	VariantInventoryManagement *string
}

func (LineItem) TableName() string { return "line_items" }

// GiftCardOnly reports whether every line item is a gift card. True for an empty set.
func GiftCardOnly(items []LineItem) bool {
	for _, item := range items {
		if !item.GiftCard {
			return false
		}
	}
	return true
}
