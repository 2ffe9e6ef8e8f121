package models

import "time"

// Product is one row of the products table. ID is the numeric tail of GID.
type Product struct {
	ID                    int64  `gorm:"primaryKey;autoIncrement:false"`
	GID                   string `gorm:"column:gid"`
	Title                 string
	InventoryAvailableQty int
	Tags                  *string
	ImgSrc                *string
	Description           string
	MaximumPrice          float64
	Type                  string
	Status                string
	Vendor                string
	UpdatedAt             time.Time `gorm:"autoUpdateTime:false"`
}

func (Product) TableName() string { return "products" }

type Variant struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	GID          string `gorm:"column:gid"`
	ProductID    int64  `gorm:"index"`
	Price        float64
	SKU          string `gorm:"column:sku"`
	InventoryQty int
}

func (Variant) TableName() string { return "variants" }
