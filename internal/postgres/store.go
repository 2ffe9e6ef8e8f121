package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsync/models"
)

const batchSize = 500

var ErrNotFound = errors.New("record not found")

// Store implements the relational operations the sync jobs need.
type Store struct {
	db *gorm.DB
}

func NewStore(c *Client) *Store {
	return &Store{db: c.DB()}
}

// ClearCatalog deletes every variant, then every product.
func (s *Store) ClearCatalog(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Variant{}).Error; err != nil {
			return fmt.Errorf("failed to delete variants: %w", err)
		}
		if err := all.Delete(&models.Product{}).Error; err != nil {
			return fmt.Errorf("failed to delete products: %w", err)
		}
		return nil
	})
}

// InsertCatalogPage bulk-inserts one page of products and their variants, skipping ids already present.
func (s *Store) InsertCatalogPage(ctx context.Context, products []models.Product, variants []models.Variant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skipDuplicates := clause.OnConflict{DoNothing: true}
		if len(products) > 0 {
			if err := tx.Clauses(skipDuplicates).CreateInBatches(&products, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert products: %w", err)
			}
		}
		if len(variants) > 0 {
			if err := tx.Clauses(skipDuplicates).CreateInBatches(&variants, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert variants: %w", err)
			}
		}
		return nil
	})
}

// UpsertOrders writes a page of orders in one transaction. Each order is upserted by id
// and its line items are replaced with order.LineItems.
func (s *Store) UpsertOrders(ctx context.Context, orders []models.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range orders {
			if err := upsertOrder(tx, &orders[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertOrder(tx *gorm.DB, order *models.Order) error {
	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(order).Error
	if err != nil {
		return fmt.Errorf("failed to upsert order %d: %w", order.ID, err)
	}

	if err := tx.Where("order_id = ?", order.ID).Delete(&models.LineItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete line items of order %d: %w", order.ID, err)
	}
	if len(order.LineItems) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&order.LineItems, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert line items of order %d: %w", order.ID, err)
	}
	return nil
}

// LineItemMatch identifies a stored line item. A nil SKU does not constrain the match.
type LineItemMatch struct {
	OrderID   int64
	Title     string
	SKU       *string
	VariantID int64
}

func (s *Store) FindLineItem(ctx context.Context, m LineItemMatch) (*models.LineItem, error) {
	q := s.db.WithContext(ctx).Where("order_id = ? AND title = ? AND variant_id = ?", m.OrderID, m.Title, m.VariantID)
	if m.SKU != nil {
		q = q.Where("sku = ?", *m.SKU)
	}

	var item models.LineItem
	if err := q.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find line item for order %d: %w", m.OrderID, err)
	}
	return &item, nil
}

// UpsertLineItemSubscription creates or fully updates the row keyed by LineItemID.
func (s *Store) UpsertLineItemSubscription(ctx context.Context, sub *models.LineItemSubscription) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "line_item_id"}}, UpdateAll: true}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription for line item %d: %w", sub.LineItemID, err)
	}
	return nil
}

// LastOrderUpdate returns the order-sync watermark. ok is false when none was stored yet.
func (s *Store) LastOrderUpdate(ctx context.Context) (t time.Time, ok bool, err error) {
	var row models.LastOrderUpdate
	if err := s.db.WithContext(ctx).First(&row, models.LastOrderUpdateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read last order update: %w", err)
	}
	return row.LastUpdate, true, nil
}

func (s *Store) SaveLastOrderUpdate(ctx context.Context, t time.Time) error {
	row := models.LastOrderUpdate{ID: models.LastOrderUpdateID, LastUpdate: t}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_update"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save last order update: %w", err)
	}
	return nil
}

// AppendRechargeWatermark inserts a new row; earlier rows are kept as history.
func (s *Store) AppendRechargeWatermark(ctx context.Context, lastOrderID int64) error {
	row := models.RechargeOrderWatermark{LastOrderID: lastOrderID}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append recharge watermark: %w", err)
	}
	return nil
}

// LatestRechargeWatermark returns the most recently appended order id.
func (s *Store) LatestRechargeWatermark(ctx context.Context) (id int64, ok bool, err error) {
	var row models.RechargeOrderWatermark
	if err := s.db.WithContext(ctx).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read recharge watermark: %w", err)
	}
	return row.LastOrderID, true, nil
}
