package jobs

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"shopsync/internal/gid"
	"shopsync/internal/shopify"
	"shopsync/models"
	"shopsync/pkg/logger"
)

type CatalogSource interface {
	FetchProducts(ctx context.Context, first int, after *string) (*shopify.ProductConnection, error)
	FetchVariants(ctx context.Context, productID gid.GID, first int, after *string) (*shopify.VariantConnection, error)
}

type CatalogStore interface {
	ClearCatalog(ctx context.Context) error
	InsertCatalogPage(ctx context.Context, products []models.Product, variants []models.Variant) error
}

type CatalogSummary struct {
	Pages        int
	VariantPages int
	Products     int
	Variants     int
	FailedWrites int
	// Aborted is set when a fetch error ended pagination early.
	Aborted  bool
	AbortErr error
}

// CatalogSync replaces the stored catalog with the current product list.
type CatalogSync struct {
	source    CatalogSource
	store     CatalogStore
	pageDelay time.Duration
}

func NewCatalogSync(source CatalogSource, store CatalogStore, pageDelay time.Duration) *CatalogSync {
	return &CatalogSync{source: source, store: store, pageDelay: pageDelay}
}

// Run clears products and variants, then writes the catalog one page at a time.
// A fetch error stops pagination without failing the run; the summary reports it.
func (s *CatalogSync) Run(ctx context.Context) (CatalogSummary, error) {
	var summary CatalogSummary
	log.Println("🚀 Starting product synchronization")

	if err := s.store.ClearCatalog(ctx); err != nil {
		return summary, fmt.Errorf("clear catalog: %w", err)
	}
	log.Println("✓ Existing product and variant data cleared")

	var after *string
	for {
		page, err := s.source.FetchProducts(ctx, shopify.PageSize, after)
		if err != nil {
			if isCancellation(err) {
				return summary, err
			}
			s.abort(&summary, err)
			break
		}
		summary.Pages++

		if len(page.Nodes) > 0 {
			products, err := s.completeVariants(ctx, page.Nodes, &summary)
			if err != nil {
				if isCancellation(err) {
					return summary, err
				}
				s.abort(&summary, err)
				break
			}
			s.writePage(ctx, products, &summary)
		}

		if err := pause(ctx, s.pageDelay); err != nil {
			return summary, err
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		after = page.PageInfo.EndCursor
	}

	log.Printf("✓ Product sync completed: %d products, %d variants over %d pages", summary.Products, summary.Variants, summary.Pages)
	return summary, nil
}

func (s *CatalogSync) abort(summary *CatalogSummary, err error) {
	logger.Error("Sync error, stopping pagination: %v", err)
	summary.Aborted = true
	summary.AbortErr = err
}

// completeVariants fetches the remaining variant pages of every product whose first
// variant page is not the last one.
func (s *CatalogSync) completeVariants(ctx context.Context, products []shopify.Product, summary *CatalogSummary) ([]shopify.Product, error) {
	for i := range products {
		p := &products[i]
		info := p.Variants.PageInfo
		for info.HasNextPage {
			more, err := s.source.FetchVariants(ctx, p.ID, shopify.PageSize, info.EndCursor)
			if err != nil {
				return nil, err
			}
			summary.VariantPages++
			p.Variants.Nodes = append(p.Variants.Nodes, more.Nodes...)
			info = more.PageInfo

			if err := pause(ctx, s.pageDelay); err != nil {
				return nil, err
			}
		}
		p.Variants.PageInfo = info
	}
	return products, nil
}

// writePage logs a failed write and moves on; the next page is still attempted.
func (s *CatalogSync) writePage(ctx context.Context, products []shopify.Product, summary *CatalogSummary) {
	productRows, variantRows := flattenProducts(products)
	if err := s.store.InsertCatalogPage(ctx, productRows, variantRows); err != nil {
		logger.Error("Error storing products and variants: %v", err)
		summary.FailedWrites++
		return
	}
	summary.Products += len(productRows)
	summary.Variants += len(variantRows)
	log.Printf("Fetched %d products. Total: %d", len(productRows), summary.Products)
}

func flattenProducts(products []shopify.Product) ([]models.Product, []models.Variant) {
	productRows := make([]models.Product, 0, len(products))
	var variantRows []models.Variant

	for _, p := range products {
		var tags *string
		if p.Tags != nil {
			joined := strings.Join(p.Tags, ",")
			tags = &joined
		}
		productRows = append(productRows, models.Product{
			ID:                    p.ID.ID,
			GID:                   p.ID.String(),
			Title:                 p.Title,
			InventoryAvailableQty: derefOr(p.TotalInventory, 0),
			Tags:                  tags,
			ImgSrc:                p.ImageURL(),
			Description:           p.Description,
			MaximumPrice:          p.MaxVariantPrice(),
			Type:                  p.ProductType,
			Status:                p.Status,
			Vendor:                p.Vendor,
			UpdatedAt:             p.UpdatedAt,
		})

		for _, v := range p.Variants.Nodes {
			price, _ := strconv.ParseFloat(v.Price, 64)
			variantRows = append(variantRows, models.Variant{
				ID:           v.ID.ID,
				GID:          v.ID.String(),
				ProductID:    p.ID.ID,
				Price:        price,
				SKU:          derefOr(v.SKU, ""),
				InventoryQty: derefOr(v.InventoryQuantity, 0),
			})
		}
	}
	return productRows, variantRows
}
