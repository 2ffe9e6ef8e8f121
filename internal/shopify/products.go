package shopify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shopsync/internal/gid"
)

type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type ProductConnection struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Nodes    []Product `json:"nodes"`
}

type VariantConnection struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Nodes    []Variant `json:"nodes"`
}

type Product struct {
	ID             gid.GID           `json:"id"`
	Title          string            `json:"title"`
	TotalInventory *int              `json:"totalInventory"`
	Tags           []string          `json:"tags"`
	FeaturedMedia  *Media            `json:"featuredMedia"`
	Description    string            `json:"description"`
	PriceRangeV2   *PriceRange       `json:"priceRangeV2"`
	ProductType    string            `json:"productType"`
	Status         string            `json:"status"`
	Vendor         string            `json:"vendor"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Variants       VariantConnection `json:"variants"`
}

type Variant struct {
	ID                gid.GID `json:"id"`
	SKU               *string `json:"sku"`
	Price             string  `json:"price"`
	InventoryQuantity *int    `json:"inventoryQuantity"`
}

type Media struct {
	Preview *struct {
		Image *struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"preview"`
}

type PriceRange struct {
	MaxVariantPrice *struct {
		Amount string `json:"amount"`
	} `json:"maxVariantPrice"`
}

// ImageURL returns the featured image url, or nil when the product has none.
func (p *Product) ImageURL() *string {
	if p.FeaturedMedia == nil || p.FeaturedMedia.Preview == nil || p.FeaturedMedia.Preview.Image == nil {
		return nil
	}
	url := p.FeaturedMedia.Preview.Image.URL
	return &url
}

func (p *Product) MaxVariantPrice() float64 {
	if p.PriceRangeV2 == nil || p.PriceRangeV2.MaxVariantPrice == nil {
		return 0
	}
	amount, _ := strconv.ParseFloat(p.PriceRangeV2.MaxVariantPrice.Amount, 64)
	return amount
}

// FetchProducts returns one page of products with their first page of variants.
func (c *Client) FetchProducts(ctx context.Context, first int, after *string) (*ProductConnection, error) {
	var data struct {
		Products ProductConnection `json:"products"`
	}
	vars := map[string]any{"firstProducts": first, "afterProductCursor": after}
	if err := c.query(ctx, productsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return &data.Products, nil
}

// FetchVariants returns the variant page of a product that follows the after cursor.
func (c *Client) FetchVariants(ctx context.Context, productID gid.GID, first int, after *string) (*VariantConnection, error) {
	var data struct {
		Product *struct {
			Variants VariantConnection `json:"variants"`
		} `json:"product"`
	}
	vars := map[string]any{"productId": productID.String(), "firstVariants": first, "afterVariantCursor": after}
	if err := c.query(ctx, variantsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("fetch variants of %s: %w", productID, err)
	}
	if data.Product == nil {
		return nil, fmt.Errorf("fetch variants of %s: product not found", productID)
	}
	return &data.Product.Variants, nil
}
