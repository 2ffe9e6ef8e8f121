package shopify

const productsQuery = `
  query fetchProducts($firstProducts: Int!, $afterProductCursor: String) {
    products(first: $firstProducts, after: $afterProductCursor) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        id
        title
        totalInventory
        tags
        featuredMedia {
          preview {
            image {
              url
            }
          }
        }
        description
        priceRangeV2 {
          maxVariantPrice {
            amount
          }
        }
        productType
        status
        vendor
        updatedAt
        variants(first: 250) {
          pageInfo {
            hasNextPage
            endCursor
          }
          nodes {
            id
            sku
            price
            inventoryQuantity
          }
        }
      }
    }
  }
`

const variantsQuery = `
  query fetchVariants($productId: ID!, $firstVariants: Int!, $afterVariantCursor: String) {
    product(id: $productId) {
      variants(first: $firstVariants, after: $afterVariantCursor) {
        pageInfo {
          hasNextPage
          endCursor
        }
        nodes {
          id
          sku
          price
          inventoryQuantity
        }
      }
    }
  }
`

const sellingPlanQuery = `
  query getSellingPlan($id: ID!) {
    order(id: $id) {
      lineItems(first: 100) {
        nodes {
          id
          sellingPlan {
            sellingPlanId
            name
          }
        }
      }
    }
  }
`
