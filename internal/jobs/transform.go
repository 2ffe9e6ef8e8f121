package jobs

import (
	"bytes"
	"encoding/json"

	"gorm.io/datatypes"

	"shopsync/internal/shopify"
	"shopsync/models"
)

// jsonColumn keeps a raw sub-structure as-is; absent and null values become SQL NULL.
func jsonColumn(raw json.RawMessage) datatypes.JSON {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return datatypes.JSON(append([]byte(nil), raw...))
}

func orderRow(o shopify.Order) models.Order {
	items := make([]models.LineItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, lineItemRow(o.ID, li))
	}

	row := models.Order{
		ID:                            o.ID,
		CancelReason:                  o.CancelReason,
		CancelledAt:                   o.CancelledAt,
		ClosedAt:                      o.ClosedAt,
		Company:                       o.CompanyText(),
		ConfirmationNumber:            derefOr(o.ConfirmationNumber, ""),
		Confirmed:                     o.Confirmed,
		CreatedAt:                     o.CreatedAt,
		Currency:                      o.Currency,
		CurrentSubtotalPrice:          float64(o.CurrentSubtotalPrice),
		CurrentSubtotalPriceSet:       jsonColumn(o.CurrentSubtotalPriceSet),
		CurrentTotalAdditionalFeesSet: jsonColumn(o.CurrentTotalAdditionalFeesSet),
		CurrentTotalDiscounts:         float64(o.CurrentTotalDiscounts),
		CurrentTotalDiscountsSet:      jsonColumn(o.CurrentTotalDiscountsSet),
		CurrentTotalDutiesSet:         jsonColumn(o.CurrentTotalDutiesSet),
		CurrentTotalPrice:             float64(o.CurrentTotalPrice),
		CurrentTotalPriceSet:          jsonColumn(o.CurrentTotalPriceSet),
		CurrentTotalTax:               float64(o.CurrentTotalTax),
		CurrentTotalTaxSet:            jsonColumn(o.CurrentTotalTaxSet),
		FulfillmentStatus:             o.FulfillmentStatus,
		Name:                          o.Name,
		Note:                          o.Note,
		NoteAttributes:                jsonColumn(o.NoteAttributes),
		OrderNumber:                   o.OrderNumber,
		OrderStatusURL:                o.OrderStatusURL,
		PresentmentCurrency:           o.PresentmentCurrency,
		ProcessedAt:                   o.ProcessedAt,
		Reference:                     derefOr(o.Reference, ""),
		SubtotalPrice:                 float64(o.SubtotalPrice),
		Tags:                          o.Tags,
		TotalDiscounts:                float64(o.TotalDiscounts),
		TotalLineItemsPrice:           float64(o.TotalLineItemsPrice),
		TotalOutstanding:              float64(o.TotalOutstanding),
		TotalPrice:                    float64(o.TotalPrice),
		TotalPriceSet:                 jsonColumn(o.TotalPriceSet),
		TotalShippingPriceSet:         jsonColumn(o.TotalShippingPriceSet),
		TotalTax:                      float64(o.TotalTax),
		TotalTipReceived:              float64(o.TotalTipReceived),
		TotalWeight:                   o.TotalWeight,
		UpdatedAt:                     o.UpdatedAt,
		SourceName:                    o.SourceName,
		SourceIdentifier:              o.SourceIdentifier,
		SourceURL:                     o.SourceURL,
		LocationID:                    o.LocationID,
		GiftCardOnly:                  models.GiftCardOnly(items),
		LineItems:                     items,
	}

	if o.Customer != nil && o.Customer.ID != 0 {
		id := o.Customer.ID
		row.CustomerID = &id
	}

	if a := o.ShippingAddress; a != nil {
		row.ShippingAddress1 = nonEmpty(a.Address1)
		row.ShippingAddress2 = nonEmpty(a.Address2)
		row.ShippingCity = nonEmpty(a.City)
		row.ShippingZip = nonEmpty(a.Zip)
		row.ShippingProvince = nonEmpty(a.Province)
		row.ShippingCountry = nonEmpty(a.Country)
		row.ShippingCompany = nonEmpty(a.Company)
		row.ShippingLatitude = a.Latitude
		row.ShippingLongitude = a.Longitude
		row.ShippingCountryCode = nonEmpty(a.CountryCode)
		row.ShippingProvinceCode = nonEmpty(a.ProvinceCode)
	}
	return row
}

func lineItemRow(orderID int64, li shopify.LineItem) models.LineItem {
	return models.LineItem{
		ID:                         li.ID,
		OrderID:                    orderID,
		SKU:                        nonEmpty(li.SKU),
		Name:                       li.Name,
		Grams:                      li.Grams,
		Price:                      float64(li.Price),
		Title:                      li.Title,
		Vendor:                     nonEmpty(li.Vendor),
		Taxable:                    li.Taxable,
		Quantity:                   li.Quantity,
		GiftCard:                   li.GiftCard,
		PriceSet:                   jsonColumn(li.PriceSet),
		TaxLines:                   jsonColumn(li.TaxLines),
		ProductID:                  li.ProductID,
		Properties:                 jsonColumn(li.Properties),
		VariantID:                  li.VariantID,
		PreTaxPrice:                float64(li.PreTaxPrice),
		VariantTitle:               nonEmpty(li.VariantTitle),
		ProductExists:              li.ProductExists,
		TotalDiscount:              float64(li.TotalDiscount),
		CurrentQuantity:            li.CurrentQuantity,
		AttributedStaffs:           jsonColumn(li.AttributedStaffs),
		PreTaxPriceSet:             jsonColumn(li.PreTaxPriceSet),
		RequiresShipping:           li.RequiresShipping,
		FulfillmentStatus:          nonEmpty(li.FulfillmentStatus),
		TotalDiscountSet:           jsonColumn(li.TotalDiscountSet),
		FulfillmentService:         nonEmpty(li.FulfillmentService),
		AdminGraphqlAPIID:          nonEmpty(li.AdminGraphqlAPIID),
		DiscountAllocations:        jsonColumn(li.DiscountAllocations),
		FulfillableQuantity:        li.FulfillableQuantity,
		VariantInventoryManagement: nonEmpty(li.VariantInventoryManagement),
	}
}
