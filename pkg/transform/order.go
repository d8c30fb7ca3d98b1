package transform

import (
	"fmt"
	"strings"

	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/shopify"
)

// Order maps one source order onto a purchase interaction. Orders with
// no associated customer produce nothing; the second return reports
// whether a record was produced.
func (m Mapper) Order(o shopify.Order) (destination.InteractionRecord, bool) {
	if o.Customer == nil || o.Customer.ID == "" {
		return destination.InteractionRecord{}, false
	}

	return destination.InteractionRecord{
		AccountID:   m.AccountID,
		SyncJobID:   m.SyncJobID,
		ShopifyID:   NumericID(o.ID),
		CustomerID:  NumericID(o.Customer.ID),
		Type:        "purchase",
		Title:       fmt.Sprintf("Order %s", o.Name),
		Description: lineItemSummary(o.LineItems),
		Value:       orderValue(o.TotalPriceSet),
		OccurredAt:  o.CreatedAt,
	}, true
}

func lineItemSummary(items shopify.Connection[shopify.LineItem]) string {
	parts := make([]string, 0, len(items.Edges))
	for _, item := range items.Nodes() {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Title))
	}
	return strings.Join(parts, ", ")
}

func orderValue(total *shopify.MoneyBag) float64 {
	if total == nil {
		return 0
	}
	return ParseMoney(total.ShopMoney.Amount)
}
