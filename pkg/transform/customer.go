package transform

import (
	"strings"

	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/shopify"
)

// Customer maps one source customer node onto a destination customer
// record. Missing name parts join as empty strings, so a single-part
// name survives without stray spaces.
func (m Mapper) Customer(c shopify.Customer) destination.CustomerRecord {
	return destination.CustomerRecord{
		AccountID:       m.AccountID,
		SyncJobID:       m.SyncJobID,
		ShopifyID:       NumericID(c.ID),
		FullName:        strings.TrimSpace(c.FirstName + " " + c.LastName),
		Email:           c.Email,
		Phone:           c.Phone,
		Location:        location(c.DefaultAddress),
		TotalValue:      0,
		Status:          "new",
		EngagementScore: m.EngagementScore,
	}
}

// location stays nil without a default address; the timezone is never
// known at sync time.
func location(addr *shopify.Address) *destination.Location {
	if addr == nil {
		return nil
	}
	return &destination.Location{
		City:    addr.City,
		Country: addr.Country,
		State:   addr.Province,
	}
}
