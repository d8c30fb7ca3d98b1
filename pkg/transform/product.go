package transform

import (
	"strings"

	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/shopify"
)

// Product maps one source product node onto a destination product
// record. Pricing comes from the first variant only; a product with no
// variants prices at 0.
func (m Mapper) Product(p shopify.Product) destination.ProductRecord {
	rec := destination.ProductRecord{
		AccountID:   m.AccountID,
		SyncJobID:   m.SyncJobID,
		ShopifyID:   NumericID(p.ID),
		Title:       p.Title,
		Description: p.Description,
		Status:      strings.ToLower(p.Status),
		Tags:        p.Tags,
		Images:      imageURLs(p.Images),
	}

	if variants := p.Variants.Nodes(); len(variants) > 0 {
		rec.Price = ParseMoney(variants[0].Price)
		rec.CompareAtPrice = ParseMoney(variants[0].CompareAtPrice)
	}

	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec
}

func imageURLs(images shopify.Connection[shopify.ProductImage]) []string {
	urls := make([]string, 0, len(images.Edges))
	for _, img := range images.Nodes() {
		urls = append(urls, img.URL)
	}
	return urls
}
