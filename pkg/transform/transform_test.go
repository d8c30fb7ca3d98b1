package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluice-dev/sluice/pkg/shopify"
)

func testMapper() Mapper {
	return Mapper{AccountID: "acct-1", SyncJobID: "job-1", EngagementScore: 10}
}

func conn[T any](nodes ...T) shopify.Connection[T] {
	edges := make([]shopify.Edge[T], 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, shopify.Edge[T]{Node: n})
	}
	return shopify.Connection[T]{Edges: edges}
}

func TestCustomerFullName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"both parts", "Ana", "García", "Ana García"},
		{"first only", "Ana", "", "Ana"},
		{"last only", "", "García", "García"},
		{"neither", "", "", ""},
	}

	m := testMapper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := m.Customer(shopify.Customer{ID: "gid://shopify/Customer/1", FirstName: tt.first, LastName: tt.last})
			assert.Equal(t, tt.want, rec.FullName)
		})
	}
}

func TestCustomerRecordFields(t *testing.T) {
	m := testMapper()

	rec := m.Customer(shopify.Customer{
		ID:        "gid://shopify/Customer/632910392",
		FirstName: "Ana",
		LastName:  "García",
		Email:     "ana@example.com",
		Phone:     "+34600000000",
		DefaultAddress: &shopify.Address{
			City:     "Sevilla",
			Province: "Andalucía",
			Country:  "Spain",
		},
	})

	assert.Equal(t, "acct-1", rec.AccountID)
	assert.Equal(t, "job-1", rec.SyncJobID)
	assert.Equal(t, "632910392", rec.ShopifyID)
	assert.Equal(t, "ana@example.com", rec.Email)
	assert.Equal(t, 0.0, rec.TotalValue)
	assert.Equal(t, "new", rec.Status)
	assert.Equal(t, 10, rec.EngagementScore)

	require.NotNil(t, rec.Location)
	assert.Equal(t, "Sevilla", rec.Location.City)
	assert.Equal(t, "Andalucía", rec.Location.State)
	assert.Equal(t, "Spain", rec.Location.Country)
	assert.Nil(t, rec.Location.Timezone)
}

func TestCustomerWithoutAddressHasNilLocation(t *testing.T) {
	rec := testMapper().Customer(shopify.Customer{ID: "gid://shopify/Customer/1"})
	assert.Nil(t, rec.Location)
}

func TestOrderInteraction(t *testing.T) {
	m := testMapper()

	rec, ok := m.Order(shopify.Order{
		ID:       "gid://shopify/Order/450789469",
		Name:     "#1001",
		Customer: &shopify.OrderCustomer{ID: "gid://shopify/Customer/632910392"},
		TotalPriceSet: &shopify.MoneyBag{
			ShopMoney: shopify.Money{Amount: "59.98", CurrencyCode: "EUR"},
		},
		LineItems: conn(
			shopify.LineItem{Title: "Widget", Quantity: 2},
			shopify.LineItem{Title: "Gadget", Quantity: 1},
		),
		CreatedAt: "2024-01-15T10:30:00Z",
	})

	require.True(t, ok)
	assert.Equal(t, "450789469", rec.ShopifyID)
	assert.Equal(t, "632910392", rec.CustomerID)
	assert.Equal(t, "purchase", rec.Type)
	assert.Equal(t, "Order #1001", rec.Title)
	assert.Equal(t, "2x Widget, 1x Gadget", rec.Description)
	assert.Equal(t, 59.98, rec.Value)
	assert.Equal(t, "2024-01-15T10:30:00Z", rec.OccurredAt)
}

func TestOrderWithoutCustomerSkipped(t *testing.T) {
	m := testMapper()

	_, ok := m.Order(shopify.Order{ID: "gid://shopify/Order/1", Name: "#1"})
	assert.False(t, ok, "order with nil customer must be skipped")

	_, ok = m.Order(shopify.Order{ID: "gid://shopify/Order/2", Name: "#2", Customer: &shopify.OrderCustomer{}})
	assert.False(t, ok, "order with empty customer id must be skipped")
}

func TestOrderValueDefaultsToZero(t *testing.T) {
	m := testMapper()
	order := shopify.Order{
		ID:       "gid://shopify/Order/1",
		Name:     "#1",
		Customer: &shopify.OrderCustomer{ID: "gid://shopify/Customer/7"},
	}

	rec, ok := m.Order(order)
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.Value, "missing price set")

	order.TotalPriceSet = &shopify.MoneyBag{ShopMoney: shopify.Money{Amount: "not-a-number"}}
	rec, ok = m.Order(order)
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.Value, "malformed amount")
}

func TestProductMapping(t *testing.T) {
	m := testMapper()

	rec := m.Product(shopify.Product{
		ID:          "gid://shopify/Product/108828309",
		Title:       "Aged Gouda",
		Description: "Two year aged wheel.",
		Status:      "ACTIVE",
		Tags:        []string{"cheese", "aged"},
		Variants: conn(
			shopify.ProductVariant{Price: "24.50", CompareAtPrice: "29.00"},
			shopify.ProductVariant{Price: "99.99", CompareAtPrice: "120.00"},
		),
		Images: conn(
			shopify.ProductImage{URL: "https://cdn.example.com/gouda-1.jpg"},
			shopify.ProductImage{URL: "https://cdn.example.com/gouda-2.jpg"},
		),
	})

	assert.Equal(t, "108828309", rec.ShopifyID)
	assert.Equal(t, "active", rec.Status)
	assert.Equal(t, 24.50, rec.Price, "first variant only")
	assert.Equal(t, 29.00, rec.CompareAtPrice)
	assert.Equal(t, []string{"cheese", "aged"}, rec.Tags)
	assert.Equal(t, []string{"https://cdn.example.com/gouda-1.jpg", "https://cdn.example.com/gouda-2.jpg"}, rec.Images)
}

func TestProductDefaults(t *testing.T) {
	rec := testMapper().Product(shopify.Product{ID: "gid://shopify/Product/1", Status: "DRAFT"})

	assert.Equal(t, 0.0, rec.Price, "no variants")
	assert.Equal(t, 0.0, rec.CompareAtPrice)
	assert.Equal(t, "draft", rec.Status)
	require.NotNil(t, rec.Tags)
	assert.Empty(t, rec.Tags)
	require.NotNil(t, rec.Images)
	assert.Empty(t, rec.Images)
}

func TestNumericID(t *testing.T) {
	tests := []struct {
		name string
		gid  string
		want string
	}{
		{"customer gid", "gid://shopify/Customer/632910392", "632910392"},
		{"query params stripped", "gid://shopify/ProductImage/123?width=100", "123"},
		{"bare id", "632910392", "632910392"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NumericID(tt.gid))
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   float64
	}{
		{"plain", "59.98", 59.98},
		{"zero", "0.00", 0},
		{"whitespace", " 10.5 ", 10.5},
		{"malformed", "abc", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMoney(tt.amount))
		})
	}
}

func TestMappingIsIdempotent(t *testing.T) {
	m := testMapper()

	customer := shopify.Customer{
		ID:             "gid://shopify/Customer/1",
		FirstName:      "Ana",
		DefaultAddress: &shopify.Address{City: "Sevilla"},
	}
	assert.Equal(t, m.Customer(customer), m.Customer(customer))

	order := shopify.Order{
		ID:            "gid://shopify/Order/1",
		Name:          "#1",
		Customer:      &shopify.OrderCustomer{ID: "gid://shopify/Customer/1"},
		TotalPriceSet: &shopify.MoneyBag{ShopMoney: shopify.Money{Amount: "10.00"}},
		LineItems:     conn(shopify.LineItem{Title: "Widget", Quantity: 1}),
	}
	first, _ := m.Order(order)
	second, _ := m.Order(order)
	assert.Equal(t, first, second)

	product := shopify.Product{
		ID:       "gid://shopify/Product/1",
		Status:   "ACTIVE",
		Variants: conn(shopify.ProductVariant{Price: "5.00"}),
	}
	assert.Equal(t, m.Product(product), m.Product(product))
}
