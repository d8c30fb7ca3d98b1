package shopify

// PageInfo carries the continuation state of one connection page.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Edge wraps one node of a connection.
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor,omitempty"`
}

// Connection is the edges/pageInfo envelope the source API wraps every
// list result in. Nested connections leave PageInfo zero.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Nodes returns the connection's nodes in edge order.
func (c Connection[T]) Nodes() []T {
	out := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

// Money is a decimal amount serialized as a string by the source API.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// MoneyBag holds an amount in the shop's own currency.
type MoneyBag struct {
	ShopMoney Money `json:"shopMoney"`
}

// Address is the subset of a mailing address the sync consumes.
type Address struct {
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
}

// Customer is the raw customer shape returned by the source API.
type Customer struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	DefaultAddress *Address `json:"defaultAddress"`
}

// OrderCustomer is the customer reference attached to an order. Orders
// placed without an account carry none.
type OrderCustomer struct {
	ID string `json:"id"`
}

// LineItem is one purchased item on an order.
type LineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// Order is the raw order shape returned by the source API.
type Order struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Customer      *OrderCustomer       `json:"customer"`
	TotalPriceSet *MoneyBag            `json:"totalPriceSet"`
	LineItems     Connection[LineItem] `json:"lineItems"`
	CreatedAt     string               `json:"createdAt"`
}

// ProductVariant carries the priced fields of one product variant.
type ProductVariant struct {
	Price          string `json:"price"`
	CompareAtPrice string `json:"compareAtPrice"`
}

// ProductImage is one product image reference.
type ProductImage struct {
	URL string `json:"url"`
}

// Product is the raw product shape returned by the source API.
type Product struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Status      string                     `json:"status"`
	Tags        []string                   `json:"tags"`
	Variants    Connection[ProductVariant] `json:"variants"`
	Images      Connection[ProductImage]   `json:"images"`
}
