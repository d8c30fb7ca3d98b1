package destination

// Location is a customer's primary address. It stays nil when the
// source record has no default address.
type Location struct {
	City     string  `json:"city"`
	Country  string  `json:"country"`
	State    string  `json:"state"`
	Timezone *string `json:"timezone"`
}

// CustomerRecord is one destination customer derived from a source
// customer node.
type CustomerRecord struct {
	AccountID       string    `json:"account_id"`
	SyncJobID       string    `json:"sync_job_id"`
	ShopifyID       string    `json:"shopify_id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Location        *Location `json:"location"`
	TotalValue      float64   `json:"total_value"`
	Status          string    `json:"status"`
	EngagementScore int       `json:"engagement_score"`
}

// InteractionRecord is one purchase interaction derived from a source
// order. CustomerID carries the source customer's numeric id and so
// matches the shopify_id of the customer record it belongs to.
type InteractionRecord struct {
	AccountID   string  `json:"account_id"`
	SyncJobID   string  `json:"sync_job_id"`
	ShopifyID   string  `json:"shopify_id"`
	CustomerID  string  `json:"customer_id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	OccurredAt  string  `json:"occurred_at,omitempty"`
}

// ProductRecord is one destination product derived from a source
// product node.
type ProductRecord struct {
	AccountID      string   `json:"account_id"`
	SyncJobID      string   `json:"sync_job_id"`
	ShopifyID      string   `json:"shopify_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Price          float64  `json:"price"`
	CompareAtPrice float64  `json:"compare_at_price"`
	Tags           []string `json:"tags"`
	Images         []string `json:"images"`
}
