package engine

import "time"

// Job statuses, in lifecycle order.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusConnected = "connected"
	StatusError     = "error"
)

// Stage names, in execution order. The first three double as the
// source resource names.
const (
	StageCustomers   = "customers"
	StageOrders      = "orders"
	StageProducts    = "products"
	StageAggregation = "aggregation"
)

// Checkpoint labels reported outside the resource stages.
const (
	checkpointTesting    = "testing connection"
	checkpointFinalizing = "finalizing"
)

// SyncJob is one account's synchronization run. The executing run owns
// the value exclusively; callers must not submit overlapping jobs for
// one account. The access token never serializes into the job record.
type SyncJob struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	AccessToken string    `json:"-"`
	StoreURL    string    `json:"store_url"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
}

// NewJob builds a pending job for an account.
func NewJob(id, accountID, accessToken, storeURL string) *SyncJob {
	return &SyncJob{
		ID:          id,
		AccountID:   accountID,
		AccessToken: accessToken,
		StoreURL:    storeURL,
		Status:      StatusPending,
		StartedAt:   time.Now().UTC(),
	}
}

// Result summarizes a finished run: how many records each stage
// persisted and how long the whole run took.
type Result struct {
	Customers int
	Orders    int
	Products  int
	Elapsed   time.Duration
}

// Total is the record count stamped onto the finished job.
func (r Result) Total() int {
	return r.Customers + r.Orders + r.Products
}
