// Package destination defines the write side of a sync run: the record
// kinds, the typed records transformers produce, and the DataStore
// interface each backend store implements.
package destination

import (
	"context"

	json "github.com/goccy/go-json"
)

// Record kinds accepted by every DataStore implementation.
const (
	KindCustomers    = "customers"
	KindInteractions = "interactions"
	KindProducts     = "products"
	KindSyncJobs     = "sync_jobs"
)

// Filter narrows a ListRecords call to records whose fields equal every
// listed value.
type Filter map[string]interface{}

// Stored is a persisted record read back from a store. Fields carries
// the record body; ID is the store's own identifier, used for patches.
type Stored struct {
	ID     string                 `json:"id"`
	Kind   string                 `json:"kind"`
	Fields map[string]interface{} `json:"fields"`
}

// StringField returns the named field as a string, or "" when absent or
// differently typed.
func (s Stored) StringField(name string) string {
	v, _ := s.Fields[name].(string)
	return v
}

// FloatField returns the named field as a float64. JSON decoding hands
// numbers back as float64; integer values from other stores are widened.
func (s Stored) FloatField(name string) float64 {
	switch v := s.Fields[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// DataStore is the destination write API. One store instance serves one
// sync run.
type DataStore interface {
	// CreateRecord persists one new record of the given kind. A record
	// carrying a non-empty id field keeps it as its store identifier;
	// otherwise the store assigns one.
	CreateRecord(ctx context.Context, kind string, record interface{}) error

	// PatchRecord merges fields into an existing record of the given
	// kind, addressed by store identifier.
	PatchRecord(ctx context.Context, kind, id string, fields map[string]interface{}) error

	// ListRecords returns up to limit records of the given kind matching
	// the filter.
	ListRecords(ctx context.Context, kind string, filter Filter, limit int) ([]Stored, error)
}

// FieldsOf flattens a typed record into its field map through its JSON
// form, so stores can index and filter without knowing concrete types.
func FieldsOf(record interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
