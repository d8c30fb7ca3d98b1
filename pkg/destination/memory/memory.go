// Package memory provides an in-memory DataStore for tests and dry
// runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/errors"
)

// Store keeps records in process memory, grouped by kind and ordered
// by insertion. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	kinds  map[string][]*destination.Stored
	nextID int
	upsert bool
}

// Option adjusts store construction.
type Option func(*Store)

// WithUpsert keys creates on (account_id, shopify_id), updating an
// existing record instead of appending a duplicate.
func WithUpsert() Option {
	return func(s *Store) { s.upsert = true }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{kinds: make(map[string][]*destination.Stored)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRecord persists one record. Records carrying an id field keep
// it; others are assigned a sequential store id.
func (s *Store) CreateRecord(ctx context.Context, kind string, record interface{}) error {
	fields, err := destination.FieldsOf(record)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypePersist, "encode %s record", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsert {
		if existing := s.findByKeyLocked(kind, fields); existing != nil {
			for k, v := range fields {
				existing.Fields[k] = v
			}
			return nil
		}
	}

	id, _ := fields["id"].(string)
	if id == "" {
		s.nextID++
		id = fmt.Sprintf("%s-%d", kind, s.nextID)
	}

	s.kinds[kind] = append(s.kinds[kind], &destination.Stored{
		ID:     id,
		Kind:   kind,
		Fields: fields,
	})
	return nil
}

// PatchRecord merges fields into the record with the given id. Nil
// values overwrite, they do not delete.
func (s *Store) PatchRecord(ctx context.Context, kind, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.kinds[kind] {
		if rec.ID != id {
			continue
		}
		for k, v := range fields {
			rec.Fields[k] = v
		}
		return nil
	}
	return errors.Newf(errors.ErrorTypePersist, "no %s record %q", kind, id)
}

// ListRecords returns up to limit records matching the filter, in
// insertion order. A nil filter matches everything.
func (s *Store) ListRecords(ctx context.Context, kind string, filter destination.Filter, limit int) ([]destination.Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []destination.Stored
	for _, rec := range s.kinds[kind] {
		if !matches(rec, filter) {
			continue
		}
		out = append(out, snapshot(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) findByKeyLocked(kind string, fields map[string]interface{}) *destination.Stored {
	account, _ := fields["account_id"].(string)
	shopifyID, _ := fields["shopify_id"].(string)
	if account == "" || shopifyID == "" {
		return nil
	}
	for _, rec := range s.kinds[kind] {
		if rec.StringField("account_id") == account && rec.StringField("shopify_id") == shopifyID {
			return rec
		}
	}
	return nil
}

func matches(rec *destination.Stored, filter destination.Filter) bool {
	for k, want := range filter {
		if rec.Fields[k] != want {
			return false
		}
	}
	return true
}

// snapshot copies the record so callers cannot mutate store state.
func snapshot(rec *destination.Stored) destination.Stored {
	fields := make(map[string]interface{}, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	return destination.Stored{ID: rec.ID, Kind: rec.Kind, Fields: fields}
}
