// Package api implements the destination store over the platform's
// HTTP write API. Two deployment variants exist: a records endpoint
// addressed by base URL with an app id and API key, and a single
// callback URL with a shared secret that receives action envelopes.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"

	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/errors"
)

// Envelope actions understood by the callback variant.
const (
	actionCreate = "create_record"
	actionMerge  = "merge_record"
	actionPatch  = "patch_record"
	actionList   = "list_records"
)

// Store talks to the destination write API.
type Store struct {
	cfg        config.APIConfig
	upsert     bool
	httpClient *http.Client
}

// New builds a Store from the destination configuration. A non-empty
// callback URL selects the callback variant.
func New(cfg config.DestinationConfig) *Store {
	return &Store{
		cfg:        cfg.API,
		upsert:     cfg.Upsert,
		httpClient: &http.Client{Timeout: cfg.API.RequestTimeout},
	}
}

type envelope struct {
	Action string                 `json:"action"`
	Kind   string                 `json:"kind"`
	ID     string                 `json:"id,omitempty"`
	Record interface{}            `json:"record,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`
	Filter destination.Filter     `json:"filter,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
}

type listResponse struct {
	Records []destination.Stored `json:"records"`
}

type apiError struct {
	Error string `json:"error"`
}

// CreateRecord posts one record to the records endpoint, or wraps it in
// a create envelope for the callback variant. With upsert enabled the
// write goes to the merge endpoint instead.
func (s *Store) CreateRecord(ctx context.Context, kind string, record interface{}) error {
	if s.callback() {
		action := actionCreate
		if s.upsert {
			action = actionMerge
		}
		err := s.postEnvelope(ctx, envelope{Action: action, Kind: kind, Record: record}, nil)
		if err != nil {
			return errors.Wrapf(err, errors.ErrorTypePersist, "create %s record", kind)
		}
		return nil
	}

	apiErr := apiError{}
	rb := s.recordsBuilder().
		Pathf("/records/%s", kind).
		BodyJSON(record).
		ErrorJSON(&apiErr)
	if s.upsert {
		rb = rb.Put()
	}
	if err := rb.Fetch(ctx); err != nil {
		return wrapAPIError(err, apiErr, errors.ErrorTypePersist, "create %s record", kind)
	}
	return nil
}

// PatchRecord merges fields into one record by store id.
func (s *Store) PatchRecord(ctx context.Context, kind, id string, fields map[string]interface{}) error {
	if s.callback() {
		err := s.postEnvelope(ctx, envelope{Action: actionPatch, Kind: kind, ID: id, Fields: fields}, nil)
		if err != nil {
			return errors.Wrapf(err, errors.ErrorTypePersist, "patch %s record", kind)
		}
		return nil
	}

	apiErr := apiError{}
	err := s.recordsBuilder().
		Pathf("/records/%s/%s", kind, id).
		Patch().
		BodyJSON(fields).
		ErrorJSON(&apiErr).
		Fetch(ctx)
	if err != nil {
		return wrapAPIError(err, apiErr, errors.ErrorTypePersist, "patch %s record", kind)
	}
	return nil
}

// ListRecords fetches up to limit records of a kind, filter values
// passed as query parameters (endpoint variant) or in the envelope
// (callback variant).
func (s *Store) ListRecords(ctx context.Context, kind string, filter destination.Filter, limit int) ([]destination.Stored, error) {
	var out listResponse

	if s.callback() {
		err := s.postEnvelope(ctx, envelope{Action: actionList, Kind: kind, Filter: filter, Limit: limit}, &out)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeBulkLoad, "list %s records", kind)
		}
		return out.Records, nil
	}

	apiErr := apiError{}
	rb := s.recordsBuilder().
		Pathf("/records/%s", kind).
		Param("limit", fmt.Sprint(limit)).
		ToJSON(&out).
		ErrorJSON(&apiErr)
	for k, v := range filter {
		rb = rb.Param(k, fmt.Sprint(v))
	}
	if err := rb.Fetch(ctx); err != nil {
		return nil, wrapAPIError(err, apiErr, errors.ErrorTypeBulkLoad, "list %s records", kind)
	}
	return out.Records, nil
}

func (s *Store) callback() bool { return s.cfg.CallbackURL != "" }

// recordsBuilder returns a fresh builder for the endpoint variant.
// Builders accumulate state, so one is made per request.
func (s *Store) recordsBuilder() *requests.Builder {
	rb := requests.URL(s.cfg.BaseURL).Client(s.httpClient)
	if s.cfg.AppID != "" {
		rb = rb.Header("X-App-ID", s.cfg.AppID)
	}
	if s.cfg.APIKey != "" {
		rb = rb.Bearer(s.cfg.APIKey)
	}
	return rb
}

func (s *Store) postEnvelope(ctx context.Context, env envelope, out interface{}) error {
	rb := requests.URL(s.cfg.CallbackURL).
		Client(s.httpClient).
		Bearer(s.cfg.SharedSecret).
		Post().
		BodyJSON(&env)
	if out != nil {
		rb = rb.ToJSON(out)
	}
	return rb.Fetch(ctx)
}

// wrapAPIError types a write API failure, carrying along any error
// message the server returned in its body.
func wrapAPIError(err error, apiErr apiError, errType errors.ErrorType, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(err, errType, format, args...)
	if apiErr.Error != "" {
		wrapped = wrapped.WithDetail("api_error", apiErr.Error)
	}
	return wrapped
}
