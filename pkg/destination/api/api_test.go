package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/errors"
)

func endpointStore(t *testing.T, upsert bool, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.DestinationConfig{
		Mode:   config.ModeAPI,
		Upsert: upsert,
		API: config.APIConfig{
			BaseURL:        srv.URL,
			AppID:          "app-1",
			APIKey:         "key-1",
			RequestTimeout: 5 * time.Second,
		},
	})
}

func callbackStore(t *testing.T, upsert bool, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.DestinationConfig{
		Mode:   config.ModeAPI,
		Upsert: upsert,
		API: config.APIConfig{
			CallbackURL:    srv.URL,
			SharedSecret:   "secret-1",
			RequestTimeout: 5 * time.Second,
		},
	})
}

func TestEndpointCreatePostsRecord(t *testing.T) {
	var (
		gotMethod, gotPath, gotAppID, gotAuth string
		gotBody                               map[string]interface{}
	)

	s := endpointStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAppID = r.Header.Get("X-App-ID")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	})

	err := s.CreateRecord(context.Background(), destination.KindCustomers, destination.CustomerRecord{
		AccountID: "acct-1",
		SyncJobID: "job-1",
		ShopifyID: "632910392",
		FullName:  "Ana García",
		Status:    "new",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/records/customers", gotPath)
	assert.Equal(t, "app-1", gotAppID)
	assert.Equal(t, "Bearer key-1", gotAuth)
	assert.Equal(t, "Ana García", gotBody["full_name"])
	assert.Equal(t, "632910392", gotBody["shopify_id"])
}

func TestEndpointUpsertUsesMerge(t *testing.T) {
	var gotMethod string

	s := endpointStore(t, true, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	err := s.CreateRecord(context.Background(), destination.KindProducts, destination.ProductRecord{
		AccountID: "acct-1",
		ShopifyID: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestEndpointPatchRecord(t *testing.T) {
	var (
		gotMethod, gotPath string
		gotBody            map[string]interface{}
	)

	s := endpointStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := s.PatchRecord(context.Background(), destination.KindCustomers, "cust-9", map[string]interface{}{
		"total_value": 15.0,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/records/customers/cust-9", gotPath)
	assert.Equal(t, 15.0, gotBody["total_value"])
}

func TestEndpointListBuildsQuery(t *testing.T) {
	s := endpointStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "acct-1", q.Get("account_id"))
		assert.Equal(t, "purchase", q.Get("type"))

		body, _ := json.Marshal(listResponse{Records: []destination.Stored{
			{ID: "int-1", Kind: destination.KindInteractions, Fields: map[string]interface{}{"customer_id": "7", "value": 10.0}},
			{ID: "int-2", Kind: destination.KindInteractions, Fields: map[string]interface{}{"customer_id": "7", "value": 5.0}},
		}})
		w.Write(body)
	})

	got, err := s.ListRecords(context.Background(), destination.KindInteractions,
		destination.Filter{"account_id": "acct-1", "type": "purchase"}, 100)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "int-1", got[0].ID)
	assert.Equal(t, "7", got[0].StringField("customer_id"))
	assert.Equal(t, 10.0, got[0].FloatField("value"))
}

func TestCallbackCreateSendsEnvelope(t *testing.T) {
	var (
		gotAuth string
		gotEnv  map[string]interface{}
	)

	s := callbackStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnv))
		w.WriteHeader(http.StatusOK)
	})

	err := s.CreateRecord(context.Background(), destination.KindCustomers, destination.CustomerRecord{
		AccountID: "acct-1",
		ShopifyID: "632910392",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-1", gotAuth)
	assert.Equal(t, "create_record", gotEnv["action"])
	assert.Equal(t, "customers", gotEnv["kind"])
	record, ok := gotEnv["record"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "632910392", record["shopify_id"])
}

func TestCallbackUpsertSendsMergeAction(t *testing.T) {
	var gotEnv map[string]interface{}

	s := callbackStore(t, true, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnv))
		w.WriteHeader(http.StatusOK)
	})

	err := s.CreateRecord(context.Background(), destination.KindProducts, destination.ProductRecord{ShopifyID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "merge_record", gotEnv["action"])
}

func TestCallbackListRoundTrip(t *testing.T) {
	s := callbackStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		var env map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		assert.Equal(t, "list_records", env["action"])
		assert.Equal(t, float64(10000), env["limit"])

		body, _ := json.Marshal(listResponse{Records: []destination.Stored{
			{ID: "cust-1", Kind: destination.KindCustomers, Fields: map[string]interface{}{"shopify_id": "1"}},
		}})
		w.Write(body)
	})

	got, err := s.ListRecords(context.Background(), destination.KindCustomers, nil, 10000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cust-1", got[0].ID)
}

func TestCreateFailureCarriesServerError(t *testing.T) {
	s := endpointStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"email is invalid"}`))
	})

	err := s.CreateRecord(context.Background(), destination.KindCustomers, destination.CustomerRecord{})
	require.Error(t, err)

	assert.True(t, errors.IsType(err, errors.ErrorTypePersist))
	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "email is invalid", typed.Details["api_error"])
}

func TestListFailureTypedBulkLoad(t *testing.T) {
	s := endpointStore(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := s.ListRecords(context.Background(), destination.KindCustomers, nil, 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBulkLoad))
}
