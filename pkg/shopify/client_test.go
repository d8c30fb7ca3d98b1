package shopify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/errors"
)

func testSourceConfig() config.SourceConfig {
	return config.SourceConfig{
		StoreURL:         "test-store.myshopify.com",
		AccessToken:      "shpat_test",
		APIVersion:       "2024-01",
		CustomerPageSize: 2,
		OrderPageSize:    2,
		ProductPageSize:  2,
		PageDelay:        time.Millisecond,
		MaxRetries:       3,
		BackoffBase:      time.Millisecond,
		RequestTimeout:   5 * time.Second,
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testSourceConfig(), WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
}

func connectionPage(root string, nodes []map[string]interface{}, hasNext bool, cursor string) []byte {
	edges := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, map[string]interface{}{"node": n})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{
			root: map[string]interface{}{
				"edges": edges,
				"pageInfo": map[string]interface{}{
					"hasNextPage": hasNext,
					"endCursor":   cursor,
				},
			},
		},
	})
	return body
}

func customersPage(ids []string, hasNext bool, cursor string) []byte {
	nodes := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, map[string]interface{}{
			"id":        id,
			"firstName": "Test",
			"lastName":  "Customer",
			"email":     "test@example.com",
		})
	}
	return connectionPage(ResourceCustomers, nodes, hasNext, cursor)
}

func decodeAfter(t *testing.T, r *http.Request) string {
	t.Helper()
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	after, _ := req.Variables["after"].(string)
	return after
}

func TestFetchAllPreservesPageOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		afters []string
	)

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		after := decodeAfter(t, r)
		mu.Lock()
		afters = append(afters, after)
		mu.Unlock()

		switch after {
		case "":
			w.Write(customersPage([]string{"gid://shopify/Customer/1", "gid://shopify/Customer/2"}, true, "cur1"))
		case "cur1":
			w.Write(customersPage([]string{"gid://shopify/Customer/3", "gid://shopify/Customer/4"}, true, "cur2"))
		case "cur2":
			w.Write(customersPage([]string{"gid://shopify/Customer/5"}, false, ""))
		default:
			t.Errorf("unexpected cursor %q", after)
		}
	})

	customers, err := c.FetchCustomers(context.Background())
	require.NoError(t, err)

	got := make([]string, 0, len(customers))
	for _, cust := range customers {
		got = append(got, cust.ID)
	}
	assert.Equal(t, []string{
		"gid://shopify/Customer/1",
		"gid://shopify/Customer/2",
		"gid://shopify/Customer/3",
		"gid://shopify/Customer/4",
		"gid://shopify/Customer/5",
	}, got, "records must accumulate in page order")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "cur1", "cur2"}, afters)
}

func TestThrottleRetainsCursor(t *testing.T) {
	var (
		mu        sync.Mutex
		afters    []string
		throttled bool
	)

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		after := decodeAfter(t, r)

		mu.Lock()
		afters = append(afters, after)
		firstPageTwoHit := after == "cur1" && !throttled
		if firstPageTwoHit {
			throttled = true
		}
		mu.Unlock()

		if firstPageTwoHit {
			w.Write([]byte(`{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`))
			return
		}

		switch after {
		case "":
			w.Write(customersPage([]string{"gid://shopify/Customer/1"}, true, "cur1"))
		case "cur1":
			w.Write(customersPage([]string{"gid://shopify/Customer/2"}, false, ""))
		}
	})

	customers, err := c.FetchCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "cur1", "cur1"}, afters,
		"a throttled page must be re-requested with the same cursor")
}

func TestRetryCeiling(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := testSourceConfig()
	cfg.MaxRetries = 1
	c := NewClient(cfg, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))

	_, err := c.FetchCustomers(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(2), requests.Load(), "one retry means two attempts in total")
	assert.Equal(t, errors.ErrorTypeTransient, errors.TypeOf(err))
}

func TestFatalAPIErrorAborts(t *testing.T) {
	var requests atomic.Int32

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"errors":[{"message":"Field 'bogus' doesn't exist on type 'QueryRoot'","extensions":{"code":"undefinedField"}}]}`))
	})

	_, err := c.FetchCustomers(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(1), requests.Load(), "API errors other than throttling must not be retried")
	assert.Equal(t, errors.ErrorTypeAPI, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "Field 'bogus' doesn't exist")
}

func TestMissingConnectionFatal(t *testing.T) {
	var requests atomic.Int32

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"data":{}}`))
	})

	_, err := c.FetchCustomers(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, errors.ErrorTypeAPI, errors.TypeOf(err))
}

func TestShopInfo(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"data":{"shop":{"name":"Test Shop","myshopifyDomain":"test-store.myshopify.com"}}}`))
	})

	name, err := c.ShopInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test Shop", name)
}

func TestShopInfoFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := testSourceConfig()
	cfg.MaxRetries = 0
	c := NewClient(cfg, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))

	_, err := c.ShopInfo(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConnectivity, errors.TypeOf(err))
}

func TestShopInfoEmptyRecord(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"shop":null}}`))
	})

	_, err := c.ShopInfo(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConnectivity, errors.TypeOf(err))
}

func TestNormalizeStoreURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare host", "my-store.myshopify.com", "my-store.myshopify.com"},
		{"https scheme", "https://my-store.myshopify.com", "my-store.myshopify.com"},
		{"http scheme", "http://my-store.myshopify.com", "my-store.myshopify.com"},
		{"trailing slash", "my-store.myshopify.com/", "my-store.myshopify.com"},
		{"scheme and slashes", "https://my-store.myshopify.com///", "my-store.myshopify.com"},
		{"surrounding whitespace", "  my-store.myshopify.com ", "my-store.myshopify.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStoreURL(tt.in))
		})
	}
}
