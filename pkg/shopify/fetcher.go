package shopify

import (
	"context"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/errors"
	"github.com/sluice-dev/sluice/pkg/metrics"
)

// FetchCustomers retrieves every customer in the store, in page order.
func (c *Client) FetchCustomers(ctx context.Context) ([]Customer, error) {
	return fetchAll[Customer](ctx, c, ResourceCustomers, customersQuery, c.cfg.PageSize(ResourceCustomers))
}

// FetchOrders retrieves every order in the store, in page order.
func (c *Client) FetchOrders(ctx context.Context) ([]Order, error) {
	return fetchAll[Order](ctx, c, ResourceOrders, ordersQuery, c.cfg.PageSize(ResourceOrders))
}

// FetchProducts retrieves every product in the store, in page order.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	return fetchAll[Product](ctx, c, ResourceProducts, productsQuery, c.cfg.PageSize(ResourceProducts))
}

// fetchAll walks a cursor-paginated connection to exhaustion. Records
// accumulate in the order the API returns them. The cursor only
// advances after a page succeeds, so a retried page re-reads the same
// position rather than skipping it.
func fetchAll[T any](ctx context.Context, c *Client, resource, query string, pageSize int) ([]T, error) {
	var (
		records []T
		cursor  string
		page    int
	)

	for {
		variables := map[string]interface{}{"first": pageSize}
		if cursor != "" {
			variables["after"] = cursor
		}

		data, err := c.Do(ctx, resource, query, variables)
		if err != nil {
			return nil, err
		}

		conn, err := decodeConnection[T](data, resource)
		if err != nil {
			return nil, err
		}

		page++
		metrics.PagesFetched.WithLabelValues(resource).Inc()
		metrics.RecordsFetched.WithLabelValues(resource).Add(float64(len(conn.Edges)))
		records = append(records, conn.Nodes()...)

		c.logger.Debug("fetched page",
			zap.String("resource", resource),
			zap.Int("page", page),
			zap.Int("page_records", len(conn.Edges)),
			zap.Int("total_records", len(records)))

		if !conn.PageInfo.HasNextPage {
			break
		}
		if conn.PageInfo.EndCursor == "" {
			c.logger.Warn("page reports more results but no cursor, stopping",
				zap.String("resource", resource))
			break
		}
		cursor = conn.PageInfo.EndCursor
	}

	return records, nil
}

// decodeConnection extracts the named connection from a GraphQL data
// payload. A missing root field or undecodable body means the API
// returned a shape this client does not understand, which is fatal.
func decodeConnection[T any](data json.RawMessage, root string) (Connection[T], error) {
	var conn Connection[T]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return conn, errors.Wrapf(err, errors.ErrorTypeAPI, "decode %s payload", root)
	}

	raw, ok := fields[root]
	if !ok {
		return conn, errors.Newf(errors.ErrorTypeAPI, "response missing %s connection", root)
	}

	if err := json.Unmarshal(raw, &conn); err != nil {
		return conn, errors.Wrapf(err, errors.ErrorTypeAPI, "decode %s connection", root)
	}

	return conn, nil
}
