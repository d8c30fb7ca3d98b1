// Package shopify implements the source side of a sync run: an
// authenticated GraphQL client with retry, throttle handling, and page
// pacing, plus cursor-paginated fetchers for customers, orders, and
// products.
package shopify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/sluice-dev/sluice/pkg/clients"
	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/errors"
	"github.com/sluice-dev/sluice/pkg/logger"
	"github.com/sluice-dev/sluice/pkg/metrics"
)

// throttledCode is the error-extension code the source API attaches to
// rate-limited requests.
const throttledCode = "THROTTLED"

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Client executes GraphQL queries against one store's Admin API.
type Client struct {
	cfg        config.SourceConfig
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    clients.RateLimiter
	retry      *clients.RetryPolicy
	logger     *zap.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the store named in cfg. The store URL
// is normalized, so values with a scheme or trailing slash are accepted.
func NewClient(cfg config.SourceConfig, opts ...Option) *Client {
	store := NormalizeStoreURL(cfg.StoreURL)

	c := &Client{
		cfg:      cfg,
		endpoint: fmt.Sprintf("https://%s/admin/api/%s/graphql.json", store, cfg.APIVersion),
		token:    cfg.AccessToken,
		limiter:  clients.NewPagePacer(cfg.PageDelay),
		retry:    clients.NewRetryPolicy(cfg.MaxRetries, cfg.BackoffBase),
		logger:   logger.Get().With(zap.String("component", "shopify_client")),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = newHTTPClient(cfg.RequestTimeout, c.logger)
	}

	return c
}

// NormalizeStoreURL strips the protocol scheme and any trailing slash
// from a store host, accepting the forms operators paste in.
func NormalizeStoreURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimRight(s, "/")
}

func newHTTPClient(timeout time.Duration, log *zap.Logger) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		log.Warn("failed to configure HTTP/2", zap.Error(err))
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ShopInfo confirms the credential works by fetching the shop record.
// Any failure here reads as a connectivity problem.
func (c *Client) ShopInfo(ctx context.Context) (string, error) {
	data, err := c.Do(ctx, "shop", shopQuery, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConnectivity, "store connection check failed")
	}

	name := gjson.GetBytes(data, "shop.name").String()
	if name == "" {
		return "", errors.New(errors.ErrorTypeConnectivity, "store returned no shop record")
	}

	return name, nil
}

// Do executes one query with page pacing and the retry policy applied.
// Throttle and transport failures are retried with backoff; a spent
// retry budget surfaces as a transient fetch error. Other API errors
// return immediately. The resource label only feeds logs and metrics.
func (c *Client) Do(ctx context.Context, resource, query string, variables map[string]interface{}) (json.RawMessage, error) {
	var data json.RawMessage

	err := c.retry.ExecuteWithCondition(ctx,
		func() error {
			// A context error here is not typed, so it aborts the
			// retry loop immediately.
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			payload, err := c.executeOnce(ctx, query, variables)
			if err != nil {
				return err
			}
			data = payload
			return nil
		},
		func(err error) bool {
			if !errors.IsRetryable(err) {
				return false
			}
			if errors.IsType(err, errors.ErrorTypeThrottle) {
				metrics.ThrottleRetries.WithLabelValues(resource).Inc()
				c.logger.Warn("source throttled, backing off",
					zap.String("resource", resource))
			} else {
				metrics.FetchRetries.WithLabelValues(resource).Inc()
				c.logger.Warn("query failed, retrying",
					zap.String("resource", resource),
					zap.Error(err))
			}
			return true
		},
	)
	if err != nil {
		if errors.IsRetryable(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeTransient, "fetch retries exhausted")
		}
		return nil, err
	}

	return data, nil
}

// executeOnce performs a single request/response round trip.
func (c *Client) executeOnce(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "marshal graphql request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "build graphql request")
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransient, "graphql request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransient, "read graphql response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrorTypeTransient, "graphql request returned status %d", resp.StatusCode).
			WithDetail("status", resp.StatusCode)
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransient, "decode graphql response")
	}

	if len(envelope.Errors) > 0 {
		if isThrottled(envelope.Errors) {
			return nil, errors.New(errors.ErrorTypeThrottle, "source API throttled the request")
		}
		return nil, errors.Newf(errors.ErrorTypeAPI, "graphql errors: %s", joinErrorMessages(envelope.Errors))
	}

	return envelope.Data, nil
}

func isThrottled(errs []graphQLError) bool {
	for _, e := range errs {
		if e.Extensions.Code == throttledCode {
			return true
		}
	}
	return false
}

func joinErrorMessages(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
