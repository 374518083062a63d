package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/refutehq/refute/internal/logging"
	"github.com/refutehq/refute/internal/metrics"
	"golang.org/x/time/rate"
)

// DefaultQueryTimeout is applied when the caller's context carries no deadline.
const DefaultQueryTimeout = 30 * time.Second

// HTTPConfig configures the HTTP telemetry client.
type HTTPConfig struct {
	// BaseURL of the telemetry aggregation API (e.g. "http://telemetry:8080").
	BaseURL string
	// Timeout per query when the context has no deadline. Defaults to 30s.
	Timeout time.Duration
	// RatePerSecond limits outgoing queries. Zero disables limiting.
	RatePerSecond float64
	// Burst for the rate limiter. Defaults to 1 when rate limiting is on.
	Burst int
	// MetricCacheSize is the number of metric-range results cached.
	// Zero disables caching.
	MetricCacheSize int
}

// HTTPClient talks to the telemetry aggregation API. Metric range queries for
// a fixed window are immutable once the window has passed, so they are cached
// in a small LRU to spare the backend during repeated strategy runs.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	limiter     *rate.Limiter
	metricCache *lru.Cache[string, *MetricSeries]
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewHTTPClient creates a telemetry client with tuned connection pooling.
// The metrics sink may be nil.
func NewHTTPClient(cfg HTTPConfig, m *metrics.Metrics) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("telemetry base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueryTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 10, // default of 2 causes connection churn under strategy bursts
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	c := &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		timeout: cfg.Timeout,
		logger:  logging.GetLogger("telemetry"),
		metrics: m,
	}

	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	if cfg.MetricCacheSize > 0 {
		cache, err := lru.New[string, *MetricSeries](cfg.MetricCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric cache: %w", err)
		}
		c.metricCache = cache
	}

	return c, nil
}

// QueryMetricRange implements Client.
func (c *HTTPClient) QueryMetricRange(ctx context.Context, selector string, tr TimeRange) (*MetricSeries, error) {
	const op = "query_metric_range"

	if err := tr.Validate(); err != nil {
		return nil, &QueryFailure{Operation: op, Selector: selector, Err: err}
	}

	cacheKey := fmt.Sprintf("%s|%d|%d", selector, tr.Start.UnixMilli(), tr.End.UnixMilli())
	if c.metricCache != nil {
		if series, ok := c.metricCache.Get(cacheKey); ok {
			c.logger.Debug("metric cache hit for %s", selector)
			return series, nil
		}
	}

	q := url.Values{}
	q.Set("selector", selector)
	q.Set("start", strconv.FormatInt(tr.Start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(tr.End.UnixMilli(), 10))

	var series MetricSeries
	if err := c.getJSON(ctx, op, selector, "/v1/metrics/range", q, &series); err != nil {
		return nil, err
	}

	if c.metricCache != nil && tr.End.Before(time.Now()) {
		c.metricCache.Add(cacheKey, &series)
	}
	return &series, nil
}

// QueryAffectedEntityCount implements Client.
func (c *HTTPClient) QueryAffectedEntityCount(ctx context.Context, selector string, tr TimeRange) (int, error) {
	const op = "query_affected_entity_count"

	if err := tr.Validate(); err != nil {
		return 0, &QueryFailure{Operation: op, Selector: selector, Err: err}
	}

	q := url.Values{}
	q.Set("selector", selector)
	q.Set("start", strconv.FormatInt(tr.Start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(tr.End.UnixMilli(), 10))

	var result struct {
		Count int `json:"count"`
	}
	if err := c.getJSON(ctx, op, selector, "/v1/entities/affected", q, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// QueryLogOccurrences implements Client.
func (c *HTTPClient) QueryLogOccurrences(ctx context.Context, pattern string, tr TimeRange, limit int) ([]LogMatch, error) {
	const op = "query_log_occurrences"

	if err := tr.Validate(); err != nil {
		return nil, &QueryFailure{Operation: op, Selector: pattern, Err: err}
	}

	q := url.Values{}
	q.Set("pattern", pattern)
	q.Set("start", strconv.FormatInt(tr.Start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(tr.End.UnixMilli(), 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var result struct {
		Matches []LogMatch `json:"matches"`
	}
	if err := c.getJSON(ctx, op, pattern, "/v1/logs/search", q, &result); err != nil {
		return nil, err
	}
	return result.Matches, nil
}

// Ping checks that the telemetry API is reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry API unreachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telemetry API health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// getJSON issues a GET with rate limiting and an enforced deadline, decoding
// the JSON response. All failure modes become a *QueryFailure.
func (c *HTTPClient) getJSON(ctx context.Context, op, selector, path string, q url.Values, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.failure(op, selector, 0, err)
		}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.failure(op, selector, 0, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveQueryDuration(op, elapsed)
	}
	if err != nil {
		return c.failure(op, selector, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Read to completion so the connection can be reused.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(op, selector, 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("telemetry query failed: op=%s status=%d body=%s", op, resp.StatusCode, truncateBody(body))
		return c.failure(op, selector, resp.StatusCode, fmt.Errorf("%s", truncateBody(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.failure(op, selector, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *HTTPClient) failure(op, selector string, status int, err error) *QueryFailure {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if !timeout && errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	if c.metrics != nil {
		c.metrics.IncQueryFailure(op)
	}
	return &QueryFailure{
		Operation:  op,
		Selector:   selector,
		StatusCode: status,
		Timeout:    timeout,
		Err:        err,
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "...[truncated]"
	}
	return string(body)
}
