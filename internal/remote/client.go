package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"kds-display-backend/config"
)

// Client talks to the order-management API.
type Client struct {
	baseURL  string
	headers  map[string]string
	pageSize int
	client   *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a client from configuration. Requests are traced with
// otelhttp and throttled when a rate limit is configured.
func NewClient(cfg config.RemoteConfig) *Client {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Remote client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimitPerSec > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), burst)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		headers:  cfg.Headers,
		pageSize: pageSize,
		client: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   cfg.Timeout,
		},
		limiter: limiter,
	}
}

// do performs a single request. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/ld+json, application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	return nil
}

// page is one decoded collection response.
type page struct {
	items []any
	total int
	paged bool
}

// decodeCollection accepts a bare JSON array or an API Platform envelope.
func decodeCollection(v any) page {
	switch x := v.(type) {
	case []any:
		return page{items: x, total: len(x)}
	case map[string]any:
		var p page
		for _, key := range []string{"member", "hydra:member"} {
			if items, ok := x[key].([]any); ok {
				p.items = items
				break
			}
		}
		for _, key := range []string{"totalItems", "hydra:totalItems"} {
			if raw, ok := x[key]; ok {
				if n, err := strconv.Atoi(fmt.Sprint(raw)); err == nil {
					p.total = n
					p.paged = true
				}
				break
			}
		}
		return p
	default:
		return page{}
	}
}

// list fetches every page of a collection.
func (c *Client) list(ctx context.Context, path string, query url.Values) ([]any, error) {
	var all []any
	total := 1
	for pageNo := 1; (pageNo-1)*c.pageSize < total; pageNo++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("page", strconv.Itoa(pageNo))
		q.Set("itemsPerPage", strconv.Itoa(c.pageSize))

		var raw any
		if err := c.do(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
			return nil, err
		}
		p := decodeCollection(raw)
		all = append(all, p.items...)
		if !p.paged || p.total == 0 || len(p.items) == 0 {
			break
		}
		total = p.total
	}
	if all == nil {
		all = []any{}
	}
	return all, nil
}

// convert re-decodes loosely typed JSON values into T.
func convert[T any](items []any) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode collection item: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
