// Package client talks to the back-office HTTP API on behalf of one session.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/session"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RetryWait time.Duration
}

// Client issues API calls with the session's bearer token. Transport
// failures are retried once; mutations carry an Idempotency-Key so the retry
// cannot apply twice.
//
// Cached reads are invalidated after every mutating call, whatever its
// outcome, and re-fetched on the next read.
type Client struct {
	http    *resty.Client
	session *session.Session
	logger  *zap.Logger

	mu    sync.Mutex
	gen   uint64
	cache map[string]cached
}

type cached struct {
	gen   uint64
	value any
}

func New(cfg Config, sess *session.Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(1).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			switch r.StatusCode() {
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return true
			}
			return false
		})
	logger.Info("back-office client initialized", zap.String("base_url", cfg.BaseURL))
	return &Client{http: httpClient, session: sess, logger: logger, cache: map[string]cached{}}
}

// Session returns the session the client acts for.
func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if tok := c.session.Tokens().Access; tok != "" {
		req.SetAuthToken(tok)
	}
	return req
}

// get fetches path into a fresh T.
func get[T any](ctx context.Context, c *Client, path string, query map[string]string) (T, error) {
	var out T
	resp, err := c.request(ctx).SetQueryParams(query).SetResult(&out).Get(path)
	if err := c.check("GET", path, resp, err); err != nil {
		return out, err
	}
	return out, nil
}

// mutate posts body to path with a fresh idempotency key and invalidates the
// read cache before returning.
func mutate[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	defer c.Invalidate()
	var out T
	resp, err := c.request(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(body).
		SetResult(&out).
		Post(path)
	if err := c.check("POST", path, resp, err); err != nil {
		return out, err
	}
	return out, nil
}

// post is an unauthenticated, non-idempotent call used by the auth routes.
func post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	resp, err := c.http.R().SetContext(ctx).SetError(&APIError{}).SetBody(body).SetResult(&out).Post(path)
	if err := c.check("POST", path, resp, err); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) check(method, path string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("api call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", domain.ErrTransportFailure, method, path, err)
	}
	if !resp.IsError() {
		return nil
	}
	switch resp.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s %s: status %d", domain.ErrTransportFailure, method, path, resp.StatusCode())
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	if apiErr.Status == 0 {
		apiErr.Status = resp.StatusCode()
	}
	if apiErr.Detail == "" {
		apiErr.Detail = strings.TrimSpace(string(resp.Body()))
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode())
	}
	c.logger.Debug("api call rejected",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", apiErr.Status),
		zap.String("detail", apiErr.Detail),
	)
	return apiErr
}

// Invalidate marks every cached read as stale.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

// cachedGet serves key from the cache when it is still current, otherwise
// calls fetch and stores the result.
func cachedGet[T any](c *Client, key string, fetch func() (T, error)) (T, error) {
	c.mu.Lock()
	entry, ok := c.cache[key]
	gen := c.gen
	c.mu.Unlock()
	if ok && entry.gen == gen {
		return entry.value.(T), nil
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.mu.Lock()
	// A mutation that finished during the fetch leaves this result stale.
	if c.gen == gen {
		c.cache[key] = cached{gen: gen, value: v}
	}
	c.mu.Unlock()
	return v, nil
}

func limitQuery(limit int) map[string]string {
	if limit <= 0 {
		return nil
	}
	return map[string]string{"limit": strconv.Itoa(limit)}
}

// IsTransportFailure reports whether err left the outcome of a call unknown.
func IsTransportFailure(err error) bool {
	return errors.Is(err, domain.ErrTransportFailure)
}
