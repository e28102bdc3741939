// Package apiclient talks to the remote RBAC API on behalf of the console.
// Every call forwards the session's API tokens found in the request context.
package apiclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/rbac-console/rbac-console/internal/shared"
)

// Cookie names the remote API reads and sets.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Config tunes the HTTP client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Logging    bool
	RetryCount int
	RetryWait  time.Duration
}

// Observer receives one sample per remote call.
type Observer interface {
	ObserveAPICall(op string, status int, elapsed time.Duration)
}

// Client is the remote API client. It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	logger   *slog.Logger
	observer Observer
	logging  bool
}

// New constructs a Client. GETs are retried on 5xx and network errors; 4xx
// responses and mutations are never retried.
func New(cfg Config, logger *slog.Logger, observer Observer) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}

	c := &Client{logger: logger, observer: observer, logging: cfg.Logging}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait*8).
		AddRetryCondition(retryable).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		OnBeforeRequest(c.authorize)
	return c
}

func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode() >= http.StatusInternalServerError
}

func (c *Client) authorize(_ *resty.Client, req *resty.Request) error {
	ctx := req.Context()
	tokens := shared.TokensFromContext(ctx)
	if tokens.Access != "" {
		req.SetAuthToken(tokens.Access)
		req.SetCookie(&http.Cookie{Name: AccessTokenCookie, Value: tokens.Access})
	}
	if tokens.Refresh != "" {
		req.SetCookie(&http.Cookie{Name: RefreshTokenCookie, Value: tokens.Refresh})
	}
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.SetHeader(middleware.RequestIDHeader, reqID)
	return nil
}

// call describes one remote request. route is the path template and doubles
// as the metrics label.
type call struct {
	op     string
	method string
	route  string
	path   map[string]string
	query  url.Values
	body   any
}

type result[T any] struct {
	value   *T
	cookies []*http.Cookie
}

func send[T any](ctx context.Context, c *Client, cl call) (*T, error) {
	res, err := sendWithCookies[T](ctx, c, cl)
	if err != nil {
		return nil, err
	}
	return res.value, nil
}

func sendWithCookies[T any](ctx context.Context, c *Client, cl call) (result[T], error) {
	out := new(T)
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&errorBody{})
	if len(cl.path) > 0 {
		req.SetPathParams(cl.path)
	}
	if len(cl.query) > 0 {
		req.SetQueryParamsFromValues(cl.query)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	} else if cl.method != http.MethodGet && cl.method != http.MethodDelete {
		req.SetBody(struct{}{})
	}

	if c.logging {
		c.logger.DebugContext(ctx, "api request", slog.String("op", cl.op), slog.String("method", cl.method), slog.String("route", cl.route))
	}
	start := time.Now()
	resp, err := req.Execute(cl.method, cl.route)
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	if c.observer != nil {
		c.observer.ObserveAPICall(cl.op, status, time.Since(start))
	}

	if err != nil {
		c.logger.WarnContext(ctx, "api network error", slog.String("op", cl.op), slog.Any("error", err))
		return result[T]{}, networkError(err)
	}
	if resp.IsError() {
		apiErr := newAPIError(resp.StatusCode(), resp.Error(), resp.Body())
		if c.logging {
			c.logger.DebugContext(ctx, "api error", slog.String("op", cl.op), slog.Int("status", status), slog.String("message", apiErr.Message))
		}
		return result[T]{}, apiErr
	}
	if c.logging {
		c.logger.DebugContext(ctx, "api response", slog.String("op", cl.op), slog.Int("status", status), slog.Duration("elapsed", time.Since(start)))
	}
	return result[T]{value: out, cookies: resp.Cookies()}, nil
}

func id(name, value string) map[string]string {
	return map[string]string{name: value}
}
