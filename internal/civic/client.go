// Package civic is a typed client for the civic-issues REST backend.
package civic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/pkg/middleware/requestid"
)

const defaultMaxResponseBytes = 8 << 20

// Observer receives timing for every backend call. status is 0 when the
// request never produced a response.
type Observer interface {
	ObserveUpstream(operation string, status int, duration time.Duration)
}

// Config tunes the client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observer   Observer
	Validator  *validator.Validate
	// MaxResponseBytes caps a response body; zero means 8 MiB.
	MaxResponseBytes int64
}

// Client calls the civic backend on behalf of an authenticated caller.
type Client struct {
	baseURL    string
	http       *http.Client
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
	observer   Observer
	validate   *validator.Validate
	maxBody    int64
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       cfg.HTTPClient,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		validate:   cfg.Validator,
		maxBody:    cfg.MaxResponseBytes,
	}
}

type call struct {
	op          string
	method      string
	path        string
	token       string
	body        []byte
	contentType string
}

// idempotent calls are retried on transport errors and 5xx answers.
func (c call) idempotent() bool {
	return c.method == http.MethodGet
}

// do executes the call and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	attempts := 1
	if req.idempotent() {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(time.Duration(attempt-1) * c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-timer.C:
			}
		}

		body, status, err := c.once(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if status > 0 && status < http.StatusInternalServerError {
			return nil, err
		}
		c.logger.Warn("civic call failed",
			zap.String("operation", req.op),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, req call) ([]byte, int, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.op, 0, time.Since(start))
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrUnavailable, req.op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	c.observe(req.op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: read body: %v", ErrUnavailable, req.op, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s: more than %d bytes", ErrResponseTooLarge, req.op, c.maxBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &APIError{Operation: req.op, Status: resp.StatusCode, Detail: parseDetail(body, resp.StatusCode)}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) observe(op string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(op, status, duration)
	}
}
