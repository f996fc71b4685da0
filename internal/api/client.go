// Package api is a client for the Tawhiri balloon trajectory prediction service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultURL       = "https://api.v2.sondehub.org/tawhiri"
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "flightpath"

	maxBodyBytes = 16 << 20
)

// ClientOptions configures a Client. Zero values fall back to defaults.
type ClientOptions struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	MaxInFlight int64
	Cache       *Cache
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client sends prediction requests. It is safe for concurrent use.
type Client struct {
	baseURL   string
	timeout   time.Duration
	userAgent string
	http      *http.Client
	cache     *Cache
	inFlight  *semaphore.Weighted
	logger    *slog.Logger
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https: %q", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
		cache:     opts.Cache,
		logger:    opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxInFlight > 0 {
		c.inFlight = semaphore.NewWeighted(opts.MaxInFlight)
	}
	return c, nil
}

// Predict sends one request and waits at most the configured timeout for the
// answer. Time spent waiting for an in-flight slot does not count against it.
func (c *Client) Predict(ctx context.Context, p Params) (*Prediction, error) {
	query := p.Values().Encode()
	if cached, ok := c.cache.Get(query); ok {
		c.logger.Debug("prediction_cache_hit", "launch_datetime", p.LaunchDatetime)
		return cached, nil
	}

	if c.inFlight != nil {
		if err := c.inFlight.Acquire(ctx, 1); err != nil {
			return nil, &Error{Kind: KindTransport, Err: err}
		}
		defer c.inFlight.Release(1)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.baseURL+"/?"+query, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, err)
	}

	c.logger.Debug("prediction_response",
		"launch_datetime", p.LaunchDatetime,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(resp.StatusCode, body)
	}

	prediction, err := decodePrediction(body)
	if err != nil {
		return nil, err
	}
	c.cache.Add(query, prediction)
	return prediction, nil
}

func (c *Client) transportError(parent, attempt context.Context, err error) error {
	if parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindTransport, Err: err}
}

func serverError(status int, body []byte) error {
	apiErr := &Error{Kind: KindServer, StatusCode: status}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		apiErr.Type = env.Error.Type
		apiErr.Description = env.Error.Description
	}
	return apiErr
}

func decodePrediction(body []byte) (*Prediction, error) {
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return nil, &Error{
			Kind:        KindServer,
			StatusCode:  http.StatusOK,
			Type:        env.Error.Type,
			Description: env.Error.Description,
		}
	}

	var p Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &Error{Kind: KindDecode, Err: fmt.Errorf("decode prediction: %w", err)}
	}
	if len(p.Points()) == 0 {
		return nil, &Error{Kind: KindDecode, Err: ErrEmptyPayload}
	}
	return &p, nil
}
