// Package upstream fetches record arrays from the CRM and inventory HTTP
// sources.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/event"
	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 512

type Config struct {
	// Name labels logs and metrics, e.g. "crm".
	Name    string
	BaseURL string
	Path    string
	Timeout time.Duration
	Retry   RetryPolicy
	// Transport defaults to http.DefaultTransport; it is always wrapped by otelhttp.
	Transport http.RoundTripper
}

type Client struct {
	name   string
	url    string
	http   *http.Client
	retry  RetryPolicy
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		name: cfg.Name,
		url:  strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Path, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		retry:  cfg.Retry.withDefaults(),
		logger: logger,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) URL() string { return c.url }

// Fetch GETs the configured URL and decodes a JSON array of objects. Every
// failure kind (transport, status, decode) is retried, 4xx included; see the
// retry notes in DESIGN.md.
func (c *Client) Fetch(ctx context.Context) ([]event.Record, error) {
	ctx, span := otel.Tracer("upstream").Start(ctx, "upstream.fetch",
		trace.WithAttributes(
			attribute.String("upstream.source", c.name),
			attribute.String("url.full", c.url),
		),
	)
	defer span.End()

	attempts := 0
	records, err := backoff.Retry(ctx, func() ([]event.Record, error) {
		attempts++
		c.logger.Info("fetching records", "source", c.name, "url", c.url, "attempt", attempts)
		records, err := c.fetchOnce(ctx)
		metrics.ObserveUpstreamAttempt(c.name, err)
		return records, err
	},
		backoff.WithBackOff(c.retry.backOff()),
		backoff.WithMaxTries(uint(c.retry.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("upstream fetch failed, retrying",
				"source", c.name,
				"url", c.url,
				"attempt", attempts,
				"retry_in", next.String(),
				"err", err,
			)
		}),
	)
	span.SetAttributes(attribute.Int("upstream.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, &UpstreamError{Source: c.name, URL: c.url, Attempts: attempts, Err: err}
	}

	metrics.AddUpstreamRecords(c.name, len(records))
	span.SetAttributes(attribute.Int("upstream.records", len(records)))
	return records, nil
}

func (c *Client) fetchOnce(ctx context.Context) ([]event.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []event.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}
