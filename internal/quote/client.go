// Package quote implements the client for the pricing dependency that issues shipping quotes.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"shipping/internal/core"
	"shipping/internal/httpclient"
)

const (
	// Endpoint is the path appended to the configured address.
	Endpoint = "/getquote"

	maxBodyBytes = 64 << 10
	tracerName   = "shipping/internal/quote"
)

// Config holds the quote client configuration.
type Config struct {
	// Address is the base URL of the quote service, e.g. http://quote:8090
	Address string

	// ValuePath is an optional gjson path selecting the price in a JSON response body.
	ValuePath string
}

// Client calls the quote service. It sends exactly one request per GetQuote call.
type Client struct {
	config     Config
	httpClient *http.Client
	hooks      Hooks
	tracer     trace.Tracer
}

// New creates a quote client. A nil httpClient gets a client built from httpclient.DefaultConfig.
func New(config Config, httpClient *http.Client, hooks Hooks) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewHTTPClient(nil)
	}
	config.Address = strings.TrimRight(config.Address, "/")
	return &Client{
		config:     config,
		httpClient: httpClient,
		hooks:      hooks,
		tracer:     otel.Tracer(tracerName),
	}
}

// Address returns the configured base URL.
func (c *Client) Address() string {
	return c.config.Address
}

type quoteRequest struct {
	NumberOfItems int `json:"numberOfItems"`
}

// GetQuote asks the quote service for the price of shipping numberOfItems items.
//
// A transport failure, timeout, cancellation or non-2xx status is returned as an
// upstream_unavailable error; a body that is not a price is a malformed_response error.
func (c *Client) GetQuote(ctx context.Context, numberOfItems int) (core.Quote, error) {
	if numberOfItems < 0 {
		return core.Quote{}, core.NewInvalidRequestError("number of items must not be negative", nil)
	}

	ctx, span := c.tracer.Start(ctx, "quote.GetQuote",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("quote.address", c.config.Address),
			attribute.Int("quote.items", numberOfItems),
		),
	)
	defer span.End()

	ctx = c.hooks.start(ctx, RequestInfo{Endpoint: Endpoint, NumberOfItems: numberOfItems})
	started := time.Now()

	q, status, err := c.do(ctx, numberOfItems)

	c.hooks.end(ctx, ResponseInfo{
		Endpoint:   Endpoint,
		StatusCode: status,
		Duration:   time.Since(started),
		Err:        err,
	})

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return core.Quote{}, err
	}
	span.SetAttributes(attribute.String("quote.value", q.String()))
	return q, nil
}

func (c *Client) do(ctx context.Context, numberOfItems int) (core.Quote, int, error) {
	payload, err := json.Marshal(quoteRequest{NumberOfItems: numberOfItems})
	if err != nil {
		return core.Quote{}, 0, core.NewInvalidRequestError("failed to marshal quote request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Address+Endpoint, bytes.NewReader(payload))
	if err != nil {
		return core.Quote{}, 0, core.NewUpstreamUnavailableError("invalid quote service address", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain, application/json")
	if requestID := core.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Quote{}, 0, core.NewUpstreamUnavailableError("quote service request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return core.Quote{}, resp.StatusCode, core.NewUpstreamUnavailableError("failed to read quote response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Quote{}, resp.StatusCode, core.NewUpstreamUnavailableError(
			fmt.Sprintf("quote service returned status %d", resp.StatusCode), nil)
	}

	if len(body) > maxBodyBytes {
		return core.Quote{}, resp.StatusCode, core.NewMalformedResponseError(
			fmt.Sprintf("quote response exceeds %d bytes", maxBodyBytes), nil)
	}

	price, err := ParseQuote(body, c.config.ValuePath)
	if err != nil {
		return core.Quote{}, resp.StatusCode, core.NewMalformedResponseError("quote service returned an invalid price", err)
	}
	return core.NewQuote(price), resp.StatusCode, nil
}
