package quote

import (
	"context"
	"time"
)

// RequestInfo describes an outbound quote request.
type RequestInfo struct {
	Endpoint      string
	NumberOfItems int
}

// ResponseInfo describes the outcome of an outbound quote request.
// StatusCode is 0 when no response was received.
type ResponseInfo struct {
	Endpoint   string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hooks observe quote requests. Either function may be nil.
type Hooks struct {
	// OnRequestStart runs before the request is sent. The returned context is used for the request.
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context

	// OnRequestEnd runs once per request, after the body is parsed or the request failed.
	OnRequestEnd func(ctx context.Context, info ResponseInfo)
}

func (h Hooks) start(ctx context.Context, info RequestInfo) context.Context {
	if h.OnRequestStart == nil {
		return ctx
	}
	if next := h.OnRequestStart(ctx, info); next != nil {
		return next
	}
	return ctx
}

func (h Hooks) end(ctx context.Context, info ResponseInfo) {
	if h.OnRequestEnd != nil {
		h.OnRequestEnd(ctx, info)
	}
}
