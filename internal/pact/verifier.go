package pact

import (
	"bytes"
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
)

// DefaultRequestTimeout bounds each replayed request when Options.RequestTimeout is zero.
const DefaultRequestTimeout = 5 * time.Second

const maxResponseBytes = 10 << 20

// ErrNoPacts is returned by Verify when there is nothing to verify and Options.NoPactsIsError is set.
var ErrNoPacts = errors.New("no pacts to verify")

// StateHandler puts the provider into (setup=true) or out of (setup=false) a provider state.
type StateHandler func(ctx context.Context, state ProviderState, setup bool) error

// NoopStateHandler accepts every provider state without doing anything.
func NoopStateHandler(context.Context, ProviderState, bool) error { return nil }

// Options tune verification.
type Options struct {
	// RequestTimeout bounds each replayed request (default 5s).
	RequestTimeout time.Duration

	// CustomHeaders are added to every request, replacing recorded values.
	CustomHeaders map[string]string

	// RequestFilter may rewrite each request just before it is sent.
	RequestFilter func(*http.Request)

	// StateHandler is called around interactions that declare provider states.
	// A nil handler treats every state as satisfied.
	StateHandler StateHandler

	// NoPactsIsError makes Verify fail when no interactions were supplied.
	NoPactsIsError bool

	// ExitOnFirstFailure stops verification after the first failing interaction.
	ExitOnFirstFailure bool
}

// Verifier replays pact interactions against a provider.
type Verifier struct {
	// BaseURL is the provider root, e.g. http://localhost:8080
	BaseURL string

	// HTTPClient sends requests. Use HandlerTransport to verify an http.Handler in process.
	HTTPClient *http.Client

	Options Options
}

// InteractionResult is the outcome of one interaction.
type InteractionResult struct {
	Consumer    string        `json:"consumer"`
	Provider    string        `json:"provider"`
	Description string        `json:"description"`
	States      []string      `json:"states,omitempty"`
	Mismatches  []Mismatch    `json:"mismatches,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Passed reports whether the interaction verified cleanly.
func (r InteractionResult) Passed() bool {
	return r.Error == "" && len(r.Mismatches) == 0
}

// Result collects every interaction outcome.
type Result struct {
	Interactions []InteractionResult `json:"interactions"`
}

// Passed reports whether every verified interaction passed.
func (r *Result) Passed() bool {
	for _, i := range r.Interactions {
		if !i.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the failing interactions.
func (r *Result) Failed() []InteractionResult {
	var out []InteractionResult
	for _, i := range r.Interactions {
		if !i.Passed() {
			out = append(out, i)
		}
	}
	return out
}

// Summary is a one-line count, e.g. "3 interactions, 1 failed".
func (r *Result) Summary() string {
	return fmt.Sprintf("%d interactions, %d failed", len(r.Interactions), len(r.Failed()))
}

// Verify replays every interaction of every pact in order. The returned error is reserved
// for setup problems; interaction failures are reported in the Result.
func (v *Verifier) Verify(ctx context.Context, pacts ...*Pact) (*Result, error) {
	base, err := url.Parse(strings.TrimRight(v.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid provider base URL %q", v.BaseURL)
	}

	total := 0
	for _, p := range pacts {
		total += len(p.Interactions)
	}
	if total == 0 && v.Options.NoPactsIsError {
		return nil, ErrNoPacts
	}

	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	result := &Result{Interactions: make([]InteractionResult, 0, total)}
	for _, p := range pacts {
		for _, interaction := range p.Interactions {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			ir := v.verifyInteraction(ctx, client, base, p, interaction)
			result.Interactions = append(result.Interactions, ir)

			logAttrs := []any{
				"consumer", ir.Consumer,
				"provider", ir.Provider,
				"interaction", ir.Description,
				"duration", ir.Duration,
			}
			if ir.Passed() {
				slog.Debug("interaction verified", logAttrs...)
				continue
			}
			slog.Debug("interaction failed", append(logAttrs, "mismatches", len(ir.Mismatches), "error", ir.Error)...)
			if v.Options.ExitOnFirstFailure {
				return result, nil
			}
		}
	}
	return result, nil
}

func (v *Verifier) verifyInteraction(ctx context.Context, client *http.Client, base *url.URL, p *Pact, interaction Interaction) InteractionResult {
	start := time.Now()
	ir := InteractionResult{
		Consumer:    p.Consumer.Name,
		Provider:    p.Provider.Name,
		Description: interaction.Description,
	}
	for _, s := range interaction.ProviderStates {
		ir.States = append(ir.States, s.Name)
	}
	handler := v.Options.StateHandler
	if handler == nil {
		handler = NoopStateHandler
	}
	// Only states whose setup succeeded are torn down, in reverse order.
	var setUp []ProviderState
	defer func() {
		for i := len(setUp) - 1; i >= 0; i-- {
			if err := handler(ctx, setUp[i], false); err != nil {
				slog.Warn("provider state teardown failed", "state", setUp[i].Name, "error", err)
			}
		}
	}()
	for _, state := range interaction.ProviderStates {
		if err := handler(ctx, state, true); err != nil {
			ir.Error = fmt.Sprintf("provider state %q setup failed: %v", state.Name, err)
			ir.Duration = time.Since(start)
			return ir
		}
		setUp = append(setUp, state)
	}

	timeout := v.Options.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := v.buildRequest(reqCtx, base, interaction.Request)
	if err != nil {
		ir.Mismatches = append(ir.Mismatches, Mismatch{Kind: MismatchRequest, Message: err.Error()})
		ir.Duration = time.Since(start)
		return ir
	}

	resp, err := client.Do(req)
	if err != nil {
		ir.Error = fmt.Sprintf("request failed: %v", err)
		ir.Duration = time.Since(start)
		return ir
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		ir.Error = fmt.Sprintf("failed to read response body: %v", err)
		ir.Duration = time.Since(start)
		return ir
	}

	ir.Mismatches = CompareResponse(interaction.Response, resp.StatusCode, resp.Header, body)
	ir.Duration = time.Since(start)
	return ir
}

func (v *Verifier) buildRequest(ctx context.Context, base *url.URL, r Request) (*http.Request, error) {
	target := *base
	target.Path = base.Path + r.Path
	target.RawQuery = r.Query.Encode()

	body, contentType, err := requestBody(r)
	if err != nil {
		return nil, err
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body == nil {
		req.Body = http.NoBody
		req.ContentLength = 0
	}

	for name, value := range r.Headers {
		req.Header.Set(name, value)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range v.Options.CustomHeaders {
		req.Header.Set(name, value)
	}
	if v.Options.RequestFilter != nil {
		v.Options.RequestFilter(req)
	}
	return req, nil
}

// requestBody returns the bytes to send and a default content type.
func requestBody(r Request) ([]byte, string, error) {
	if r.Body == nil {
		return nil, "", nil
	}

	ct := ""
	for name, value := range r.Headers {
		if strings.EqualFold(name, "Content-Type") {
			ct = value
		}
	}

	var s string
	if !isJSONContentType(ct) && json.Unmarshal(r.Body, &s) == nil {
		// Text bodies are stored as JSON strings
		return []byte(s), "text/plain", nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, r.Body); err != nil {
		return nil, "", fmt.Errorf("request body is not valid JSON: %w", err)
	}
	return compact.Bytes(), "application/json", nil
}
