// Package main records the responses of a running shipping service into a pact file.
// Usage:
//
//	go run ./cmd/recordpact \
//	  -base-url=http://localhost:8080 \
//	  -output=tests/contract/testdata/pacts
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shipping/internal/pact"
)

// trackingIDPattern matches the UUIDs returned by ship-order.
const trackingIDPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

var sampleAddress = map[string]string{
	"street_address": "1600 Amphitheatre Parkway",
	"city":           "Mountain View",
	"state":          "CA",
	"country":        "United States",
	"zip_code":       "94043",
}

var sampleItems = []map[string]any{
	{"product_id": "OLJCESPC7Z", "quantity": 1},
	{"product_id": "66VCHSJNUP", "quantity": 2},
}

// Endpoint configurations
type endpointConfig struct {
	description string
	state       string
	method      string
	path        string
	query       string
	requestBody any
	rules       func(body []byte) (*pact.Rules, error)
}

var endpointConfigs = map[string]endpointConfig{
	"get_quote": {
		description: "a plain-text quote for three items",
		state:       "the quote service prices every cart at 5.99",
		method:      http.MethodGet,
		path:        "/get-quote",
		query:       "items=3",
	},
	"get_quote_money": {
		description: "a structured quote for a cart",
		state:       "the quote service prices every cart at 5.99",
		method:      http.MethodPost,
		path:        "/get-quote",
		requestBody: map[string]any{"address": sampleAddress, "items": sampleItems},
	},
	"ship_order": {
		description: "shipping a valid order",
		method:      http.MethodPost,
		path:        "/ship-order",
		requestBody: map[string]any{"address": sampleAddress, "items": sampleItems},
		rules:       trackingIDRules,
	},
	"ship_order_invalid": {
		description: "shipping an order without items",
		method:      http.MethodPost,
		path:        "/ship-order",
		requestBody: map[string]any{"address": sampleAddress, "items": []any{}},
	},
	"health": {
		description: "a health check",
		method:      http.MethodGet,
		path:        "/health",
	},
}

var defaultEndpoints = []string{"get_quote", "get_quote_money", "ship_order", "ship_order_invalid", "health"}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "Base URL of the running shipping service")
	output := flag.String("output", "", "Output pact file, or a directory for <Consumer>-<Provider>.json (required)")
	consumer := flag.String("consumer", "Frontend", "Consumer name")
	provider := flag.String("provider", "ShippingService", "Provider name")
	endpoints := flag.String("endpoint", strings.Join(defaultEndpoints, ","), "Comma-separated endpoints to record")
	apiKey := flag.String("api-key", os.Getenv("SHIPPING_MASTER_KEY"), "Master key sent as a bearer token")
	flag.Parse()

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: -output flag is required")
		flag.Usage()
		os.Exit(1)
	}

	names := strings.Split(*endpoints, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
		if _, ok := endpointConfigs[names[i]]; !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown endpoint %q\n", names[i])
			os.Exit(1)
		}
	}

	r := &recorder{
		baseURL: strings.TrimRight(*baseURL, "/"),
		apiKey:  *apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	p := &pact.Pact{
		Consumer: pact.Pacticipant{Name: *consumer},
		Provider: pact.Pacticipant{Name: *provider},
	}
	for _, name := range names {
		fmt.Printf("Recording %s...\n", name)
		interaction, err := r.record(context.Background(), endpointConfigs[name])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error recording %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Response status: %d\n", interaction.Response.Status)
		p.Interactions = append(p.Interactions, interaction)
	}

	path := outputPath(*output, p)
	if err := pact.Write(path, p); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Pact with %d interactions saved to %s\n", len(p.Interactions), path)
}

// outputPath treats an existing directory or a path without a .json suffix as a directory.
func outputPath(output string, p *pact.Pact) string {
	if info, err := os.Stat(output); (err == nil && info.IsDir()) || !strings.HasSuffix(output, ".json") {
		return filepath.Join(output, pact.FileName(p.Consumer.Name, p.Provider.Name))
	}
	return output
}

type recorder struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// record calls the endpoint and turns the exchange into an interaction.
func (r *recorder) record(ctx context.Context, cfg endpointConfig) (pact.Interaction, error) {
	req := pact.Request{Method: cfg.method, Path: cfg.path}

	var bodyReader io.Reader
	if cfg.requestBody != nil {
		bodyBytes, err := json.Marshal(cfg.requestBody)
		if err != nil {
			return pact.Interaction{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = bodyBytes
		req.Headers = map[string]string{"Content-Type": "application/json"}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	target := r.baseURL + cfg.path
	if cfg.query != "" {
		target += "?" + cfg.query
		q, err := url.ParseQuery(cfg.query)
		if err != nil {
			return pact.Interaction{}, err
		}
		req.Query = q
	}

	httpReq, err := http.NewRequestWithContext(ctx, cfg.method, target, bodyReader)
	if err != nil {
		return pact.Interaction{}, fmt.Errorf("failed to create request: %w", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return pact.Interaction{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pact.Interaction{}, fmt.Errorf("failed to read response: %w", err)
	}

	response, err := recordedResponse(resp, body)
	if err != nil {
		return pact.Interaction{}, err
	}
	if cfg.rules != nil && resp.StatusCode < 300 {
		rules, err := cfg.rules(body)
		if err != nil {
			return pact.Interaction{}, err
		}
		response.MatchingRules = rules
	}

	interaction := pact.Interaction{
		Description: cfg.description,
		Request:     req,
		Response:    response,
	}
	if cfg.state != "" {
		interaction.ProviderStates = []pact.ProviderState{{Name: cfg.state}}
	}
	return interaction, nil
}

// recordedResponse keeps the status, the Content-Type header and the body. A non-JSON body is
// stored as a JSON string.
func recordedResponse(resp *http.Response, body []byte) (pact.Response, error) {
	out := pact.Response{Status: resp.StatusCode}

	ct := resp.Header.Get("Content-Type")
	if ct != "" {
		out.Headers = map[string]string{"Content-Type": ct}
	}
	if len(body) == 0 {
		return out, nil
	}

	if strings.Contains(ct, "json") && json.Valid(body) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err != nil {
			return out, fmt.Errorf("failed to compact response body: %w", err)
		}
		out.Body = compact.Bytes()
		return out, nil
	}

	encoded, err := json.Marshal(string(body))
	if err != nil {
		return out, fmt.Errorf("failed to encode response body: %w", err)
	}
	out.Body = encoded
	return out, nil
}

// trackingIDRules replaces the exact tracking id with a regex rule after checking the
// recorded value satisfies it.
func trackingIDRules(body []byte) (*pact.Rules, error) {
	var confirmation struct {
		TrackingID string `json:"tracking_id"`
	}
	if err := json.Unmarshal(body, &confirmation); err != nil {
		return nil, fmt.Errorf("failed to decode shipment confirmation: %w", err)
	}
	ok, err := pact.MatchesRegex(trackingIDPattern, confirmation.TrackingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("recorded tracking_id " + confirmation.TrackingID + " is not a UUID")
	}

	rules := &pact.Rules{}
	rules.AddBody("$.tracking_id", pact.Matcher{Match: pact.MatchRegex, Regex: trackingIDPattern})
	return rules, nil
}
