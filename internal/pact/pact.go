// Package pact loads consumer contracts in the pact JSON format (specification v2 and v3,
// HTTP interactions only) and verifies a running provider against them.
package pact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SpecificationVersion is written into the metadata of pact files produced by Write.
const SpecificationVersion = "3.0.0"

// ErrUnsupported is returned for pact files this package cannot verify.
var ErrUnsupported = errors.New("unsupported pact file")

// Pacticipant names one side of a contract.
type Pacticipant struct {
	Name string `json:"name"`
}

// Pact is a contract between one consumer and one provider.
type Pact struct {
	Consumer     Pacticipant    `json:"consumer"`
	Provider     Pacticipant    `json:"provider"`
	Interactions []Interaction  `json:"interactions"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	// Source is the file the pact was loaded from, if any.
	Source string `json:"-"`
}

// ProviderState is a named precondition the provider must be put in before an interaction.
type ProviderState struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Interaction is one request the consumer sends and the response it expects.
type Interaction struct {
	Description    string          `json:"description"`
	ProviderStates []ProviderState `json:"providerStates,omitempty"`
	Request        Request         `json:"request"`
	Response       Response        `json:"response"`
}

// Request is the request replayed against the provider.
type Request struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Query         url.Values        `json:"query,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          json.RawMessage   `json:"body,omitempty"`
	MatchingRules *Rules            `json:"matchingRules,omitempty"`
}

// Response is what the consumer expects back.
type Response struct {
	Status        int               `json:"status"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          json.RawMessage   `json:"body,omitempty"`
	MatchingRules *Rules            `json:"matchingRules,omitempty"`
}

// SpecVersion returns the pact specification version recorded in the metadata, or "".
func (p *Pact) SpecVersion() string {
	for _, key := range []string{"pactSpecification", "pact-specification", "pactSpecificationVersion"} {
		switch v := p.Metadata[key].(type) {
		case string:
			return v
		case map[string]any:
			if s, ok := v["version"].(string); ok {
				return s
			}
		}
	}
	return ""
}

type rawPact struct {
	Consumer     Pacticipant       `json:"consumer"`
	Provider     Pacticipant       `json:"provider"`
	Interactions []json.RawMessage `json:"interactions"`
	Messages     []json.RawMessage `json:"messages"`
	Metadata     map[string]any    `json:"metadata"`
}

// Parse decodes a pact document.
func Parse(data []byte) (*Pact, error) {
	var raw rawPact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode pact: %w", err)
	}

	p := &Pact{
		Consumer: raw.Consumer,
		Provider: raw.Provider,
		Metadata: raw.Metadata,
	}

	if strings.HasPrefix(p.SpecVersion(), "4") {
		return nil, fmt.Errorf("%w: specification %s", ErrUnsupported, p.SpecVersion())
	}
	if len(raw.Interactions) == 0 && len(raw.Messages) > 0 {
		return nil, fmt.Errorf("%w: message pacts are not supported", ErrUnsupported)
	}

	p.Interactions = make([]Interaction, 0, len(raw.Interactions))
	for i, rawInteraction := range raw.Interactions {
		var interaction Interaction
		if err := json.Unmarshal(rawInteraction, &interaction); err != nil {
			return nil, fmt.Errorf("interaction %d: %w", i, err)
		}
		p.Interactions = append(p.Interactions, interaction)
	}
	return p, nil
}

// Load reads one pact file.
func Load(path string) (*Pact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pact file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Source = path
	return p, nil
}

// LoadDir reads every *.json file in dir, in lexical order.
func LoadDir(dir string) ([]*Pact, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	pacts := make([]*Pact, 0, len(matches))
	for _, path := range matches {
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, p)
	}
	return pacts, nil
}

// LoadPaths loads each path as a file, or as a directory of pact files.
func LoadPaths(paths ...string) ([]*Pact, error) {
	var pacts []*Pact
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pact source: %w", err)
		}
		if info.IsDir() {
			dirPacts, err := LoadDir(path)
			if err != nil {
				return nil, err
			}
			pacts = append(pacts, dirPacts...)
			continue
		}
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, p)
	}
	return pacts, nil
}

// Marshal renders p as indented v3 JSON. Output is deterministic for a given pact.
func Marshal(p *Pact) ([]byte, error) {
	out := *p
	if out.Interactions == nil {
		out.Interactions = []Interaction{}
	}
	meta := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	meta["pactSpecification"] = map[string]any{"version": SpecificationVersion}
	out.Metadata = meta

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("failed to encode pact: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores p at path, creating parent directories as needed.
func Write(path string, p *Pact) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create pact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pact file: %w", err)
	}
	return nil
}

// FileName returns the conventional "<Consumer>-<Provider>.json" name.
func FileName(consumer, provider string) string {
	return consumer + "-" + provider + ".json"
}

// UnmarshalJSON accepts both the v2 "providerState" string and the v3 "providerStates" list.
func (i *Interaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type           string          `json:"type"`
		Description    string          `json:"description"`
		ProviderState  string          `json:"providerState"`
		ProviderStates []ProviderState `json:"providerStates"`
		Request        Request         `json:"request"`
		Response       Response        `json:"response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != "Synchronous/HTTP" {
		return fmt.Errorf("%w: interaction type %q", ErrUnsupported, raw.Type)
	}

	i.Description = raw.Description
	i.ProviderStates = raw.ProviderStates
	if len(i.ProviderStates) == 0 && raw.ProviderState != "" {
		i.ProviderStates = []ProviderState{{Name: raw.ProviderState}}
	}
	i.Request = raw.Request
	i.Response = raw.Response
	return nil
}

// UnmarshalJSON accepts a v2 query string or a v3 query map.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		Method        string                     `json:"method"`
		Path          string                     `json:"path"`
		Query         json.RawMessage            `json:"query"`
		Headers       map[string]json.RawMessage `json:"headers"`
		Body          json.RawMessage            `json:"body"`
		MatchingRules *Rules                     `json:"matchingRules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	query, err := parseQuery(raw.Query)
	if err != nil {
		return fmt.Errorf("request query: %w", err)
	}
	headers, err := parseHeaders(raw.Headers)
	if err != nil {
		return fmt.Errorf("request headers: %w", err)
	}

	r.Method = strings.ToUpper(raw.Method)
	r.Path = raw.Path
	if r.Path == "" {
		r.Path = "/"
	}
	r.Query = query
	r.Headers = headers
	r.Body = raw.Body
	r.MatchingRules = raw.MatchingRules
	return nil
}

// UnmarshalJSON accepts headers given as strings or string lists.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status        int                        `json:"status"`
		Headers       map[string]json.RawMessage `json:"headers"`
		Body          json.RawMessage            `json:"body"`
		MatchingRules *Rules                     `json:"matchingRules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	headers, err := parseHeaders(raw.Headers)
	if err != nil {
		return fmt.Errorf("response headers: %w", err)
	}

	r.Status = raw.Status
	if r.Status == 0 {
		r.Status = 200
	}
	r.Headers = headers
	r.Body = raw.Body
	r.MatchingRules = raw.MatchingRules
	return nil
}

func parseQuery(raw json.RawMessage) (url.Values, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return url.ParseQuery(s)
	}

	var multi map[string][]string
	if err := json.Unmarshal(raw, &multi); err == nil {
		return url.Values(multi), nil
	}

	var single map[string]string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("expected a string or an object, got %s", raw)
	}
	values := make(url.Values, len(single))
	for k, v := range single {
		values.Set(k, v)
	}
	return values, nil
}

func parseHeaders(raw map[string]json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for name, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			headers[name] = s
			continue
		}
		var list []string
		if err := json.Unmarshal(value, &list); err != nil {
			return nil, fmt.Errorf("header %s: expected a string or a list of strings", name)
		}
		headers[name] = strings.Join(list, ", ")
	}
	return headers, nil
}
