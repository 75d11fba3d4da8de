package pact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MismatchKind classifies a verification failure.
type MismatchKind string

const (
	MismatchStatus  MismatchKind = "status"
	MismatchHeader  MismatchKind = "header"
	MismatchBody    MismatchKind = "body"
	MismatchRequest MismatchKind = "request"
	MismatchRule    MismatchKind = "rule"
)

// Mismatch describes one difference between the expected and the actual response.
type Mismatch struct {
	Kind     MismatchKind `json:"kind"`
	Path     string       `json:"path,omitempty"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`
	Message  string       `json:"message,omitempty"`
}

func (m Mismatch) String() string {
	var b strings.Builder
	b.WriteString(string(m.Kind))
	if m.Path != "" {
		b.WriteString(" " + m.Path)
	}
	if m.Message != "" {
		b.WriteString(": " + m.Message)
	}
	if m.Expected != "" || m.Actual != "" {
		fmt.Fprintf(&b, " (expected %s, got %s)", m.Expected, m.Actual)
	}
	return b.String()
}

// CompareResponse checks an actual response against the expectation.
func CompareResponse(expected Response, status int, header http.Header, body []byte) []Mismatch {
	var out []Mismatch

	if status != expected.Status {
		out = append(out, Mismatch{
			Kind:     MismatchStatus,
			Expected: fmt.Sprint(expected.Status),
			Actual:   fmt.Sprint(status),
		})
	}

	var rules *Rules
	if !expected.MatchingRules.IsEmpty() {
		rules = expected.MatchingRules
	}

	out = append(out, compareHeaders(expected.Headers, rules, header)...)
	out = append(out, compareBody(expected, rules, header, body)...)
	return out
}

func compareHeaders(expected map[string]string, rules *Rules, actual http.Header) []Mismatch {
	var out []Mismatch
	for _, name := range sortedKeys(expected) {
		want := expected[name]
		values := actual.Values(name)
		if len(values) == 0 {
			out = append(out, Mismatch{Kind: MismatchHeader, Path: name, Message: "missing header", Expected: quote(want)})
			continue
		}
		got := strings.Join(values, ", ")

		if set, ok := headerRule(rules, name); ok {
			rule, err := compileRule(set)
			if err != nil {
				out = append(out, Mismatch{Kind: MismatchRule, Path: name, Message: err.Error()})
				continue
			}
			c := &comparer{kind: MismatchHeader}
			c.applyRule(nil, &rule, want, got)
			for _, m := range c.mismatches {
				m.Path = name
				out = append(out, m)
			}
			continue
		}

		if !headerValuesEqual(name, want, got) {
			out = append(out, Mismatch{Kind: MismatchHeader, Path: name, Expected: quote(want), Actual: quote(got)})
		}
	}
	return out
}

func headerRule(rules *Rules, name string) (RuleSet, bool) {
	if rules == nil {
		return RuleSet{}, false
	}
	for k, set := range rules.Header {
		if strings.EqualFold(k, name) {
			return set, true
		}
	}
	return RuleSet{}, false
}

func headerValuesEqual(name, want, got string) bool {
	if strings.EqualFold(name, "Content-Type") {
		return contentTypeEqual(want, got)
	}
	w := splitHeader(want)
	g := splitHeader(got)
	if len(w) != len(g) {
		return false
	}
	for i := range w {
		if w[i] != g[i] {
			return false
		}
	}
	return true
}

// contentTypeEqual compares media types; parameters are compared only if the expectation names them.
func contentTypeEqual(want, got string) bool {
	wantType, wantParams, err := mime.ParseMediaType(want)
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
	}
	gotType, gotParams, err := mime.ParseMediaType(got)
	if err != nil || wantType != gotType {
		return false
	}
	for k, v := range wantParams {
		if !strings.EqualFold(gotParams[k], v) {
			return false
		}
	}
	return true
}

func splitHeader(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func expectedContentType(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return v
		}
	}
	return ""
}

func compareBody(expected Response, rules *Rules, header http.Header, body []byte) []Mismatch {
	if expected.Body == nil {
		return nil
	}

	want, err := decodeJSON(expected.Body)
	if err != nil {
		return []Mismatch{{Kind: MismatchBody, Message: "expected body is not valid JSON: " + err.Error()}}
	}

	var idx ruleIndex
	if rules != nil {
		if idx, err = compileBodyRules(rules.Body); err != nil {
			return []Mismatch{{Kind: MismatchRule, Message: err.Error()}}
		}
	}
	c := &comparer{kind: MismatchBody, rules: idx}

	wantCT := expectedContentType(expected.Headers)
	gotCT := header.Get("Content-Type")
	_, wantIsString := want.(string)
	jsonBody := isJSONContentType(wantCT) || (wantCT == "" && (!wantIsString || isJSONContentType(gotCT)))

	if !jsonBody {
		// A plain-text body is stored as a JSON string.
		text, ok := want.(string)
		if !ok {
			return []Mismatch{{Kind: MismatchBody, Message: "non-JSON content type with a non-string expected body"}}
		}
		if rule := idx.lookup(nil); rule != nil {
			c.applyRule(nil, rule, text, string(body))
		} else if text != string(body) {
			c.add(nil, quote(text), quote(string(body)), "")
		}
		return c.mismatches
	}

	got, err := decodeJSON(body)
	if err != nil {
		return []Mismatch{{Kind: MismatchBody, Path: "$", Message: "actual body is not valid JSON", Actual: quote(truncate(string(body), 200))}}
	}
	c.compare(nil, want, got, false)
	return c.mismatches
}

var errTrailingData = errors.New("trailing data after JSON value")

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

type comparer struct {
	kind       MismatchKind
	rules      ruleIndex
	mismatches []Mismatch
}

func (c *comparer) add(path []segment, expected, actual, message string) {
	m := Mismatch{Kind: c.kind, Expected: expected, Actual: actual, Message: message}
	if c.kind == MismatchBody {
		m.Path = formatPath(path)
	}
	c.mismatches = append(c.mismatches, m)
}

// compare walks want and got. In typeMode only JSON kinds must agree, which is how a
// "type" matcher cascades to the children of the node it is attached to.
func (c *comparer) compare(path []segment, want, got any, typeMode bool) {
	if rule := c.rules.lookup(path); rule != nil {
		c.applyRule(path, rule, want, got)
		return
	}

	if kindOf(want) != kindOf(got) {
		c.add(path, describe(want), describe(got), "type mismatch")
		return
	}

	switch w := want.(type) {
	case map[string]any:
		g := got.(map[string]any)
		for _, k := range sortedKeys(w) {
			child := append(clonePath(path), segment(k))
			gv, ok := g[k]
			if !ok {
				c.add(child, describe(w[k]), "", "missing key")
				continue
			}
			c.compare(child, w[k], gv, typeMode)
		}
	case []any:
		g := got.([]any)
		if typeMode {
			c.compareElements(path, w, g, true)
			return
		}
		if len(w) != len(g) {
			c.add(path, fmt.Sprintf("%d elements", len(w)), fmt.Sprintf("%d elements", len(g)), "array length mismatch")
			return
		}
		for i := range w {
			c.compare(append(clonePath(path), indexSegment(i)), w[i], g[i], false)
		}
	default:
		if typeMode {
			return
		}
		if !scalarEqual(want, got) {
			c.add(path, describe(want), describe(got), "")
		}
	}
}

// compareElements matches every actual element against the expected template at the same
// position, or the last template when the actual array is longer.
func (c *comparer) compareElements(path []segment, want, got []any, typeMode bool) {
	if len(want) == 0 {
		return
	}
	for i := range got {
		tmpl := want[min(i, len(want)-1)]
		c.compare(append(clonePath(path), indexSegment(i)), tmpl, got[i], typeMode)
	}
}

func (c *comparer) applyRule(path []segment, rule *compiledRule, want, got any) {
	if rule.set.Combine == "OR" {
		var first []Mismatch
		for i := range rule.set.Matchers {
			trial := &comparer{kind: c.kind, rules: c.rules}
			trial.applyMatcher(path, rule, i, want, got)
			if len(trial.mismatches) == 0 {
				return
			}
			if first == nil {
				first = trial.mismatches
			}
		}
		c.mismatches = append(c.mismatches, first...)
		return
	}
	for i := range rule.set.Matchers {
		c.applyMatcher(path, rule, i, want, got)
	}
}

func (c *comparer) applyMatcher(path []segment, rule *compiledRule, i int, want, got any) {
	m := rule.set.Matchers[i]
	switch m.Match {
	case MatchType:
		if kindOf(want) != kindOf(got) {
			c.add(path, kindOf(want), kindOf(got), "type mismatch")
			return
		}
		switch w := want.(type) {
		case []any:
			g := got.([]any)
			if m.Min != nil && len(g) < *m.Min {
				c.add(path, fmt.Sprintf("at least %d elements", *m.Min), fmt.Sprintf("%d elements", len(g)), "")
			}
			if m.Max != nil && len(g) > *m.Max {
				c.add(path, fmt.Sprintf("at most %d elements", *m.Max), fmt.Sprintf("%d elements", len(g)), "")
			}
			c.compareElements(path, w, g, true)
		case map[string]any:
			c.compareChildren(path, w, got.(map[string]any))
		}

	case MatchEquality:
		// Equality resets cascaded type matching for the whole subtree.
		sub := &comparer{kind: c.kind}
		sub.compare(path, want, got, false)
		c.mismatches = append(c.mismatches, sub.mismatches...)

	case MatchRegex:
		s, ok := scalarString(got)
		if !ok || !rule.regex[i].MatchString(s) {
			c.add(path, "/"+m.Regex+"/", describe(got), "regex mismatch")
		}

	case MatchInclude:
		s, ok := scalarString(got)
		if !ok || !strings.Contains(s, m.Value) {
			c.add(path, "to include "+quote(m.Value), describe(got), "")
		}

	case MatchInteger, MatchDecimal, MatchNumber:
		n, ok := got.(json.Number)
		if !ok {
			c.add(path, m.Match, describe(got), "type mismatch")
			return
		}
		hasPoint := strings.ContainsAny(n.String(), ".eE")
		if m.Match == MatchInteger && hasPoint {
			c.add(path, "an integer", n.String(), "")
		}
		if m.Match == MatchDecimal && !hasPoint {
			c.add(path, "a decimal", n.String(), "")
		}

	case MatchBoolean:
		if _, ok := got.(bool); !ok {
			c.add(path, "a boolean", describe(got), "type mismatch")
		}

	case MatchNull:
		if got != nil {
			c.add(path, "null", describe(got), "")
		}

	default:
		c.mismatches = append(c.mismatches, Mismatch{Kind: MismatchRule, Path: formatPath(path), Message: "unsupported matcher " + quote(m.Match)})
	}
}

// compareChildren descends into an object matched by type, so that nested rules still apply.
func (c *comparer) compareChildren(path []segment, want, got map[string]any) {
	for _, k := range sortedKeys(want) {
		child := append(clonePath(path), segment(k))
		gv, ok := got[k]
		if !ok {
			c.add(child, describe(want[k]), "", "missing key")
			continue
		}
		c.compare(child, want[k], gv, true)
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func scalarEqual(want, got any) bool {
	switch w := want.(type) {
	case json.Number:
		g, ok := got.(json.Number)
		if !ok {
			return false
		}
		wd, err1 := decimal.NewFromString(w.String())
		gd, err2 := decimal.NewFromString(g.String())
		if err1 != nil || err2 != nil {
			return w == g
		}
		return wd.Equal(gd)
	default:
		return want == got
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

func describe(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return truncate(string(b), 120)
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clonePath(path []segment) []segment {
	out := make([]segment, len(path), len(path)+1)
	copy(out, path)
	return out
}

// MatchesRegex reports whether s fully matches pattern, as a regex matcher would.
func MatchesRegex(pattern, s string) (bool, error) {
	re, err := regexp.Compile(anchor(pattern))
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}
