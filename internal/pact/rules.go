package pact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Matcher kinds.
const (
	MatchType     = "type"
	MatchRegex    = "regex"
	MatchInteger  = "integer"
	MatchDecimal  = "decimal"
	MatchNumber   = "number"
	MatchInclude  = "include"
	MatchEquality = "equality"
	MatchBoolean  = "boolean"
	MatchNull     = "null"
)

// Matcher is one matching rule.
type Matcher struct {
	Match string `json:"match"`
	Regex string `json:"regex,omitempty"`
	Min   *int   `json:"min,omitempty"`
	Max   *int   `json:"max,omitempty"`
	Value string `json:"value,omitempty"`
}

// RuleSet is the list of matchers applied to one location.
type RuleSet struct {
	Matchers []Matcher `json:"matchers"`
	Combine  string    `json:"combine,omitempty"` // AND (default) or OR
}

// Rules holds matching rules by category. Body keys are JSON paths rooted at "$";
// header and query keys are names.
type Rules struct {
	Body   map[string]RuleSet `json:"body,omitempty"`
	Header map[string]RuleSet `json:"header,omitempty"`
	Query  map[string]RuleSet `json:"query,omitempty"`
}

// IsEmpty reports whether no rules are defined.
func (r *Rules) IsEmpty() bool {
	return r == nil || (len(r.Body) == 0 && len(r.Header) == 0 && len(r.Query) == 0)
}

// AddBody adds matchers for a body path such as "$.tracking_id".
func (r *Rules) AddBody(path string, matchers ...Matcher) {
	if r.Body == nil {
		r.Body = make(map[string]RuleSet)
	}
	r.Body[path] = RuleSet{Matchers: matchers, Combine: "AND"}
}

// AddHeader adds matchers for a header.
func (r *Rules) AddHeader(name string, matchers ...Matcher) {
	if r.Header == nil {
		r.Header = make(map[string]RuleSet)
	}
	r.Header[name] = RuleSet{Matchers: matchers, Combine: "AND"}
}

// UnmarshalJSON accepts the v2 flat form ({"$.body.x": {"match": "type"}}) and the
// v3 categorised form ({"body": {"$.x": {"matchers": [...]}}}).
func (r *Rules) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("matching rules: %w", err)
	}

	for key := range raw {
		if strings.HasPrefix(key, "$") {
			return r.unmarshalV2(raw)
		}
	}
	return r.unmarshalV3(raw)
}

func (r *Rules) unmarshalV2(raw map[string]json.RawMessage) error {
	for key, value := range raw {
		var m Matcher
		if err := json.Unmarshal(value, &m); err != nil {
			return fmt.Errorf("matching rule %s: %w", key, err)
		}
		normalizeMatcher(&m)
		set := RuleSet{Matchers: []Matcher{m}, Combine: "AND"}

		switch {
		case key == "$.body":
			r.setBody("$", set)
		case strings.HasPrefix(key, "$.body"):
			r.setBody("$"+strings.TrimPrefix(key, "$.body"), set)
		case strings.HasPrefix(key, "$.headers."), strings.HasPrefix(key, "$.header."):
			name := key[strings.Index(key[2:], ".")+3:]
			if r.Header == nil {
				r.Header = make(map[string]RuleSet)
			}
			r.Header[trimBracketName(name)] = set
		case strings.HasPrefix(key, "$.query."):
			if r.Query == nil {
				r.Query = make(map[string]RuleSet)
			}
			r.Query[trimBracketName(strings.TrimPrefix(key, "$.query."))] = set
		}
	}
	return nil
}

func (r *Rules) unmarshalV3(raw map[string]json.RawMessage) error {
	targets := map[string]*map[string]RuleSet{
		"body":   &r.Body,
		"header": &r.Header,
		"query":  &r.Query,
	}
	for category, value := range raw {
		target, ok := targets[category]
		if !ok {
			// path and status rules are not verified
			continue
		}
		var sets map[string]RuleSet
		if err := json.Unmarshal(value, &sets); err != nil {
			return fmt.Errorf("matching rules %s: %w", category, err)
		}
		for key, set := range sets {
			for i := range set.Matchers {
				normalizeMatcher(&set.Matchers[i])
			}
			if set.Combine == "" {
				set.Combine = "AND"
			}
			if *target == nil {
				*target = make(map[string]RuleSet)
			}
			(*target)[key] = set
		}
	}
	return nil
}

func (r *Rules) setBody(path string, set RuleSet) {
	if r.Body == nil {
		r.Body = make(map[string]RuleSet)
	}
	r.Body[path] = set
}

func normalizeMatcher(m *Matcher) {
	if m.Match != "" {
		return
	}
	switch {
	case m.Regex != "":
		m.Match = MatchRegex
	default:
		m.Match = MatchType
	}
}

func trimBracketName(s string) string {
	s = strings.TrimPrefix(s, "['")
	return strings.TrimSuffix(s, "']")
}

// segment is one step of a JSON path. Index segments look like "[3]"; wildcards are "*" and "[*]".
type segment string

const (
	anyKey   segment = "*"
	anyIndex segment = "[*]"
)

func indexSegment(i int) segment {
	return segment("[" + strconv.Itoa(i) + "]")
}

func (s segment) isIndex() bool {
	return strings.HasPrefix(string(s), "[")
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// formatPath renders segments as a JSON path, e.g. $.items[0].product_id
func formatPath(path []segment) string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range path {
		switch {
		case s.isIndex():
			b.WriteString(string(s))
		case s == anyKey || identRe.MatchString(string(s)):
			b.WriteString("." + string(s))
		default:
			b.WriteString("['" + string(s) + "']")
		}
	}
	return b.String()
}

// parsePath parses a pact JSON path such as $.items[*].product_id or $['odd key'].
func parsePath(p string) ([]segment, error) {
	if !strings.HasPrefix(p, "$") {
		return nil, fmt.Errorf("path %q must start with $", p)
	}
	var out []segment
	rest := p[1:]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			if end == 0 {
				return nil, fmt.Errorf("path %q has an empty segment", p)
			}
			out = append(out, segment(rest[:end]))
			rest = rest[end:]
		case '[':
			end := strings.Index(rest, "]")
			if end < 0 {
				return nil, fmt.Errorf("path %q has an unterminated bracket", p)
			}
			inner := rest[1:end]
			rest = rest[end+1:]
			switch {
			case inner == "*":
				out = append(out, anyIndex)
			case len(inner) >= 2 && inner[0] == '\'' && inner[len(inner)-1] == '\'':
				out = append(out, segment(inner[1:len(inner)-1]))
			default:
				n, err := strconv.Atoi(inner)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("path %q has an invalid index %q", p, inner)
				}
				out = append(out, indexSegment(n))
			}
		default:
			return nil, fmt.Errorf("path %q: unexpected %q", p, rest[0])
		}
	}
	return out, nil
}

type compiledRule struct {
	path   []segment
	weight int
	set    RuleSet
	regex  []*regexp.Regexp // parallel to set.Matchers; nil for non-regex matchers
}

func (c compiledRule) matches(path []segment) bool {
	if len(c.path) != len(path) {
		return false
	}
	for i, s := range c.path {
		switch {
		case s == anyIndex:
			if !path[i].isIndex() {
				return false
			}
		case s == anyKey:
			if path[i].isIndex() {
				return false
			}
		case s != path[i]:
			return false
		}
	}
	return true
}

type ruleIndex []compiledRule

// compileBodyRules compiles body rules keyed by path.
func compileBodyRules(sets map[string]RuleSet) (ruleIndex, error) {
	var idx ruleIndex
	for p, set := range sets {
		segs, err := parsePath(p)
		if err != nil {
			return nil, err
		}
		rule, err := compileRule(set)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", p, err)
		}
		rule.path = segs
		for _, s := range segs {
			if s != anyKey && s != anyIndex {
				rule.weight++
			}
		}
		idx = append(idx, rule)
	}
	return idx, nil
}

func compileRule(set RuleSet) (compiledRule, error) {
	rule := compiledRule{set: set, regex: make([]*regexp.Regexp, len(set.Matchers))}
	for i, m := range set.Matchers {
		if m.Match != MatchRegex {
			continue
		}
		re, err := regexp.Compile(anchor(m.Regex))
		if err != nil {
			return rule, fmt.Errorf("invalid regex %q: %w", m.Regex, err)
		}
		rule.regex[i] = re
	}
	return rule, nil
}

// anchor makes a pattern match the whole value, as pact regex matchers do.
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}

// lookup returns the most specific rule for path.
func (idx ruleIndex) lookup(path []segment) *compiledRule {
	var best *compiledRule
	for i := range idx {
		r := &idx[i]
		if !r.matches(path) {
			continue
		}
		if best == nil || r.weight > best.weight ||
			(r.weight == best.weight && formatPath(r.path) < formatPath(best.path)) {
			best = r
		}
	}
	return best
}
