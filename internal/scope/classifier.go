package scope

import (
	"fmt"
	"net/url"
	"regexp"
)

// IncludeRule is an include pattern paired with the entity label it
// assigns to matching URLs.
type IncludeRule struct {
	// re is the compiled pattern, matched against the URL path.
	re *regexp.Regexp

	// entity is the classification label (e.g. "plan", "device").
	entity string
}

// Classifier evaluates URL paths against ordered include rules and
// exclude rules. It is immutable once built and safe for concurrent use.
//
// Design decision: rules are compiled once at configuration load rather
// than per URL. A malformed pattern is a fatal configuration error
// surfaced by CompileRules, never during classification.
type Classifier struct {
	includes []IncludeRule
	excludes []*regexp.Regexp
}

// CompileRules builds a Classifier from raw pattern strings.
// Include patterns are (regex, entity) pairs evaluated in order with
// first-match-wins semantics; exclude patterns veto regardless of order.
// Matching is case-insensitive.
func CompileRules(includes [][2]string, excludes []string) (*Classifier, error) {
	c := &Classifier{
		includes: make([]IncludeRule, 0, len(includes)),
		excludes: make([]*regexp.Regexp, 0, len(excludes)),
	}

	for _, pair := range includes {
		pattern, entity := pair[0], pair[1]
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		c.includes = append(c.includes, IncludeRule{re: re, entity: entity})
	}

	for _, pattern := range excludes {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		c.excludes = append(c.excludes, re)
	}

	return c, nil
}

// Classify reports whether the URL is in scope and, if so, which entity
// label it carries.
//
// Only the path component is considered; query string and fragment never
// affect classification. An exclude match is an absolute veto independent
// of rule order. Otherwise the first matching include rule supplies the
// entity; no match means out of scope.
func (c *Classifier) Classify(rawURL string) (bool, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, ""
	}
	path := u.Path

	for _, re := range c.excludes {
		if re.MatchString(path) {
			return false, ""
		}
	}

	for _, rule := range c.includes {
		if rule.re.MatchString(path) {
			return true, rule.entity
		}
	}

	return false, ""
}

// IncludeCount returns the number of include rules.
func (c *Classifier) IncludeCount() int {
	return len(c.includes)
}

// ExcludeCount returns the number of exclude rules.
func (c *Classifier) ExcludeCount() int {
	return len(c.excludes)
}
