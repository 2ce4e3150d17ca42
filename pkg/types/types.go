// Package types contains the shared data model: classification tags, rules,
// rule sets and classification results.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownClassification is returned when a classification id cannot be parsed
var ErrUnknownClassification = errors.New("unknown classification")

// ClassificationTag is the semantic category assigned to a span of output
type ClassificationTag string

const (
	PlainText   ClassificationTag = "PlainText"
	BuildHeader ClassificationTag = "BuildHeader"
	Error       ClassificationTag = "Error"
	Warning     ClassificationTag = "Warning"
	Information ClassificationTag = "Information"
	Custom1     ClassificationTag = "Custom1"
	Custom2     ClassificationTag = "Custom2"
	Custom3     ClassificationTag = "Custom3"
	Custom4     ClassificationTag = "Custom4"
)

// persisted ids, as written by the Visual Studio options page
var serializedIDs = map[ClassificationTag]string{
	PlainText:   "PlainText",
	BuildHeader: "BuildHead",
	Error:       "LogError",
	Warning:     "LogWarning",
	Information: "LogInformation",
	Custom1:     "LogCustom1",
	Custom2:     "LogCustom2",
	Custom3:     "LogCustom3",
	Custom4:     "LogCustom4",
}

// AllTags returns every known tag in display order
func AllTags() []ClassificationTag {
	return []ClassificationTag{BuildHeader, Error, Warning, Information, Custom1, Custom2, Custom3, Custom4, PlainText}
}

// ID returns the persisted identifier of the tag
func (t ClassificationTag) ID() string {
	if id, ok := serializedIDs[t]; ok {
		return id
	}
	return string(t)
}

// String implements fmt.Stringer
func (t ClassificationTag) String() string {
	return string(t)
}

// ParseClassification accepts either the persisted id ("LogError") or the
// tag name ("Error"), case-insensitively.
func ParseClassification(s string) (ClassificationTag, error) {
	s = strings.TrimSpace(s)
	for tag, id := range serializedIDs {
		if strings.EqualFold(s, id) || strings.EqualFold(s, string(tag)) {
			return tag, nil
		}
	}
	return PlainText, fmt.Errorf("%w: %q", ErrUnknownClassification, s)
}

// Rule is a single classification rule. Rules are values and never change
// after construction.
type Rule struct {
	Pattern         string
	CaseInsensitive bool
	Classification  ClassificationTag
}

// NewRule creates a rule
func NewRule(pattern string, classification ClassificationTag, caseInsensitive bool) Rule {
	return Rule{
		Pattern:         pattern,
		CaseInsensitive: caseInsensitive,
		Classification:  classification,
	}
}

// String renders the rule for diagnostics
func (r Rule) String() string {
	flag := "case-sensitive"
	if r.CaseInsensitive {
		flag = "ignore-case"
	}
	return fmt.Sprintf("%s -> %s (%s)", r.Pattern, r.Classification, flag)
}

// RuleSet is an ordered, immutable sequence of rules. Order is priority:
// the first matching rule wins. Editing methods return a new set and leave
// the receiver untouched. The zero value is an empty set.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a rule set holding a copy of rules
func NewRuleSet(rules ...Rule) RuleSet {
	if len(rules) == 0 {
		return RuleSet{}
	}
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return RuleSet{rules: cp}
}

// Len returns the number of rules
func (rs RuleSet) Len() int {
	return len(rs.rules)
}

// At returns the rule at position i
func (rs RuleSet) At(i int) Rule {
	return rs.rules[i]
}

// Rules returns a copy of the rules in order
func (rs RuleSet) Rules() []Rule {
	cp := make([]Rule, len(rs.rules))
	copy(cp, rs.rules)
	return cp
}

// Equal reports whether both sets hold the same rules in the same order
func (rs RuleSet) Equal(other RuleSet) bool {
	if len(rs.rules) != len(other.rules) {
		return false
	}
	for i := range rs.rules {
		if rs.rules[i] != other.rules[i] {
			return false
		}
	}
	return true
}

// With returns a new set with rule appended
func (rs RuleSet) With(rule Rule) RuleSet {
	rules := make([]Rule, 0, len(rs.rules)+1)
	rules = append(rules, rs.rules...)
	return RuleSet{rules: append(rules, rule)}
}

// Without returns a new set with the rule at position i removed
func (rs RuleSet) Without(i int) (RuleSet, error) {
	if err := rs.checkIndex(i); err != nil {
		return rs, err
	}
	rules := make([]Rule, 0, len(rs.rules)-1)
	rules = append(rules, rs.rules[:i]...)
	rules = append(rules, rs.rules[i+1:]...)
	return RuleSet{rules: rules}, nil
}

// Replace returns a new set with the rule at position i replaced
func (rs RuleSet) Replace(i int, rule Rule) (RuleSet, error) {
	if err := rs.checkIndex(i); err != nil {
		return rs, err
	}
	rules := rs.Rules()
	rules[i] = rule
	return RuleSet{rules: rules}, nil
}

// Move returns a new set with the rule at from moved to position to
func (rs RuleSet) Move(from, to int) (RuleSet, error) {
	if err := rs.checkIndex(from); err != nil {
		return rs, err
	}
	if err := rs.checkIndex(to); err != nil {
		return rs, err
	}
	rules := make([]Rule, 0, len(rs.rules))
	rules = append(rules, rs.rules[:from]...)
	rules = append(rules, rs.rules[from+1:]...)
	moved := rs.rules[from]
	rules = append(rules[:to], append([]Rule{moved}, rules[to:]...)...)
	return RuleSet{rules: rules}, nil
}

func (rs RuleSet) checkIndex(i int) error {
	if i < 0 || i >= len(rs.rules) {
		return fmt.Errorf("rule index %d out of range [0,%d)", i, len(rs.rules))
	}
	return nil
}

// Span is a unit of text submitted for classification, typically one line
type Span struct {
	Text string
}

// Result is the outcome of classifying a span. Start and End delimit the
// matched byte range within the span text; RuleIndex is -1 when no rule
// matched.
type Result struct {
	Classification ClassificationTag
	Start          int
	End            int
	RuleIndex      int
}

// NoMatch is the result for spans no rule matches
var NoMatch = Result{Classification: PlainText, RuleIndex: -1}

// Matched reports whether a rule matched
func (r Result) Matched() bool {
	return r.RuleIndex >= 0
}
