package rules

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/Veraticus/colorout/pkg/types"
)

// MatchTimeout bounds a single match of a pattern that needed the
// backtracking engine.
const MatchTimeout = 50 * time.Millisecond

// ErrEmptyPattern is returned for rules without a pattern
var ErrEmptyPattern = errors.New("empty pattern")

// Matcher is the executable form of a rule's pattern
type Matcher interface {
	// FindIndex returns the byte range of the leftmost match in s
	FindIndex(s string) (start, end int, ok bool)
}

// Compile builds a matcher for the rule. RE2 syntax is tried first; patterns
// it rejects (lookarounds, backreferences) are compiled with the .NET
// compatible engine so rule documents exported from Visual Studio keep
// working.
func Compile(rule types.Rule) (Matcher, error) {
	if rule.Pattern == "" {
		return nil, ErrEmptyPattern
	}

	expr := rule.Pattern
	if rule.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, reErr := regexp.Compile(expr)
	if reErr == nil {
		return re2Matcher{re: re}, nil
	}

	var opts regexp2.RegexOptions
	if rule.CaseInsensitive {
		opts |= regexp2.IgnoreCase
	}
	bt, err := regexp2.Compile(rule.Pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", rule.Pattern, err)
	}
	bt.MatchTimeout = MatchTimeout
	return backtrackMatcher{re: bt}, nil
}

// Validate reports every rule in rs that cannot be compiled. Invalid rules
// are not fatal; the classifier treats them as never matching.
func Validate(rs types.RuleSet) []error {
	var errs []error
	for i := 0; i < rs.Len(); i++ {
		if _, err := Compile(rs.At(i)); err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
		}
	}
	return errs
}

type re2Matcher struct {
	re *regexp.Regexp
}

func (m re2Matcher) FindIndex(s string) (int, int, bool) {
	loc := m.re.FindStringIndex(s)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

type backtrackMatcher struct {
	re *regexp2.Regexp
}

func (m backtrackMatcher) FindIndex(s string) (int, int, bool) {
	match, err := m.re.FindStringMatch(s)
	if err != nil || match == nil {
		return 0, 0, false
	}
	// regexp2 reports rune offsets
	start := byteOffset(s, match.Index)
	end := start + byteOffset(s[start:], match.Length)
	return start, end, true
}

func byteOffset(s string, runes int) int {
	off := 0
	for i := 0; i < runes && off < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}
