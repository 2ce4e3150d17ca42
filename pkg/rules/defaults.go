// Package rules holds the built-in rule set, rule validation and compilation,
// and the serialized rule document format.
package rules

import "github.com/Veraticus/colorout/pkg/types"

// Defaults returns the built-in rule set. Order is significant: the first
// matching rule wins, so "0 failed" must stay ahead of the generic error rule.
func Defaults() types.RuleSet {
	return types.NewRuleSet(
		types.NewRule(`\+\+\+\>`, types.Custom1, false),
		types.NewRule(`(=====|-----)`, types.BuildHeader, false),
		types.NewRule(`0 failed`, types.BuildHeader, true),
		types.NewRule(`(\W|^)(error|fail|failed|exception)\W`, types.Error, true),
		types.NewRule(`(exception:|stack trace:)`, types.Error, true),
		types.NewRule(`^\s+at\s`, types.Error, true),
		types.NewRule(`(\W|^)warning\W`, types.Warning, true),
		types.NewRule(`(\W|^)information\W`, types.Information, true),
	)
}
