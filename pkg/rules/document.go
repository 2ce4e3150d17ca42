package rules

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Veraticus/colorout/pkg/types"
)

// ErrNullDocument is returned when a document decodes to null
var ErrNullDocument = errors.New("rule document is null")

// EmptyDocument is the canonical encoding of an empty rule list
const EmptyDocument = "[]"

// record is one element of the persisted array. Field names match the
// documents written by the Visual Studio options page so those load as-is.
type record struct {
	RegExPattern       string `json:"RegExPattern"`
	ClassificationType string `json:"ClassificationType"`
	IgnoreCase         bool   `json:"IgnoreCase"`
}

// Marshal encodes the rule set as an ordered JSON array
func Marshal(rs types.RuleSet) ([]byte, error) {
	records := make([]record, 0, rs.Len())
	for _, r := range rs.Rules() {
		records = append(records, record{
			RegExPattern:       r.Pattern,
			ClassificationType: r.Classification.ID(),
			IgnoreCase:         r.CaseInsensitive,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a document produced by Marshal
func Unmarshal(data []byte) (types.RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.RuleSet{}, ErrNullDocument
	}

	var records []*record
	if err := json.Unmarshal(data, &records); err != nil {
		return types.RuleSet{}, fmt.Errorf("failed to decode rules: %w", err)
	}
	if records == nil {
		return types.RuleSet{}, ErrNullDocument
	}

	rules := make([]types.Rule, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			return types.RuleSet{}, fmt.Errorf("rule %d: %w", i, ErrNullDocument)
		}
		tag, err := types.ParseClassification(rec.ClassificationType)
		if err != nil {
			return types.RuleSet{}, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, types.NewRule(rec.RegExPattern, tag, rec.IgnoreCase))
	}
	return types.NewRuleSet(rules...), nil
}
