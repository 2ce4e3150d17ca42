package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/logging"
	"github.com/Veraticus/colorout/pkg/rules"
	"github.com/Veraticus/colorout/pkg/types"
)

// Keys used in the medium
const (
	PatternsKey         = "RegExPatterns"
	StopOnBuildErrorKey = "StopOnBuildError"
)

// Literal flag values
const (
	trueString  = "True"
	falseString = "False"
)

// RuleStore loads and saves rule sets through a KeyValueStore
type RuleStore struct {
	medium interfaces.KeyValueStore
	logger zerolog.Logger

	mu     sync.Mutex
	onSave func(types.RuleSet)
}

// NewRuleStore creates a rule store on top of medium
func NewRuleStore(medium interfaces.KeyValueStore) *RuleStore {
	return &RuleStore{
		medium: medium,
		logger: logging.Get("store"),
	}
}

// OnSave registers a hook run after every successful Save. It receives the
// rule set that was written.
func (s *RuleStore) OnSave(fn func(types.RuleSet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = fn
}

// Load reads the stored rule set and stop-on-build-error flag. It never
// fails: a missing, empty, unreadable or malformed document yields the
// built-in rules.
func (s *RuleStore) Load() (types.RuleSet, bool) {
	return s.loadRules(), s.loadStopOnBuildError()
}

func (s *RuleStore) loadRules() types.RuleSet {
	doc, ok, err := s.medium.GetValue(PatternsKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read rules, using defaults")
		return rules.Defaults()
	}
	doc = strings.TrimSpace(doc)
	if !ok || doc == "" || doc == rules.EmptyDocument {
		s.logger.Debug().Msg("No stored rules, using defaults")
		return rules.Defaults()
	}

	rs, err := rules.Unmarshal([]byte(doc))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stored rules are malformed, using defaults")
		return rules.Defaults()
	}
	s.logger.Debug().Int("rules", rs.Len()).Msg("Loaded rules")
	return rs
}

func (s *RuleStore) loadStopOnBuildError() bool {
	value, ok, err := s.medium.GetValue(StopOnBuildErrorKey)
	if err != nil || !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(value), trueString)
}

// Save writes the rule set and flag together. On success the OnSave hook
// runs; on failure the error is returned and the hook is skipped.
func (s *RuleStore) Save(rs types.RuleSet, stopOnBuildError bool) error {
	doc, err := rules.Marshal(rs)
	if err != nil {
		return err
	}

	flag := falseString
	if stopOnBuildError {
		flag = trueString
	}

	if err := s.medium.SetValues(map[string]string{
		PatternsKey:         string(doc),
		StopOnBuildErrorKey: flag,
	}); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	s.logger.Debug().Int("rules", rs.Len()).Bool("stop_on_build_error", stopOnBuildError).Msg("Saved rules")

	s.mu.Lock()
	hook := s.onSave
	s.mu.Unlock()
	if hook != nil {
		hook(rs)
	}
	return nil
}
