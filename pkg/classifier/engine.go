// Package classifier assigns classification tags to spans of output text by
// evaluating an ordered rule set, first match wins.
//
// The engine holds one immutable generation at a time: a rule set, its
// compiled matchers and a cache of per-line results. Changing rules or
// invalidating swaps the whole generation with a single atomic swap, so a
// Classify call runs entirely against one generation and never sees a mix
// of old and new matchers.
package classifier

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/logging"
	"github.com/Veraticus/colorout/pkg/rules"
	"github.com/Veraticus/colorout/pkg/types"
)

// DefaultCacheSize is the number of per-line results kept per generation
const DefaultCacheSize = 4096

// maxCachedLine is the longest span whose result is cached
const maxCachedLine = 1024

// Option configures an Engine
type Option func(*Engine)

// WithCacheSize sets the result cache size; zero disables the cache
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.cacheSize = n
	}
}

// Stats holds engine counters
type Stats struct {
	Generation      uint64
	Classifications uint64
	CacheHits       uint64
	CompileFailures uint64
}

// Engine classifies spans against the active rule set. It is safe for
// concurrent use.
type Engine struct {
	current   atomic.Pointer[generation]
	cacheSize int
	logger    zerolog.Logger

	generations     atomic.Uint64
	classifications atomic.Uint64
	cacheHits       atomic.Uint64
	compileFailures atomic.Uint64
}

// Ensure Engine implements SpanClassifier
var _ interfaces.SpanClassifier = (*Engine)(nil)

// NewEngine creates an engine for rs. Patterns are compiled lazily on the
// first Classify call.
func NewEngine(rs types.RuleSet, opts ...Option) *Engine {
	e := &Engine{
		cacheSize: DefaultCacheSize,
		logger:    logging.Get("classifier"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(e.newGeneration(rs))
	return e
}

// Classify returns the classification of the first rule, in rule set order,
// whose pattern matches anywhere in the span. Spans no rule matches get
// types.NoMatch.
func (e *Engine) Classify(span types.Span) types.Result {
	e.classifications.Add(1)
	g := e.current.Load()

	if g.cache != nil {
		if res, ok := g.cache.Get(span.Text); ok {
			e.cacheHits.Add(1)
			return res
		}
	}

	res := g.classify(e, span.Text)

	if g.cache != nil && len(span.Text) <= maxCachedLine {
		g.cache.Add(span.Text, res)
	}
	return res
}

// Invalidate discards all compiled matchers and cached results. Calls that
// start after Invalidate returns recompile against the current rule set. A
// concurrent SetRules always wins.
func (e *Engine) Invalidate() {
	for {
		old := e.current.Load()
		if e.current.CompareAndSwap(old, e.newGeneration(old.rules)) {
			return
		}
	}
}

// SetRules replaces the active rule set
func (e *Engine) SetRules(rs types.RuleSet) {
	e.current.Store(e.newGeneration(rs))
}

// Rules returns the active rule set
func (e *Engine) Rules() types.RuleSet {
	return e.current.Load().rules
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return Stats{
		Generation:      e.current.Load().id,
		Classifications: e.classifications.Load(),
		CacheHits:       e.cacheHits.Load(),
		CompileFailures: e.compileFailures.Load(),
	}
}

func (e *Engine) newGeneration(rs types.RuleSet) *generation {
	g := &generation{
		id:    e.generations.Add(1),
		rules: rs,
	}
	if e.cacheSize > 0 {
		// lru.New only fails for non-positive sizes
		g.cache, _ = lru.New[string, types.Result](e.cacheSize)
	}
	return g
}

// generation is an immutable rule set paired with its derived state
type generation struct {
	id    uint64
	rules types.RuleSet

	compileOnce sync.Once
	matchers    []rules.Matcher // nil entries never match

	cache *lru.Cache[string, types.Result]
}

func (g *generation) compile(e *Engine) {
	g.compileOnce.Do(func() {
		defer logging.LogDuration(e.logger, time.Now(), "compile rules")

		matchers := make([]rules.Matcher, g.rules.Len())
		for i := range matchers {
			rule := g.rules.At(i)
			m, err := rules.Compile(rule)
			if err != nil {
				e.compileFailures.Add(1)
				e.logger.Warn().
					Err(err).
					Int("rule", i).
					Str("pattern", rule.Pattern).
					Uint64("generation", g.id).
					Msg("Rule disabled, pattern does not compile")
				continue
			}
			matchers[i] = m
		}
		g.matchers = matchers
	})
}

func (g *generation) classify(e *Engine, text string) types.Result {
	g.compile(e)

	for i, m := range g.matchers {
		if m == nil {
			continue
		}
		if start, end, ok := m.FindIndex(text); ok {
			return types.Result{
				Classification: g.rules.At(i).Classification,
				Start:          start,
				End:            end,
				RuleIndex:      i,
			}
		}
	}
	return types.NoMatch
}
