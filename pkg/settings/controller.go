// Package settings owns the lifecycle of the active rule set: loading it at
// startup, applying edits, persisting them and keeping the shared classifier
// in step.
package settings

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Veraticus/colorout/pkg/classifier"
	"github.com/Veraticus/colorout/pkg/logging"
	"github.com/Veraticus/colorout/pkg/store"
	"github.com/Veraticus/colorout/pkg/types"
)

// Controller is the single writer of the active rule set. Create one per
// process and pass it to whatever needs the classifier.
type Controller struct {
	store      *store.RuleStore
	engineOpts []classifier.Option
	logger     zerolog.Logger

	mu               sync.RWMutex
	rules            types.RuleSet
	stopOnBuildError bool

	engineOnce sync.Once
	engine     *classifier.Engine
	engineMu   sync.Mutex // guards the engine pointer for readers outside engineOnce
}

// NewController creates a controller backed by rs. Options are applied to
// the classifier when it is first built.
func NewController(rs *store.RuleStore, opts ...classifier.Option) *Controller {
	c := &Controller{
		store:      rs,
		engineOpts: opts,
		logger:     logging.Get("settings"),
	}
	rs.OnSave(c.pushRules)
	return c
}

// Load replaces the in-memory settings with the stored ones
func (c *Controller) Load() {
	rs, stop := c.store.Load()

	c.mu.Lock()
	c.rules = rs
	c.stopOnBuildError = stop
	if e := c.existingEngine(); e != nil {
		e.SetRules(rs)
	}
	c.mu.Unlock()

	c.logger.Debug().Int("rules", rs.Len()).Bool("stop_on_build_error", stop).Msg("Settings loaded")
}

// Rules returns the current rule set
func (c *Controller) Rules() types.RuleSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules
}

// SetRules replaces the current rule set. The change reaches the classifier
// on Save.
func (c *Controller) SetRules(rs types.RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = rs
}

// StopOnBuildError reports whether a build should stop at its first error
func (c *Controller) StopOnBuildError() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopOnBuildError
}

// SetStopOnBuildError updates the stop-on-build-error flag
func (c *Controller) SetStopOnBuildError(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopOnBuildError = enabled
}

// Save persists the current settings. The in-memory rules stay
// authoritative: the classifier switches to them even when persisting
// fails, and the write error is returned.
func (c *Controller) Save() error {
	c.mu.RLock()
	rs, stop := c.rules, c.stopOnBuildError
	c.mu.RUnlock()

	if err := c.store.Save(rs, stop); err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist settings")
		c.pushRules(rs)
		return err
	}
	return nil
}

// Classifier returns the process-wide classifier, building it on first use
func (c *Controller) Classifier() *classifier.Engine {
	c.engineOnce.Do(func() {
		// seeded and published under mu so a concurrent Load cannot slip in between
		c.mu.Lock()
		defer c.mu.Unlock()
		e := classifier.NewEngine(c.rules, c.engineOpts...)
		c.engineMu.Lock()
		c.engine = e
		c.engineMu.Unlock()
	})
	return c.existingEngine()
}

func (c *Controller) existingEngine() *classifier.Engine {
	c.engineMu.Lock()
	defer c.engineMu.Unlock()
	return c.engine
}

// pushRules hands rs, the set just saved, to the classifier if one exists,
// discarding its compiled matchers and cached results.
func (c *Controller) pushRules(rs types.RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.existingEngine()
	if e == nil {
		return
	}
	e.SetRules(rs)
	c.logger.Debug().Uint64("generation", e.Stats().Generation).Msg("Classifier invalidated")
}
