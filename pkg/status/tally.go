// Package status tracks what a run produced and reports it when the run
// ends.
package status

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/types"
)

// Tally counts classified lines per tag
type Tally struct {
	mu     sync.Mutex
	counts map[types.ClassificationTag]int
	first  map[types.ClassificationTag]string
}

// Ensure Tally implements ClassificationObserver
var _ interfaces.ClassificationObserver = (*Tally)(nil)

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{
		counts: make(map[types.ClassificationTag]int),
		first:  make(map[types.ClassificationTag]string),
	}
}

// Observe implements interfaces.ClassificationObserver
func (t *Tally) Observe(line string, result types.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[result.Classification]++
	if _, ok := t.first[result.Classification]; !ok {
		t.first[result.Classification] = line
	}
}

// Count returns the number of lines seen with tag
func (t *Tally) Count(tag types.ClassificationTag) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[tag]
}

// First returns the first line seen with tag
func (t *Tally) First(tag types.ClassificationTag) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line, ok := t.first[tag]
	return line, ok
}

// Summary renders the counts of the tags that matter at the end of a build,
// e.g. "2 errors, 1 warning".
func (t *Tally) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := []string{
		plural(t.counts[types.Error], "error"),
		plural(t.counts[types.Warning], "warning"),
	}
	if n := t.counts[types.Information]; n > 0 {
		parts = append(parts, plural(n, "message"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
