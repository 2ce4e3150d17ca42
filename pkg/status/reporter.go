package status

import (
	"fmt"
	"io"

	"github.com/Veraticus/colorout/pkg/theme"
	"github.com/Veraticus/colorout/pkg/types"
)

// Reporter writes the end-of-run summary
type Reporter struct {
	tally  *Tally
	theme  *theme.Theme
	writer io.Writer
}

// NewReporter creates a new summary reporter
func NewReporter(tally *Tally, th *theme.Theme, writer io.Writer) *Reporter {
	return &Reporter{
		tally:  tally,
		theme:  th,
		writer: writer,
	}
}

// Report writes the summary line, colored by the most severe tag seen
func (r *Reporter) Report(exitCode int) error {
	if r.tally == nil || r.writer == nil {
		return nil
	}

	tag := types.BuildHeader
	switch {
	case r.tally.Count(types.Error) > 0:
		tag = types.Error
	case r.tally.Count(types.Warning) > 0:
		tag = types.Warning
	}

	line := fmt.Sprintf("colorout: %s (exit %d)", r.tally.Summary(), exitCode)
	if _, err := fmt.Fprintln(r.writer, r.theme.Render(tag, line)); err != nil {
		return err
	}
	if first, ok := r.tally.First(types.Error); ok {
		if _, err := fmt.Fprintf(r.writer, "colorout: first error: %s\n", first); err != nil {
			return err
		}
	}
	return nil
}
