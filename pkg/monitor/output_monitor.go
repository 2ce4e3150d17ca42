// Package monitor turns a stream of process output into classified,
// colored lines.
package monitor

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/logging"
	"github.com/Veraticus/colorout/pkg/theme"
	"github.com/Veraticus/colorout/pkg/types"
)

// DefaultPartialDelay is how long an unterminated line is held back before
// it is written uncolored. Prompts stay responsive while lines split across
// reads are still classified whole.
const DefaultPartialDelay = 25 * time.Millisecond

// Option configures an OutputMonitor
type Option func(*OutputMonitor)

// WithPartialDelay sets how long unterminated lines are held back
func WithPartialDelay(d time.Duration) Option {
	return func(om *OutputMonitor) {
		om.partialDelay = d
	}
}

// WithObserver registers an observer for every classified line
func WithObserver(o interfaces.ClassificationObserver) Option {
	return func(om *OutputMonitor) {
		om.observers = append(om.observers, o)
	}
}

// WithStopOnError calls stop once, on the first line classified as an
// error, while enabled reports true. enabled is consulted per line so the
// setting can change while output is streaming.
func WithStopOnError(enabled func() bool, stop func()) Option {
	return func(om *OutputMonitor) {
		om.stopEnabled = enabled
		om.stop = stop
	}
}

// OutputMonitor classifies output line by line and writes it, colored, to
// an underlying writer
type OutputMonitor struct {
	classifier interfaces.SpanClassifier
	theme      *theme.Theme
	out        io.Writer
	logger     zerolog.Logger

	partialDelay time.Duration
	observers    []interfaces.ClassificationObserver
	stopEnabled  func() bool
	stop         func()

	mu           sync.Mutex
	lineBuffer   bytes.Buffer
	emitted      int // bytes of lineBuffer already written uncolored
	partialTimer *time.Timer
	partialSeq   uint64
	stopped      bool
	writeErr     error
}

// Ensure OutputMonitor implements DataHandler and io.Writer
var (
	_ interfaces.DataHandler = (*OutputMonitor)(nil)
	_ io.Writer              = (*OutputMonitor)(nil)
)

// NewOutputMonitor creates a new output monitor
func NewOutputMonitor(classifier interfaces.SpanClassifier, th *theme.Theme, out io.Writer, opts ...Option) *OutputMonitor {
	om := &OutputMonitor{
		classifier:   classifier,
		theme:        th,
		out:          out,
		logger:       logging.Get("monitor"),
		partialDelay: DefaultPartialDelay,
	}
	for _, opt := range opts {
		opt(om)
	}
	return om
}

// Write implements io.Writer. It always consumes all of p and reports the
// first error from the underlying writer.
func (om *OutputMonitor) Write(p []byte) (int, error) {
	om.mu.Lock()
	defer om.mu.Unlock()

	om.handle(p)

	err := om.writeErr
	om.writeErr = nil
	return len(p), err
}

// HandleData processes raw output data
func (om *OutputMonitor) HandleData(data []byte) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.handle(data)
}

// HandleLine processes one complete line, without its newline
func (om *OutputMonitor) HandleLine(line string) {
	om.mu.Lock()
	defer om.mu.Unlock()

	om.lineBuffer.WriteString(line)
	om.processLine(true)
}

// Flush processes any remaining data in the buffer
func (om *OutputMonitor) Flush() error {
	om.mu.Lock()
	defer om.mu.Unlock()

	om.stopPartialTimer()
	if om.lineBuffer.Len() > 0 {
		om.processLine(false)
	}
	err := om.writeErr
	om.writeErr = nil
	return err
}

func (om *OutputMonitor) handle(data []byte) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			om.lineBuffer.Write(data)
			om.armPartialTimer()
			return
		}
		om.lineBuffer.Write(data[:i])
		om.processLine(true)
		data = data[i+1:]
	}
}

// processLine classifies the buffered line and writes it. Must hold mu.
func (om *OutputMonitor) processLine(newline bool) {
	om.stopPartialTimer()

	raw := om.lineBuffer.String()
	emitted := om.emitted
	om.lineBuffer.Reset()
	om.emitted = 0

	body, cr := strings.CutSuffix(raw, "\r")
	visible := StripANSI(body)
	result := om.classifier.Classify(types.Span{Text: visible})

	for _, o := range om.observers {
		o.Observe(visible, result)
	}

	var sb strings.Builder
	if emitted < len(body) {
		pending := body[emitted:]
		if visible != body {
			// already styled by the process; keep its colors
			sb.WriteString(pending)
		} else {
			sb.WriteString(om.theme.Render(result.Classification, pending))
		}
	}
	if cr && emitted <= len(body) {
		sb.WriteByte('\r')
	}
	if newline {
		sb.WriteByte('\n')
	}
	om.write(sb.String())

	if result.Classification == types.Error {
		om.maybeStop(visible)
	}
}

func (om *OutputMonitor) maybeStop(line string) {
	if om.stopped || om.stop == nil || om.stopEnabled == nil || !om.stopEnabled() {
		return
	}
	om.stopped = true
	om.logger.Info().Str("line", line).Msg("Error detected, stopping build")
	go om.stop()
}

// armPartialTimer schedules an uncolored write of the unterminated line.
// Must hold mu.
func (om *OutputMonitor) armPartialTimer() {
	if om.partialDelay <= 0 {
		om.emitPartial()
		return
	}
	om.stopPartialTimer()
	seq := om.partialSeq
	om.partialTimer = time.AfterFunc(om.partialDelay, func() {
		om.mu.Lock()
		defer om.mu.Unlock()
		if seq == om.partialSeq {
			om.emitPartial()
		}
	})
}

func (om *OutputMonitor) stopPartialTimer() {
	om.partialSeq++
	if om.partialTimer != nil {
		om.partialTimer.Stop()
		om.partialTimer = nil
	}
}

// emitPartial writes the not yet written part of the current line. Must
// hold mu.
func (om *OutputMonitor) emitPartial() {
	if om.emitted >= om.lineBuffer.Len() {
		return
	}
	om.write(string(om.lineBuffer.Bytes()[om.emitted:]))
	om.emitted = om.lineBuffer.Len()
}

func (om *OutputMonitor) write(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(om.out, s); err != nil && om.writeErr == nil {
		om.writeErr = err
		om.logger.Debug().Err(err).Msg("Output write failed")
	}
}
