// Package process runs the wrapped build command under a pseudo-terminal.
package process

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/logging"
)

// WrappedEnv is set in the child environment to detect nested wrapping
const WrappedEnv = "COLOROUT_WRAPPED"

// DrainTimeout bounds how long Wait keeps reading output after the child
// exits. Grandchildren holding the PTY open would otherwise block forever.
const DrainTimeout = 2 * time.Second

// Manager manages the wrapped build process
type Manager struct {
	ptyManager PTY
	output     io.Writer
	stdin      io.Reader
	exitCode   int
	stopped    bool
	mu         sync.Mutex
	sigChan    chan os.Signal
	done       chan struct{}
	copyDone   chan struct{}
	logger     zerolog.Logger
}

// Ensure Manager implements ProcessWrapper
var _ interfaces.ProcessWrapper = (*Manager)(nil)

// NewManager creates a new process manager writing child output to output
func NewManager(output io.Writer) *Manager {
	return &Manager{
		ptyManager: NewPTYManager(),
		output:     output,
		stdin:      os.Stdin,
		done:       make(chan struct{}),
		copyDone:   make(chan struct{}),
		logger:     logging.Get("process"),
	}
}

// Start starts the build process
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if os.Getenv(WrappedEnv) == "1" {
		return fmt.Errorf("already wrapped by colorout")
	}

	env := append(os.Environ(), WrappedEnv+"=1")

	if err := m.ptyManager.Start(command, args, env); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}
	m.logger.Debug().Str("command", command).Strs("args", args).Msg("Process started")

	go func() {
		defer close(m.copyDone)
		if err := m.ptyManager.CopyIO(m.stdin, m.output); err != nil {
			m.logger.Error().Err(err).Msg("I/O error")
		}
	}()

	m.setupSignalForwarding()

	return nil
}

// Wait waits for the process to exit and its output to be drained
func (m *Manager) Wait() error {
	if m.ptyManager == nil {
		return fmt.Errorf("process not started")
	}

	err := m.ptyManager.Wait()

	select {
	case <-m.copyDone:
	case <-time.After(DrainTimeout):
		m.logger.Debug().Msg("Output still open after exit, closing PTY")
	}
	_ = m.ptyManager.Close()
	m.ptyManager.RestoreTerminal()

	m.mu.Lock()
	m.exitCode = exitCodeOf(m.ptyManager.ProcessState())
	m.mu.Unlock()

	close(m.done)
	m.cleanupSignals()

	return err
}

// ExitCode returns the exit code of the process. A child killed by a
// signal reports 128 plus the signal number, as shells do.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// Stopped reports whether Stop was called
func (m *Manager) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func exitCodeOf(state *os.ProcessState) int {
	if state == nil {
		return 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// setupSignalForwarding sets up signal forwarding to the child process
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	go m.forwardSignals(m.sigChan)
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals(sigChan <-chan os.Signal) {
	for {
		select {
		case sig, ok := <-sigChan:
			if !ok {
				return
			}
			if proc := m.ptyManager.Process(); proc != nil {
				if err := proc.Signal(sig); err != nil && err != os.ErrProcessDone {
					m.logger.Warn().Err(err).Str("signal", sig.String()).Msg("Signal forward error")
				}
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
	}
}

// Stop terminates the child, restoring the terminal first. It is the hook
// used by stop-on-build-error.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ptyManager == nil {
		return nil
	}
	m.ptyManager.RestoreTerminal()

	proc := m.ptyManager.Process()
	if proc == nil {
		return nil
	}
	m.stopped = true
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == os.ErrProcessDone {
			return nil
		}
		return proc.Kill()
	}
	return nil
}
