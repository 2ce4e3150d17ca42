package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Veraticus/colorout/pkg/logging"
)

// PTYManager handles PTY-based process execution
type PTYManager struct {
	cmd         *exec.Cmd
	pty         *os.File
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	restoreFunc func()
	logger      zerolog.Logger
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager
func NewPTYManager() *PTYManager {
	return &PTYManager{
		stopChan: make(chan struct{}),
		logger:   logging.Get("pty"),
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	cmd := exec.Command(command, args...)
	cmd.Env = env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}
	p.cmd = cmd
	p.pty = ptmx

	// Some environments (CI, pipes) have no terminal to copy from
	if err := p.copyTerminalSize(); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to copy terminal size")
	}

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// GetPTY returns the PTY file descriptor
func (p *PTYManager) GetPTY() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pty
}

// Wait waits for the process to complete. The PTY stays open so remaining
// output can still be drained; call Close afterwards.
func (p *PTYManager) Wait() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := cmd.Wait()

	close(p.stopChan)
	p.wg.Wait()

	return err
}

// Close closes the PTY
func (p *PTYManager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pty == nil {
		return nil
	}
	err := p.pty.Close()
	p.pty = nil
	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// RestoreTerminal puts stdin back into the mode it had before CopyIO
func (p *PTYManager) RestoreTerminal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.restoreFunc != nil {
		p.restoreFunc()
		p.restoreFunc = nil
	}
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYManager) copyTerminalSize() error {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return err
	}
	return pty.Setsize(p.pty, size)
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				if err := p.copyTerminalSize(); err != nil {
					p.logger.Debug().Err(err).Msg("Failed to resize PTY")
				}
			}
			p.mu.Unlock()
		case <-p.stopChan:
			return
		}
	}
}

// CopyIO copies stdin to the PTY and PTY output to stdout. When stdin is a
// terminal it is switched to raw mode so keystrokes reach the child
// unprocessed. CopyIO returns once the output side is drained; the stdin
// copy may outlive it.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return fmt.Errorf("PTY not initialized")
	}
	ptmx := p.pty
	p.mu.Unlock()

	if file, ok := stdin.(*os.File); ok {
		if restore, err := setRawMode(int(file.Fd())); err == nil {
			p.mu.Lock()
			p.restoreFunc = restore
			p.mu.Unlock()
			defer p.RestoreTerminal()
		} else {
			p.logger.Debug().Err(err).Msg("Stdin left in cooked mode")
		}
	}

	if stdin != nil {
		go func() {
			if _, err := io.Copy(ptmx, stdin); err != nil {
				p.logger.Debug().Err(err).Msg("Stdin copy stopped")
			}
		}()
	}

	if _, err := io.Copy(stdout, ptmx); err != nil && !isPTYClosed(err) {
		return fmt.Errorf("stdout copy error: %w", err)
	}
	return nil
}

// setRawMode switches fd to raw mode and returns a function restoring the
// previous state
func setRawMode(fd int) (func(), error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("fd %d is not a terminal", fd)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	return func() { _ = term.Restore(fd, state) }, nil
}

// isPTYClosed reports whether err is how Linux signals that the slave side
// of the PTY has gone away
func isPTYClosed(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}
