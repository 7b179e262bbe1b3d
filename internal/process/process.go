package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/feedbackd/internal/logging"
)

// ErrKilled is returned when a process ignored SIGINT and had to be killed.
var ErrKilled = errors.New("process killed after graceful timeout")

// ExitError reports a non-zero exit status.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
}

// Process runs one subprocess to completion.
type Process struct {
	id              string
	args            []string
	logger          logging.Logger
	gracefulTimeout time.Duration // wait after SIGINT before SIGKILL
	killTimeout     time.Duration // wait after SIGKILL before giving up
}

// New creates a process for args. args[0] is resolved through PATH.
func New(id string, args []string, logger logging.Logger) *Process {
	return &Process{
		id:              id,
		args:            args,
		logger:          logger,
		gracefulTimeout: 2 * time.Second,
		killTimeout:     2 * time.Second,
	}
}

// Run starts the subprocess and waits for it. Cancelling ctx sends
// SIGINT to the process group and, after the graceful timeout, SIGKILL.
// A cancelled run returns ctx.Err() once the process is gone.
func (p *Process) Run(ctx context.Context) error {
	if len(p.args) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.Command(p.args[0], p.args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.args[0], err)
	}
	p.logger.Debug("Process started", "id", p.id, "pid", cmd.Process.Pid, "command", strings.Join(p.args, " "))

	outputDone := make(chan struct{}, 2)
	go p.streamOutput(stdout, "stdout", outputDone)
	go p.streamOutput(stderr, "stderr", outputDone)

	processDone := make(chan error, 1)
	go func() {
		// Drain output before Wait closes the pipes.
		<-outputDone
		<-outputDone
		processDone <- cmd.Wait()
	}()

	select {
	case err := <-processDone:
		return p.exitError(err)
	case <-ctx.Done():
		p.logger.Debug("Context cancelled, stopping process", "id", p.id)
		p.signal(cmd, syscall.SIGINT)
		if err := p.waitForExit(cmd, processDone); err != nil {
			return errors.Join(ctx.Err(), err)
		}
		return ctx.Err()
	}
}

func (p *Process) exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: p.args[0], Code: exitErr.ExitCode()}
	}
	return err
}

// signal delivers sig to the whole process group.
func (p *Process) signal(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Warn("Failed to signal process", "id", p.id, "signal", sig.String(), "error", err)
	}
}

// waitForExit waits for the process after SIGINT, killing it on timeout.
func (p *Process) waitForExit(cmd *exec.Cmd, processDone <-chan error) error {
	select {
	case <-processDone:
		return nil
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "id", p.id, "error", err)
	}
	p.signal(cmd, syscall.SIGKILL)

	select {
	case <-processDone:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "id", p.id)
	}
	return ErrKilled
}

// streamOutput forwards subprocess output to the debug log.
func (p *Process) streamOutput(reader io.Reader, source string, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		p.logger.Debug(scanner.Text(), "id", p.id, "source", source)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.logger.Warn("Error reading output", "id", p.id, "source", source, "error", err)
	}
}

// ParseCommand splits a command line into arguments, honoring single
// and double quotes and backslash escapes.
func ParseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	pending := false

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
				pending = true
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if pending || current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
				pending = false
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, errors.New("unclosed quote in command")
	}
	if pending || current.Len() > 0 {
		args = append(args, current.String())
	}
	return args, nil
}
