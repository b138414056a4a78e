package execx

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

// CommandRunner is the interface for running commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)
	Start(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr io.ReadCloser, wait func() error, err error)
}

// ExecCommandRunner uses os/exec.
type ExecCommandRunner struct{}

// Run runs a command.
func (ExecCommandRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Start starts a command.
func (ExecCommandRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr io.ReadCloser, wait func() error, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}

	return stdoutPipe, stderrPipe, cmd.Wait, nil
}

// StreamChunk represents a single line of streamed command output.
type StreamChunk struct {
	// Data is the chunk content.
	Data []byte

	// Done indicates if this is the final chunk.
	Done bool

	// Error if something went wrong.
	Error error
}

// Executor runs a single binary with a per-call timeout.
type Executor struct {
	runner     CommandRunner
	binaryPath string
	timeout    time.Duration
}

// NewExecutor creates an executor. binary may be a path or a name looked up in PATH.
func NewExecutor(binary string, timeout time.Duration) (*Executor, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("binary not found: %w", err)
	}

	return &Executor{
		binaryPath: path,
		timeout:    timeout,
		runner:     ExecCommandRunner{},
	}, nil
}

// NewExecutorWithRunner creates an executor with a custom runner.
func NewExecutorWithRunner(binaryPath string, timeout time.Duration, runner CommandRunner) *Executor {
	return &Executor{
		binaryPath: binaryPath,
		timeout:    timeout,
		runner:     runner,
	}
}

// BinaryPath returns the resolved binary path.
func (e *Executor) BinaryPath() string {
	return e.binaryPath
}

// Execute runs the command and returns output.
func (e *Executor) Execute(ctx context.Context, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stdout, stderr, err = e.runner.Run(ctx, e.binaryPath, args, stdin)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %v: %w", e.timeout, err)
	}

	return stdout, stderr, err
}

// Stream runs the command and streams stdout line by line.
// The final chunk has Done set and carries the exit error, with stderr attached.
func (e *Executor) Stream(ctx context.Context, args []string, stdin io.Reader) (<-chan StreamChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)

	stdout, stderr, wait, err := e.runner.Start(ctx, e.binaryPath, args, stdin)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("executor: failed to start command: %w", err)
	}

	ch := make(chan StreamChunk, 32)

	go func() {
		defer close(ch)
		defer cancel()

		// Read stderr in background
		stderrBuf := new(bytes.Buffer)
		stderrDone := make(chan struct{})
		go func() {
			if _, err := io.Copy(stderrBuf, stderr); err != nil {
				slog.Error("Failed to read stderr", "error", err)
			}
			close(stderrDone)
		}()

		// Stream stdout
		scanner := bufio.NewScanner(stdout)
	scan:
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case <-ctx.Done():
				break scan
			case ch <- StreamChunk{Data: line}:
			}
		}
		readErr := scanner.Err()

		// The child cannot exit while its stdout pipe is full.
		if _, err := io.Copy(io.Discard, stdout); err != nil {
			slog.Debug("Failed to drain stdout", "error", err)
		}

		<-stderrDone
		err := wait()
		if err == nil {
			err = readErr
		}
		if err == nil {
			err = ctx.Err()
		}
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %v: %w", e.timeout, err)
		}

		if err != nil {
			if s := stderrBuf.String(); s != "" {
				ch <- StreamChunk{Error: fmt.Errorf("%w: %s", err, s), Done: true}
			} else {
				ch <- StreamChunk{Error: err, Done: true}
			}
		} else {
			ch <- StreamChunk{Done: true}
		}
	}()

	return ch, nil
}
