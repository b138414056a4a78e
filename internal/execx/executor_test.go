package execx

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock types ---

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	stdout, _ := a.Get(0).([]byte)
	stderr, _ := a.Get(1).([]byte)
	return stdout, stderr, a.Error(2)
}

func (m *MockRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (io.ReadCloser, io.ReadCloser, func() error, error) {
	a := m.Called(ctx, name, args, stdin)
	stdout, _ := a.Get(0).(io.ReadCloser)
	stderr, _ := a.Get(1).(io.ReadCloser)
	wait, _ := a.Get(2).(func() error)
	return stdout, stderr, wait, a.Error(3)
}

func readCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func drain(ch <-chan StreamChunk) (lines []string, last StreamChunk) {
	for chunk := range ch {
		if chunk.Done {
			last = chunk
			continue
		}
		lines = append(lines, string(chunk.Data))
	}
	return lines, last
}

// --- Tests ---

func TestExecutor_Execute(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "/usr/bin/python3", []string{"-", "a.keras"}, mock.Anything).
		Return([]byte("out"), []byte("warn"), nil).Once()

	e := NewExecutorWithRunner("/usr/bin/python3", time.Second, runner)
	stdout, stderr, err := e.Execute(context.Background(), []string{"-", "a.keras"}, strings.NewReader(""))

	require.NoError(t, err)
	assert.Equal(t, "out", string(stdout))
	assert.Equal(t, "warn", string(stderr))
	runner.AssertExpectations(t)
}

func TestExecutor_ExecuteAppliesTimeout(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "python3", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, nil, errors.New("signal: killed")).Once()

	e := NewExecutorWithRunner("python3", 10*time.Millisecond, runner)
	_, _, err := e.Execute(context.Background(), nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	runner.AssertExpectations(t)
}

func TestExecutor_Stream(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Start", mock.Anything, "python3", []string{"-"}, mock.Anything).
		Return(readCloser("loading\nconverting\n"), readCloser(""), func() error { return nil }, nil).Once()

	e := NewExecutorWithRunner("python3", time.Second, runner)
	ch, err := e.Stream(context.Background(), []string{"-"}, nil)
	require.NoError(t, err)

	lines, last := drain(ch)
	assert.Equal(t, []string{"loading", "converting"}, lines)
	assert.NoError(t, last.Error)
	runner.AssertExpectations(t)
}

func TestExecutor_StreamAttachesStderrOnFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Start", mock.Anything, "python3", mock.Anything, mock.Anything).
		Return(readCloser("loading\n"), readCloser("ValueError: bad op"), func() error { return errors.New("exit status 1") }, nil).Once()

	e := NewExecutorWithRunner("python3", time.Second, runner)
	ch, err := e.Stream(context.Background(), nil, nil)
	require.NoError(t, err)

	lines, last := drain(ch)
	assert.Equal(t, []string{"loading"}, lines)
	require.Error(t, last.Error)
	assert.Contains(t, last.Error.Error(), "exit status 1")
	assert.Contains(t, last.Error.Error(), "ValueError: bad op")
}

func TestExecutor_StreamTimeoutWaitsForChild(t *testing.T) {
	stdout, stdoutWriter := io.Pipe()
	var waited atomic.Bool

	runner := new(MockRunner)
	runner.On("Start", mock.Anything, "python3", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			go func() {
				_, _ = stdoutWriter.Write([]byte("loading\n"))
				<-ctx.Done()
				stdoutWriter.Close()
			}()
		}).
		Return(stdout, readCloser("converter still busy"), func() error {
			waited.Store(true)
			return errors.New("signal: killed")
		}, nil).Once()

	e := NewExecutorWithRunner("python3", 20*time.Millisecond, runner)
	ch, err := e.Stream(context.Background(), nil, nil)
	require.NoError(t, err)

	_, last := drain(ch)
	require.Error(t, last.Error)
	assert.True(t, waited.Load())
	assert.Contains(t, last.Error.Error(), "timed out after 20ms")
	assert.Contains(t, last.Error.Error(), "signal: killed")
	assert.Contains(t, last.Error.Error(), "converter still busy")
}

func TestExecutor_StreamStartFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Start", mock.Anything, "python3", mock.Anything, mock.Anything).
		Return(nil, nil, nil, errors.New("exec: not found")).Once()

	e := NewExecutorWithRunner("python3", time.Second, runner)
	_, err := e.Stream(context.Background(), nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start command")
}

func TestNewExecutor_MissingBinary(t *testing.T) {
	_, err := NewExecutor("litegen-definitely-not-installed", time.Second)
	require.Error(t, err)
}
