package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupervisor struct {
	mu       sync.Mutex
	calls    []string
	startErr error
}

func (f *fakeSupervisor) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSupervisor) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSupervisor) Start(context.Context) error {
	f.record("start")
	return f.startErr
}

func (f *fakeSupervisor) Stop() <-chan struct{} {
	f.record("stop")
	// never resolves, the console must not wait on it
	return make(chan struct{})
}

func (f *fakeSupervisor) Restart(context.Context) error {
	f.record("restart")
	return nil
}

func (f *fakeSupervisor) Command(text string) bool {
	f.record("command:" + text)
	return true
}

func TestRun_DispatchesLines(t *testing.T) {
	sup := &fakeSupervisor{}
	in := strings.NewReader("start\nsay hello\n\nstop\nrestart\nlist\r\n  stop  \nstopp\n")

	err := New(sup, in, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"start",
		"command:say hello",
		"stop",
		"restart",
		"command:list",
		"command:  stop  ",
		"command:stopp",
	}, sup.list())
}

func TestRun_ReportsStartFailure(t *testing.T) {
	sup := &fakeSupervisor{startErr: errors.New("failed to spawn java: not found")}
	var logs bytes.Buffer

	err := New(sup, strings.NewReader("start\n"), log.New(&logs, "", 0)).Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Start failed: failed to spawn java: not found")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("terminal gone") }

func TestRun_ReturnsReadError(t *testing.T) {
	err := New(&fakeSupervisor{}, failingReader{}, nil).Run(context.Background())
	assert.EqualError(t, err, "terminal gone")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	sup := &fakeSupervisor{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(sup, pr, nil).Run(ctx) }()

	_, err := pw.Write([]byte("say one\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sup.list()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("console did not stop")
	}
}

func TestRun_LongLine(t *testing.T) {
	sup := &fakeSupervisor{}
	long := strings.Repeat("a", 100*1024)

	err := New(sup, strings.NewReader(long+"\n"), nil).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"command:" + long}, sup.list())
}
