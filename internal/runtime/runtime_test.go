package runtime

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *bytes.Buffer, *RecordingState) {
	t.Helper()
	var buf bytes.Buffer
	sw := protocol.NewStatusWriter(&buf)
	rec := &RecordingState{}
	var shutdownCalled bool
	d := NewDispatcher(sw, rec, func() { shutdownCalled = true }, logging.NewTestLogger("runtime"))
	_ = shutdownCalled
	return d, &buf, rec
}

func lastLine(buf *bytes.Buffer) string {
	s := strings.TrimRight(buf.String(), "\n")
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}

func TestDispatchUnknownCommandEmitsError(t *testing.T) {
	d, buf, _ := newTestDispatcher(t)
	err := d.Dispatch(context.Background(), protocol.Command{Name: "frobnicate"})
	require.NoError(t, err)
	assert.Contains(t, lastLine(buf), "unknown command")
}

func TestDispatchQuitSendsQuittingAndStops(t *testing.T) {
	d, buf, _ := newTestDispatcher(t)
	err := d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdQuit})
	assert.ErrorIs(t, err, ErrStopDispatch)
	assert.Contains(t, lastLine(buf), `"status":"quitting"`)
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	d, buf, _ := newTestDispatcher(t)
	d.Handle("boom", func(ctx context.Context, cmd protocol.Command) error {
		panic("kaboom")
	})
	err := d.Dispatch(context.Background(), protocol.Command{Name: "boom"})
	require.NoError(t, err)
	assert.Contains(t, lastLine(buf), "kaboom")
}

func TestDispatchConvertsHandlerErrorToStatus(t *testing.T) {
	d, buf, _ := newTestDispatcher(t)
	d.Handle("fail", func(ctx context.Context, cmd protocol.Command) error {
		return errors.New("disk full")
	})
	err := d.Dispatch(context.Background(), protocol.Command{Name: "fail"})
	require.NoError(t, err)
	assert.Contains(t, lastLine(buf), "disk full")
}

func TestRequirePreconditionRejectsMismatch(t *testing.T) {
	d, buf, rec := newTestDispatcher(t)
	rec.Set(false)
	assert.False(t, d.RequirePrecondition(true))
	assert.Contains(t, lastLine(buf), "not recording")

	rec.Set(true)
	assert.True(t, d.RequirePrecondition(true))
}

func TestTakeSnapshotDefaultIsNotSupported(t *testing.T) {
	d, buf, _ := newTestDispatcher(t)
	err := d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdTakeSnapshot})
	require.NoError(t, err)
	assert.Contains(t, lastLine(buf), "not supported")
}

func TestRunSlaveModeDispatchesUntilEOF(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	var got []string
	d.HandleCustom(func(ctx context.Context, cmd protocol.Command) error {
		got = append(got, cmd.Name)
		return nil
	})

	input := strings.NewReader(`{"command":"a"}` + "\n" + `{"command":"b"}` + "\n")
	RunSlaveMode(context.Background(), input, d, logging.NewTestLogger("runtime"))

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRunSlaveModeStopsOnQuit(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	input := strings.NewReader(`{"command":"quit"}` + "\n" + `{"command":"never_reached"}` + "\n")

	done := make(chan struct{})
	go func() {
		RunSlaveMode(context.Background(), input, d, logging.NewTestLogger("runtime"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("slave mode did not stop on quit")
	}
}

type fakeGUIDriver struct {
	pumps    int32
	aliveFor int32
}

func (g *fakeGUIDriver) Pump() bool {
	n := atomic.AddInt32(&g.pumps, 1)
	return n <= g.aliveFor
}

func TestRunGUIModeStopsWhenWindowGone(t *testing.T) {
	driver := &fakeGUIDriver{aliveFor: 3}
	cfg := GUIModeConfig{Driver: driver, PumpInterval: time.Millisecond}

	done := make(chan struct{})
	go func() {
		RunGUIMode(context.Background(), cfg, logging.NewTestLogger("runtime"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("gui mode did not stop when window disappeared")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&driver.pumps), int32(3))
}

type flakySystem struct {
	attempts    int32
	failUntil   int32
	cleanupDone chan struct{}
}

func (s *flakySystem) Run(ctx context.Context) error {
	n := atomic.AddInt32(&s.attempts, 1)
	if n < s.failUntil {
		return ErrInitialization
	}
	return nil
}

func (s *flakySystem) Cleanup() {
	close(s.cleanupDone)
}

func TestSupervisorRetriesOnInitializationErrorThenStopsCleanly(t *testing.T) {
	sys := &flakySystem{failUntil: 3, cleanupDone: make(chan struct{})}
	sup := NewSupervisor(sys, time.Millisecond, logging.NewTestLogger("runtime"))

	err := sup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&sys.attempts))

	select {
	case <-sys.cleanupDone:
	default:
		t.Fatal("cleanup was not invoked")
	}
}

type cancelledSystem struct {
	cleaned bool
}

func (s *cancelledSystem) Run(ctx context.Context) error {
	<-ctx.Done()
	return errors.New("runtime error")
}

func (s *cancelledSystem) Cleanup() { s.cleaned = true }

func TestSupervisorRunsCleanupOnContextCancellation(t *testing.T) {
	sys := &cancelledSystem{}
	sup := NewSupervisor(sys, time.Hour, logging.NewTestLogger("runtime"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := sup.Run(ctx)
	assert.Error(t, err)
	assert.True(t, sys.cleaned)
}
