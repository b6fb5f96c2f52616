package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// ErrStopDispatch is returned by the built-in quit handler to signal
// that the event loop driving Dispatch should exit.
var ErrStopDispatch = errors.New("runtime: stop requested")

// RecordingState tracks whether capture is currently active, shared
// between the dispatcher's precondition helper and module-specific
// handlers registered on the same Dispatcher.
type RecordingState struct {
	active bool
}

// Active reports the current recording state.
func (r *RecordingState) Active() bool { return r.active }

// Set updates the recording state.
func (r *RecordingState) Set(v bool) { r.active = v }

// HandlerFunc handles one parsed command. A handler is expected to
// report its own outcome by sending status lines through the
// Dispatcher's StatusWriter; a returned error is treated as an
// unexpected failure and converted into a bounded error status by the
// dispatcher rather than propagated further.
type HandlerFunc func(ctx context.Context, cmd protocol.Command) error

// Dispatcher routes parsed commands to handlers keyed by command name.
// The zero value is not usable;
// construct with NewDispatcher.
type Dispatcher struct {
	handlers  map[string]HandlerFunc
	custom    HandlerFunc
	status    *protocol.StatusWriter
	recording *RecordingState
	shutdown  func()
	log       *logging.Logger
}

// NewDispatcher wires the built-in quit/get_geometry/take_snapshot
// defaults and returns a Dispatcher ready for module-specific handlers
// to be registered with Handle.
func NewDispatcher(status *protocol.StatusWriter, recording *RecordingState, shutdown func(), log *logging.Logger) *Dispatcher {
	d := &Dispatcher{
		handlers:  make(map[string]HandlerFunc),
		status:    status,
		recording: recording,
		shutdown:  shutdown,
		log:       log,
	}
	d.handlers[protocol.CmdQuit] = d.handleQuit
	d.handlers[protocol.CmdGetGeometry] = func(ctx context.Context, cmd protocol.Command) error { return nil }
	d.handlers[protocol.CmdTakeSnapshot] = func(ctx context.Context, cmd protocol.Command) error {
		return d.status.Error("not supported")
	}
	return d
}

// Handle registers (or overrides) the handler for a command name,
// including any of the defaults NewDispatcher installed.
func (d *Dispatcher) Handle(name string, h HandlerFunc) {
	d.handlers[name] = h
}

// HandleCustom sets the handle_custom_command fallback used for any
// command name with no registered handler.
func (d *Dispatcher) HandleCustom(h HandlerFunc) {
	d.custom = h
}

func (d *Dispatcher) handleQuit(ctx context.Context, cmd protocol.Command) error {
	if err := d.status.Send(protocol.StatusQuitting, nil); err != nil {
		d.log.WithError(err).Warn("dispatcher: failed to send quitting status")
	}
	if d.shutdown != nil {
		d.shutdown()
	}
	return ErrStopDispatch
}

// Dispatch looks up and runs the handler for cmd. A handler panic or
// returned error is caught and converted to a bounded error status;
// the dispatcher loop itself never exits because of
// one misbehaving handler. Dispatch returns ErrStopDispatch exactly
// when the caller's event loop should exit.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd protocol.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic in handler for %q: %v", cmd.Name, r)
			d.log.WithField("command", cmd.Name).Error(msg)
			_ = d.status.Error(msg)
			err = nil
		}
	}()

	handler, ok := d.handlers[cmd.Name]
	if !ok {
		if d.custom == nil {
			_ = d.status.Error("unknown command")
			return nil
		}
		handler = d.custom
	}

	if herr := handler(ctx, cmd); herr != nil {
		if errors.Is(herr, ErrStopDispatch) {
			return ErrStopDispatch
		}
		_ = d.status.Error(herr.Error())
	}
	return nil
}

// RequirePrecondition checks recording state against expected and, on
// mismatch, emits an error status and returns false so the caller can
// short-circuit its handler body.
func (d *Dispatcher) RequirePrecondition(expected bool) bool {
	if d.recording.Active() != expected {
		state := "not recording"
		if !expected {
			state = "already recording"
		}
		_ = d.status.Error(fmt.Sprintf("precondition failed: %s", state))
		return false
	}
	return true
}
