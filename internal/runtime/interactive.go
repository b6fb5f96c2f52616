package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// shorthand maps the single-word commands an operator can type at a
// terminal to their full command names.
var shorthand = map[string]string{
	"start":  protocol.CmdStartRecording,
	"stop":   protocol.CmdStopRecording,
	"status": protocol.CmdGetStatus,
	"quit":   protocol.CmdQuit,
}

// parseInteractiveLine accepts either a bare shorthand word or a full
// JSON command line, returning ok=false only when neither parses.
func parseInteractiveLine(line []byte) (protocol.Command, bool) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return protocol.Command{}, false
	}
	if name, ok := shorthand[strings.ToLower(trimmed)]; ok {
		return protocol.Command{Name: name}, true
	}
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		return protocol.Command{}, false
	}
	return cmd, true
}

// HumanReadableWriter adapts an io.Writer expecting status JSON lines
// (the shape StatusWriter.Send produces) into a terminal-friendly echo,
// so interactive mode can share the exact same StatusWriter/Dispatcher
// wiring as slave/headless/gui mode instead of needing a parallel status
// path.
type HumanReadableWriter struct {
	out io.Writer
}

// NewHumanReadableWriter wraps out, formatting every status line
// written to it as human-readable text instead of raw JSON.
func NewHumanReadableWriter(out io.Writer) *HumanReadableWriter {
	return &HumanReadableWriter{out: out}
}

// Write implements io.Writer. It expects one JSON status line (as
// produced by protocol.EncodeStatus) and ignores lines it cannot parse
// rather than erroring, so a malformed write never breaks the
// dispatch loop.
func (h *HumanReadableWriter) Write(p []byte) (int, error) {
	st, err := protocol.ParseStatus(p)
	if err != nil {
		return len(p), nil
	}
	line := formatStatus(st)
	if _, err := io.WriteString(h.out, line+"\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

func formatStatus(st protocol.Status) string {
	if len(st.Data) == 0 {
		return fmt.Sprintf("[%s] %s", st.Timestamp.Format("15:04:05"), st.Status)
	}
	var parts []string
	for k, v := range st.Data {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("[%s] %s (%s)", st.Timestamp.Format("15:04:05"), st.Status, strings.Join(parts, ", "))
}

// RunInteractiveMode behaves like RunHeadlessMode (auto-start, then
// wait) but additionally reads single-word shorthand or full JSON
// commands from r and dispatches them, for an operator driving the
// module directly from a terminal rather than through the master
// process. It returns when ctx is cancelled, a quit command is
// dispatched, or r reaches EOF. Status lines reach the operator
// through whatever StatusWriter d was constructed with - pass one
// wrapping a HumanReadableWriter for readable output.
func RunInteractiveMode(ctx context.Context, r io.Reader, d *Dispatcher, autoStart func(ctx context.Context) error, log *logging.Logger) {
	if autoStart != nil {
		if err := autoStart(ctx); err != nil {
			log.WithError(err).Warn("interactive mode: auto-start failed")
		}
	}

	reader := bufio.NewReader(r)
	cmds := make(chan protocol.Command, commandQueueCapacity)

	go func() {
		defer close(cmds)
		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				if cmd, ok := parseInteractiveLine(line); ok {
					select {
					case cmds <- cmd:
					case <-ctx.Done():
						return
					}
				} else if strings.TrimSpace(string(line)) != "" {
					log.WithField("line", strings.TrimSpace(string(line))).Warn("interactive mode: unrecognised input")
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				return
			}
		}
	}()

	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			if err := d.Dispatch(ctx, cmd); errors.Is(err, ErrStopDispatch) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
