package process

import (
	"bufio"
	"context"
	"io"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// statusReaderService reads newline-delimited status lines from a
// module child's stdout, parses them with the protocol codec, caches
// geometry_changed payloads on the owning Process, and forwards every
// status onto Process.statuses. It implements suture.Service so a
// panic while decoding a malformed line gets the child's status
// stream restarted instead of losing it for good.
type statusReaderService struct {
	proc   *Process
	stdout io.Reader
	log    *logging.Logger
}

// Serve implements suture.Service.
func (s *statusReaderService) Serve(ctx context.Context) error {
	reader := bufio.NewReader(s.stdout)
	for {
		select {
		case <-ctx.Done():
			s.proc.closeStatuses()
			return ctx.Err()
		default:
		}

		st, err := protocol.ReadStatus(reader)
		if err != nil {
			if err == io.EOF {
				s.proc.closeStatuses()
				return nil
			}
			s.log.WithError(err).WithField("module", s.proc.spec.Name).Warn("status reader: malformed line, skipping")
			continue
		}

		if st.Status == protocol.StatusGeometryChanged {
			s.proc.recordGeometry(Geometry{
				Width:  intField(st.Data, "width"),
				Height: intField(st.Data, "height"),
				X:      intField(st.Data, "x"),
				Y:      intField(st.Data, "y"),
			})
		}

		select {
		case s.proc.statuses <- st:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func intField(data map[string]interface{}, key string) int {
	v, ok := data[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
