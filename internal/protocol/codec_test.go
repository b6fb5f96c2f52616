package protocol

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseCommandRoundTrip(t *testing.T) {
	line, err := EncodeCommand(CmdStartRecording, map[string]interface{}{
		"trial_number": 2,
		"trial_label":  "t2",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(line), "\n"))

	cmd, err := ParseCommand(line)
	require.NoError(t, err)
	assert.Equal(t, CmdStartRecording, cmd.Name)
	assert.Equal(t, 2, cmd.GetInt("trial_number"))
	assert.Equal(t, "t2", cmd.Get("trial_label"))
	assert.False(t, cmd.Timestamp.IsZero())
}

func TestParseCommandPreservesExcessKeys(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"toggle_device","device_id":"mic0","enabled":true,"extra":"kept"}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, "mic0", cmd.Get("device_id"))
	assert.True(t, cmd.GetBool("enabled"))
	assert.Equal(t, "kept", cmd.Get("extra"))
}

func TestParseCommandRejectsMalformedInput(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"command": "start_recording`), // truncated JSON
		[]byte(`["not", "an", "object"]`),
		[]byte(`{"no_command_key": true}`),
		[]byte(`{"command": 5}`),
	}
	for _, c := range cases {
		_, err := ParseCommand(c)
		var malformed *ErrMalformedCommand
		assert.ErrorAs(t, err, &malformed, "input: %s", c)
	}
}

func TestReadCommandStopsAtEOFWithoutLoopingForever(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := ReadCommand(r)
	assert.Error(t, err)
}

func TestStatusWriterSendIsAtomicPerLineAndFlushed(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStatusWriter(&buf)
	require.NoError(t, sw.Send(StatusInitialized, map[string]interface{}{"devices": 3}))

	status, err := ParseStatus(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, StatusInitialized, status.Status)
	assert.EqualValues(t, 3, status.Data["devices"])
}

func TestStatusErrorIsSanitisedAndBounded(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStatusWriter(&buf)
	long := strings.Repeat("x", maxErrorMessageLen+50) + "\ntrailer"
	require.NoError(t, sw.Error(long))

	status, err := ParseStatus(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, status.IsError())
	msg, _ := status.Data["message"].(string)
	assert.LessOrEqual(t, len(msg), maxErrorMessageLen)
	assert.NotContains(t, msg, "\n")
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, Status{Status: StatusError}.IsError())
	assert.True(t, Status{Status: StatusWarning}.IsWarning())
	assert.False(t, Status{Status: StatusInitialized}.IsError())
}

func TestParseStatusRejectsNonStatusType(t *testing.T) {
	_, err := ParseStatus([]byte(`{"type":"other","status":"x","data":{}}`))
	assert.Error(t, err)
}
