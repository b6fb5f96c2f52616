package testsupport

import (
	"fmt"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// FakeDevice returns a deterministic registry.Device for conformance
// tests, varying only by index so callers can build small fleets
// without hand-writing every field.
func FakeDevice(family registry.DeviceFamily, index int) registry.Device {
	id := fmt.Sprintf("%s-fake-%03d", family.String(), index)
	return registry.Device{
		DeviceID:    id,
		DisplayName: fmt.Sprintf("Fake %s device %d", family.String(), index),
		ModuleID:    family,
		Interface:   registry.InterfaceUSB,
		Port:        fmt.Sprintf("/dev/fake%d", index),
		DeviceType:  "wired",
		VendorID:    "0000",
		ProductID:   fmt.Sprintf("%04d", index),
	}
}

// FakeWirelessDevice is FakeDevice with IsWireless/DeviceType set for
// tests exercising the NOT_WIRELESS_DEVICE boundary.
func FakeWirelessDevice(family registry.DeviceFamily, index int) registry.Device {
	d := FakeDevice(family, index)
	d.IsWireless = true
	d.DeviceType = "wireless"
	d.Interface = registry.InterfaceXBee
	return d
}

// FakeStatus builds a well-formed protocol.Status with the given
// status name and data payload, stamping the current time - a
// shorthand for the boilerplate every module-runtime conformance test
// otherwise repeats.
func FakeStatus(status string, data map[string]interface{}) protocol.Status {
	return protocol.Status{Status: status, Timestamp: time.Now().UTC(), Data: data}
}

// FakeInitialized returns the "initialized" status a module emits
// after successful startup.
func FakeInitialized(devices int, session string) protocol.Status {
	return FakeStatus(protocol.StatusInitialized, map[string]interface{}{
		"devices": devices,
		"session": session,
	})
}

// FakeRecordingStarted returns the "recording_started" status.
func FakeRecordingStarted(devices, recordingCount int) protocol.Status {
	return FakeStatus(protocol.StatusRecordingStarted, map[string]interface{}{
		"devices":         devices,
		"recording_count": recordingCount,
	})
}

// FakeCommand builds a protocol.Command without going through the
// wire encoder, for tests that exercise a Dispatcher directly.
func FakeCommand(name string, params map[string]interface{}) protocol.Command {
	return protocol.Command{Name: name, Timestamp: time.Now().UTC(), Params: params}
}
