package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

type fakeDriver struct {
	mu      sync.Mutex
	devices []Device
	name    string
}

func (f *fakeDriver) Scan() ([]Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeDriver) Name() string { return f.name }

func (f *fakeDriver) set(devices []Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devices
}

func TestClassifyByVendorIDAndNamePrefix(t *testing.T) {
	tbl := NewClassificationTable()
	assert.Equal(t, FamilyCamera, tbl.Classify(InterfaceUSB, "046d", "", "Logitech Webcam"))
	assert.Equal(t, FamilyAudio, tbl.Classify(InterfaceUSB, "", "", "USB Audio Device"))
	assert.Equal(t, FamilyUnknown, tbl.Classify(InterfaceUSB, "ffff", "", "Mystery Gadget"))
}

func TestClassificationTableAddRule(t *testing.T) {
	tbl := NewClassificationTable()
	tbl.AddRule(InterfaceSerial, "", "", "Acme-GPS", FamilyGPS)
	assert.Equal(t, FamilyGPS, tbl.Classify(InterfaceSerial, "", "", "Acme-GPS-200"))
}

func TestRegistryDiscoversClassifiesAndDedupes(t *testing.T) {
	r := New(logging.NewTestLogger("registry"))
	sub := r.Subscribe()

	r.ApplySweep("usb", []Device{
		{DeviceID: "usb-1", DisplayName: "Logitech Webcam", Interface: InterfaceUSB, VendorID: "046d"},
	}, nil)
	r.ApplySweep("usb", []Device{
		{DeviceID: "usb-1", DisplayName: "Logitech Webcam", Interface: InterfaceUSB, VendorID: "046d"},
	}, nil)

	devices := r.List(FamilyUnknown)
	require.Len(t, devices, 1)
	assert.Equal(t, FamilyCamera, devices[0].ModuleID)
	assert.True(t, devices[0].Connecting)

	var events []Event
	for len(events) < 2 {
		select {
		case e := <-sub:
			events = append(events, e)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for discovery events")
		}
	}
	assert.Equal(t, EventDiscovered, events[0].Type)
	assert.Equal(t, EventConnecting, events[1].Type)
}

func TestRegistryPromotesToConnected(t *testing.T) {
	r := New(logging.NewTestLogger("registry"))
	r.ApplySweep("usb", []Device{{DeviceID: "usb-1", Interface: InterfaceUSB}}, nil)

	d, ok := r.MarkConnected("usb-1")
	require.True(t, ok)
	assert.True(t, d.Connected)
	assert.False(t, d.Connecting)

	_, missing := r.MarkConnected("does-not-exist")
	assert.False(t, missing)
}

func TestRegistryRemovesAfterMissedSweeps(t *testing.T) {
	r := New(logging.NewTestLogger("registry"))
	owns := func(Device) bool { return true }

	r.ApplySweep("usb", []Device{{DeviceID: "usb-1", Interface: InterfaceUSB}}, owns)
	require.Len(t, r.List(FamilyUnknown), 1)

	// First empty sweep: one miss, still present (N=2).
	r.ApplySweep("usb", nil, owns)
	require.Len(t, r.List(FamilyUnknown), 1)

	// Second consecutive empty sweep: removed.
	r.ApplySweep("usb", nil, owns)
	assert.Len(t, r.List(FamilyUnknown), 0)
}

func TestRegistryResetsMissCounterOnResighting(t *testing.T) {
	r := New(logging.NewTestLogger("registry"))
	owns := func(Device) bool { return true }
	dev := []Device{{DeviceID: "usb-1", Interface: InterfaceUSB}}

	r.ApplySweep("usb", dev, owns)
	r.ApplySweep("usb", nil, owns) // one miss
	r.ApplySweep("usb", dev, owns) // resighted, miss counter resets
	r.ApplySweep("usb", nil, owns) // one miss again, not two in a row
	require.Len(t, r.List(FamilyUnknown), 1)
}

func TestScannerPollsEachDriverOnItsOwnCadence(t *testing.T) {
	r := New(logging.NewTestLogger("registry"))
	fast := &fakeDriver{name: "fast"}
	fast.set([]Device{{DeviceID: "fast-1", Interface: InterfaceUSB}})

	scanner := NewScanner(r, logging.NewTestLogger("discovery"), DriverSchedule{
		Driver: fast, Interval: 10 * time.Millisecond, Owns: func(Device) bool { return true },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	scanner.Run(ctx)

	assert.Len(t, r.List(FamilyUnknown), 1)
}
