package registry

import (
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// missedSweepsBeforeRemoval: a device absent from
// this many consecutive discovery sweeps is considered removed.
const missedSweepsBeforeRemoval = 2

// Driver is implemented by one discovery mechanism (USB enumeration,
// serial probing, ALSA card-file polling, mDNS/RTSP scanning, XBee
// scanning). Each driver decides its own Device.Interface/VendorID/
// ProductID/DisplayName; the Registry classifies and dedupes.
type Driver interface {
	// Scan returns every device currently visible to this driver. It
	// should be side-effect free (no opens) and safe to call on its own
	// cadence without coordination with other drivers.
	Scan() ([]Device, error)
	// Name identifies the driver in logs (e.g. "usb", "alsa", "xbee").
	Name() string
}

// Registry is the authoritative device table. It is
// safe for concurrent use; Subscribe callers receive events on a
// per-subscriber channel buffered to 32. Events are sent without
// blocking by the goroutine that caused them, so a slow subscriber
// never blocks discovery; an event for a full channel is dropped and
// logged.
type Registry struct {
	mu          sync.RWMutex
	table       *ClassificationTable
	devices     map[string]*trackedDevice
	logger      *logging.Logger
	subscribers []chan Event
}

type trackedDevice struct {
	device       Device
	missedSweeps int
}

// New returns an empty Registry using the default classification
// table. Callers may reach into Table() to add site-specific rules.
func New(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.New("registry")
	}
	return &Registry{
		table:   NewClassificationTable(),
		devices: make(map[string]*trackedDevice),
		logger:  logger,
	}
}

// Table returns the live classification table for this registry.
func (r *Registry) Table() *ClassificationTable { return r.table }

// Subscribe returns a channel of future registry events. The channel
// is never closed (the registry lives for the orchestrator process
// lifetime); callers drop the channel by simply no longer reading from
// it.
func (r *Registry) Subscribe() <-chan Event {
	ch := make(chan Event, 32)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()
	return ch
}

func (r *Registry) publish(evt Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- evt:
		default:
			r.logger.WithFields(logging.Fields{"device_id": evt.Device.DeviceID}).Warn("dropping registry event: subscriber channel full")
		}
	}
}

// ApplySweep merges one driver's scan results into the table: new
// devices are classified and marked discovered+connecting; devices
// seen again have their miss counter reset; devices from this driver
// missing for missedSweepsBeforeRemoval consecutive sweeps are
// removed. ownedByDriver scopes aging to the devices this driver is
// responsible for, so one driver's sweep never ages out another
// driver's devices.
func (r *Registry) ApplySweep(driverName string, found []Device, ownedByDriver func(Device) bool) {
	r.mu.Lock()
	seen := make(map[string]bool, len(found))
	var toPublish []Event

	for _, d := range found {
		seen[d.DeviceID] = true
		if d.ModuleID == FamilyUnknown {
			d.ModuleID = r.table.Classify(d.Interface, d.VendorID, d.ProductID, d.DisplayName)
		}
		d.lastSeen = time.Now()

		existing, known := r.devices[d.DeviceID]
		if !known {
			d.Connecting = true
			r.devices[d.DeviceID] = &trackedDevice{device: d}
			toPublish = append(toPublish, Event{Type: EventDiscovered, Device: d})
			toPublish = append(toPublish, Event{Type: EventConnecting, Device: d})
			continue
		}
		existing.missedSweeps = 0
		d.Connected = existing.device.Connected
		d.Connecting = existing.device.Connecting
		existing.device = d
	}

	for id, td := range r.devices {
		if seen[id] {
			continue
		}
		if ownedByDriver != nil && !ownedByDriver(td.device) {
			continue
		}
		td.missedSweeps++
		if td.missedSweeps >= missedSweepsBeforeRemoval {
			delete(r.devices, id)
			toPublish = append(toPublish, Event{Type: EventRemoved, Device: td.device})
		}
	}
	r.mu.Unlock()

	for _, evt := range toPublish {
		r.publish(evt)
	}
}

// MarkConnected promotes a device from connecting to connected once
// the owning module instance reports it usable.
func (r *Registry) MarkConnected(deviceID string) (Device, bool) {
	r.mu.Lock()
	td, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return Device{}, false
	}
	td.device.Connecting = false
	td.device.Connected = true
	d := td.device
	r.mu.Unlock()

	r.publish(Event{Type: EventConnected, Device: d})
	return d, true
}

// Connect marks a discovered device as connecting, mirroring the
// EventConnecting transition ApplySweep performs for brand-new
// devices; used when an operator explicitly requests a connection via
// the REST control plane instead of waiting on the next sweep.
func (r *Registry) Connect(deviceID string) (Device, bool) {
	r.mu.Lock()
	td, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return Device{}, false
	}
	td.device.Connecting = true
	d := td.device
	r.mu.Unlock()

	r.publish(Event{Type: EventConnecting, Device: d})
	return d, true
}

// Disconnect clears a device's connected/connecting flags without
// removing it from the table - it stays discovered until aged out by
// ApplySweep, matching "removed" meaning "absent from hardware", not
// "operator asked to stop using it".
func (r *Registry) Disconnect(deviceID string) (Device, bool) {
	r.mu.Lock()
	td, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return Device{}, false
	}
	td.device.Connected = false
	td.device.Connecting = false
	d := td.device
	r.mu.Unlock()

	r.publish(Event{Type: EventDisconnected, Device: d})
	return d, true
}

// Get returns the current record for deviceID.
func (r *Registry) Get(deviceID string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	td, ok := r.devices[deviceID]
	if !ok {
		return Device{}, false
	}
	return td.device, true
}

// List returns a snapshot of every known device, optionally filtered
// by family (pass FamilyUnknown for no filter).
func (r *Registry) List(family DeviceFamily) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.devices))
	for _, td := range r.devices {
		if family != FamilyUnknown && td.device.ModuleID != family {
			continue
		}
		out = append(out, td.device)
	}
	return out
}
