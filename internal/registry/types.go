package registry

import "time"

// DeviceFamily identifies which module family owns a device, replacing
// stringly-typed module_id checks.
type DeviceFamily int

const (
	FamilyUnknown DeviceFamily = iota
	FamilyAudio
	FamilyCamera
	FamilyGPS
	FamilyEyeTracker
	FamilyDRT  // response-time device
	FamilyVOG  // goggles
	FamilyNotes
)

func (f DeviceFamily) String() string {
	switch f {
	case FamilyAudio:
		return "audio"
	case FamilyCamera:
		return "cameras"
	case FamilyGPS:
		return "gps"
	case FamilyEyeTracker:
		return "eyetracker"
	case FamilyDRT:
		return "drt"
	case FamilyVOG:
		return "vog"
	case FamilyNotes:
		return "notes"
	default:
		return "unknown"
	}
}

// Interface is the physical transport a Device was discovered over.
type Interface int

const (
	InterfaceUSB Interface = iota
	InterfaceSerial
	InterfaceNetwork
	InterfaceXBee
	InterfaceCSI
)

func (i Interface) String() string {
	switch i {
	case InterfaceUSB:
		return "usb"
	case InterfaceSerial:
		return "serial"
	case InterfaceNetwork:
		return "network"
	case InterfaceXBee:
		return "xbee"
	case InterfaceCSI:
		return "csi"
	default:
		return "unknown"
	}
}

// Device is a discovered or connected hardware endpoint.
type Device struct {
	DeviceID    string
	DisplayName string
	ModuleID    DeviceFamily
	Interface   Interface
	Port        string
	BaudRate    int // 0 if not applicable
	IsWireless  bool
	DeviceType  string // refinement within a family, e.g. "wired"/"wireless"
	Connected   bool
	Connecting  bool
	Metadata    map[string]string

	// VendorID/ProductID back the classification table; NamePrefix is
	// matched against DisplayName when vid/pid classification misses
	// (e.g. ALSA card lines only expose a name, no USB VID/PID).
	VendorID  string
	ProductID string

	lastSeen time.Time
}

// EventType names the registry transitions emitted as devices are
// discovered, promoted, or aged out.
type EventType int

const (
	EventDiscovered EventType = iota
	EventConnecting
	EventConnected
	EventDisconnected
	EventRemoved
)

func (e EventType) String() string {
	switch e {
	case EventDiscovered:
		return "discovered"
	case EventConnecting:
		return "connecting"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes a single registry state transition.
type Event struct {
	Type   EventType
	Device Device
}
