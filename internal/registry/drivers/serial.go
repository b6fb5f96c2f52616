package drivers

import (
	"fmt"
	"path/filepath"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// SerialDriver enumerates tty character devices matching one of
// Patterns (default /dev/ttyUSB*, /dev/ttyACM*), the common kernel
// naming for USB-serial GPS and response-time hardware.
type SerialDriver struct {
	Patterns []string
}

// NewSerialDriver returns a SerialDriver watching the standard
// USB-serial device globs.
func NewSerialDriver() *SerialDriver {
	return &SerialDriver{Patterns: []string{"/dev/ttyUSB*", "/dev/ttyACM*"}}
}

func (d *SerialDriver) Name() string { return "serial" }

func (d *SerialDriver) Scan() ([]registry.Device, error) {
	patterns := d.Patterns
	if len(patterns) == 0 {
		patterns = []string{"/dev/ttyUSB*", "/dev/ttyACM*"}
	}

	var out []registry.Device
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, port := range matches {
			out = append(out, registry.Device{
				DeviceID:    "serial-" + filepath.Base(port),
				DisplayName: fmt.Sprintf("Serial device %s", filepath.Base(port)),
				Interface:   registry.InterfaceSerial,
				Port:        port,
				BaudRate:    9600,
				DeviceType:  "wired",
			})
		}
	}
	return out, nil
}

// Owns reports whether a device was discovered by this driver.
func (d *SerialDriver) Owns(dev registry.Device) bool {
	return dev.Interface == registry.InterfaceSerial
}
