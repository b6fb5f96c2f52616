// Package drivers implements the registry.Driver adapters: one file
// per discovery mechanism, each reading a Linux sysfs/procfs surface
// rather than opening the device itself.
package drivers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// USBDriver enumerates /sys/bus/usb/devices, classifying by vendor/
// product ID the registry's classification table already knows how to
// read. Devices without both idVendor and idProduct files (hubs, root
// devices) are skipped.
type USBDriver struct {
	SysPath string // defaults to /sys/bus/usb/devices
}

// NewUSBDriver returns a USBDriver reading the standard sysfs path.
func NewUSBDriver() *USBDriver {
	return &USBDriver{SysPath: "/sys/bus/usb/devices"}
}

func (d *USBDriver) Name() string { return "usb" }

func (d *USBDriver) Scan() ([]registry.Device, error) {
	root := d.SysPath
	if root == "" {
		root = "/sys/bus/usb/devices"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no USB subsystem on this host (e.g. a container): not an error
		}
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var out []registry.Device
	for _, e := range entries {
		devPath := filepath.Join(root, e.Name())
		vendor := readSysFile(filepath.Join(devPath, "idVendor"))
		product := readSysFile(filepath.Join(devPath, "idProduct"))
		if vendor == "" || product == "" {
			continue
		}
		if xbeeBridgeVendors[vendor] {
			continue // claimed by the XBee driver's sweep
		}
		name := readSysFile(filepath.Join(devPath, "product"))
		if name == "" {
			name = fmt.Sprintf("USB device %s", e.Name())
		}
		out = append(out, registry.Device{
			DeviceID:    "usb-" + e.Name(),
			DisplayName: name,
			Interface:   registry.InterfaceUSB,
			Port:        devPath,
			DeviceType:  "wired",
			VendorID:    vendor,
			ProductID:   product,
		})
	}
	return out, nil
}

// Owns reports whether a device was discovered by this driver, for the
// scanner's removal-aging scope. Matched by device-id prefix rather
// than interface: ALSA cards also report InterfaceUSB but are aged by
// their own driver.
func (d *USBDriver) Owns(dev registry.Device) bool {
	return strings.HasPrefix(dev.DeviceID, "usb-")
}

func readSysFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "0x"))
}
