package drivers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// xbeeBridgeVendors are USB-serial bridge chip vendor IDs commonly
// used on XBee explorer boards (FTDI, Silicon Labs CP210x). Scanning
// for these rather than the XBee radio itself mirrors how the serial
// port actually enumerates: the host only ever sees the bridge chip.
var xbeeBridgeVendors = map[string]bool{
	"0403": true, // FTDI
	"10c4": true, // Silicon Labs CP210x
}

// XBeeDriver enumerates USB-serial bridges matching a known XBee
// explorer vendor ID, marking the resulting device wireless.
type XBeeDriver struct {
	SysPath string // defaults to /sys/bus/usb/devices
}

// NewXBeeDriver returns an XBeeDriver reading the standard sysfs path.
func NewXBeeDriver() *XBeeDriver {
	return &XBeeDriver{SysPath: "/sys/bus/usb/devices"}
}

func (d *XBeeDriver) Name() string { return "xbee" }

func (d *XBeeDriver) Scan() ([]registry.Device, error) {
	root := d.SysPath
	if root == "" {
		root = "/sys/bus/usb/devices"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var out []registry.Device
	for _, e := range entries {
		devPath := filepath.Join(root, e.Name())
		vendor := readSysFile(filepath.Join(devPath, "idVendor"))
		if !xbeeBridgeVendors[vendor] {
			continue
		}
		product := readSysFile(filepath.Join(devPath, "idProduct"))
		name := readSysFile(filepath.Join(devPath, "product"))
		if name == "" {
			name = fmt.Sprintf("DRT %s", e.Name())
		}
		out = append(out, registry.Device{
			DeviceID:    "xbee-" + e.Name(),
			DisplayName: name,
			Interface:   registry.InterfaceXBee,
			Port:        devPath,
			DeviceType:  "wireless",
			IsWireless:  true,
			VendorID:    vendor,
			ProductID:   product,
		})
	}
	return out, nil
}

// Owns reports whether a device was discovered by this driver.
func (d *XBeeDriver) Owns(dev registry.Device) bool {
	return dev.Interface == registry.InterfaceXBee
}
