package drivers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

func writeSysDevice(t *testing.T, root, name, vendor, productID, productName string) {
	t.Helper()
	devDir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(devDir, 0o755))
	if vendor != "" {
		require.NoError(t, os.WriteFile(filepath.Join(devDir, "idVendor"), []byte(vendor+"\n"), 0o644))
	}
	if productID != "" {
		require.NoError(t, os.WriteFile(filepath.Join(devDir, "idProduct"), []byte(productID+"\n"), 0o644))
	}
	if productName != "" {
		require.NoError(t, os.WriteFile(filepath.Join(devDir, "product"), []byte(productName+"\n"), 0o644))
	}
}

func TestUSBDriverScansVendorAndProduct(t *testing.T) {
	root := t.TempDir()
	writeSysDevice(t, root, "1-1", "046d", "0825", "Logitech Webcam")
	writeSysDevice(t, root, "1-2", "", "", "") // hub: no ids, must be skipped

	d := &USBDriver{SysPath: root}
	devs, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "usb-1-1", devs[0].DeviceID)
	assert.Equal(t, "046d", devs[0].VendorID)
	assert.Equal(t, registry.InterfaceUSB, devs[0].Interface)
	assert.True(t, d.Owns(devs[0]))
}

func TestUSBDriverMissingSysPathReturnsNoDevicesNoError(t *testing.T) {
	d := &USBDriver{SysPath: filepath.Join(t.TempDir(), "does-not-exist")}
	devs, err := d.Scan()
	require.NoError(t, err)
	assert.Empty(t, devs)
}

func TestXBeeDriverOnlyMatchesKnownBridgeVendors(t *testing.T) {
	root := t.TempDir()
	writeSysDevice(t, root, "2-1", "0403", "6001", "") // FTDI bridge
	writeSysDevice(t, root, "2-2", "046d", "0825", "") // unrelated webcam

	d := &XBeeDriver{SysPath: root}
	devs, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "xbee-2-1", devs[0].DeviceID)
	assert.True(t, devs[0].IsWireless)
	assert.Equal(t, "wireless", devs[0].DeviceType)
}

func TestALSADriverParsesCardsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards")
	content := " 0 [PCH            ]: HDA-Intel - HDA Intel PCH\n" +
		" 1 [Audio           ]: USB-Audio - USB Audio Device\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d := &ALSADriver{CardsPath: path}
	devs, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, devs, 2)
	assert.Equal(t, "alsa-card0", devs[0].DeviceID)
	assert.Equal(t, "hw:1", devs[1].Port)
	assert.True(t, d.Owns(devs[0]))
}

func TestALSADriverMissingFileReturnsNoDevicesNoError(t *testing.T) {
	d := &ALSADriver{CardsPath: filepath.Join(t.TempDir(), "missing")}
	devs, err := d.Scan()
	require.NoError(t, err)
	assert.Empty(t, devs)
}

func TestSerialDriverGlobsConfiguredPatterns(t *testing.T) {
	dir := t.TempDir()
	ttyPath := filepath.Join(dir, "ttyUSB0")
	require.NoError(t, os.WriteFile(ttyPath, []byte{}, 0o644))

	d := &SerialDriver{Patterns: []string{filepath.Join(dir, "ttyUSB*")}}
	devs, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, registry.InterfaceSerial, devs[0].Interface)
	assert.Equal(t, 9600, devs[0].BaudRate)
	assert.True(t, d.Owns(devs[0]))
}

func TestSerialDriverNoMatchesReturnsEmpty(t *testing.T) {
	d := &SerialDriver{Patterns: []string{filepath.Join(t.TempDir(), "ttyNONE*")}}
	devs, err := d.Scan()
	require.NoError(t, err)
	assert.Empty(t, devs)
}

func TestNetworkDriverUnreachableHostYieldsNoDevices(t *testing.T) {
	d := NewNetworkDriver("this-host-should-not-resolve.invalid")
	devs, err := d.Scan()
	require.NoError(t, err)
	assert.Empty(t, devs)
	assert.Equal(t, "network", d.Name())
}
