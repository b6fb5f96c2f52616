package drivers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// NetworkDriver resolves a fixed set of mDNS-style hostnames via
// net.LookupHost, trading true service-type discovery for a
// configurable hostname list: the eye tracker's network discovery
// narrows to "is the expected host reachable" rather than "what's
// broadcasting on the LAN".
type NetworkDriver struct {
	Hosts   []string // e.g. "eyetracker.local"
	Timeout time.Duration
}

// NewNetworkDriver returns a NetworkDriver probing the given hostnames.
func NewNetworkDriver(hosts ...string) *NetworkDriver {
	return &NetworkDriver{Hosts: hosts, Timeout: 500 * time.Millisecond}
}

func (d *NetworkDriver) Name() string { return "network" }

func (d *NetworkDriver) Scan() ([]registry.Device, error) {
	resolver := &net.Resolver{}
	var out []registry.Device
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	for _, host := range d.Hosts {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		addrs, err := resolver.LookupHost(ctx, host)
		cancel()
		if err != nil || len(addrs) == 0 {
			continue
		}
		out = append(out, registry.Device{
			DeviceID:    "network-" + host,
			DisplayName: fmt.Sprintf("EyeTracker %s (%s)", host, addrs[0]),
			Interface:   registry.InterfaceNetwork,
			Port:        addrs[0],
			DeviceType:  "network",
		})
	}
	return out, nil
}

// Owns reports whether a device was discovered by this driver.
func (d *NetworkDriver) Owns(dev registry.Device) bool {
	return dev.Interface == registry.InterfaceNetwork
}
