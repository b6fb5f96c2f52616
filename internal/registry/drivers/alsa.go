package drivers

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// cardLineRE matches one /proc/asound/cards header line:
// " 0 [PCH            ]: HDA-Intel - HDA Intel PCH"
var cardLineRE = regexp.MustCompile(`^\s*(\d+)\s+\[([^\]]*)\]:\s*(.*)$`)

// ALSADriver enumerates sound cards from /proc/asound/cards without
// opening any ALSA device.
type ALSADriver struct {
	CardsPath string // defaults to /proc/asound/cards
}

// NewALSADriver returns an ALSADriver reading the standard procfs path.
func NewALSADriver() *ALSADriver {
	return &ALSADriver{CardsPath: "/proc/asound/cards"}
}

func (d *ALSADriver) Name() string { return "alsa" }

func (d *ALSADriver) Scan() ([]registry.Device, error) {
	path := d.CardsPath
	if path == "" {
		path = "/proc/asound/cards"
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no ALSA subsystem on this host
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []registry.Device
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := cardLineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		cardIndex, cardName, desc := m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		display := desc
		if cardName != "" {
			display = fmt.Sprintf("USB Audio %s (%s)", cardName, desc)
		}
		out = append(out, registry.Device{
			DeviceID:    "alsa-card" + cardIndex,
			DisplayName: display,
			Interface:   registry.InterfaceUSB,
			Port:        "hw:" + cardIndex,
			DeviceType:  "wired",
		})
	}
	return out, scanner.Err()
}

// Owns reports whether a device was discovered by this driver.
func (d *ALSADriver) Owns(dev registry.Device) bool {
	return strings.HasPrefix(dev.DeviceID, "alsa-")
}
