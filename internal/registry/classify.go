package registry

import "strings"

// classificationRule is one row of the (interface, vid, pid, name
// prefix) -> DeviceFamily table used in place of
// substring heuristics scattered through handler code. Empty fields
// are wildcards.
type classificationRule struct {
	Interface  Interface
	VendorID   string
	ProductID  string
	NamePrefix string
	Family     DeviceFamily
}

// defaultClassificationTable is seeded with the module families named
// throughout the system: Audio, Cameras, GPS, EyeTracker, DRT, VOG,
// Notes. VID/PID entries are illustrative device classes (USB audio
// class, UVC webcams, u-blox GPS, common XBee-based response-time and
// goggles hardware); unknown hardware falls through to the name-prefix
// rules, e.g. "USB" in the ALSA card line marks an audio device,
// expressed as table data rather than inline string checks.
var defaultClassificationTable = []classificationRule{
	{Interface: InterfaceUSB, VendorID: "046d", Family: FamilyCamera},       // Logitech UVC webcams
	{Interface: InterfaceUSB, NamePrefix: "USB Audio", Family: FamilyAudio},  // USB Audio Class devices
	{Interface: InterfaceUSB, NamePrefix: "UVC Camera", Family: FamilyCamera},
	{Interface: InterfaceCSI, Family: FamilyCamera},
	{Interface: InterfaceUSB, VendorID: "1546", Family: FamilyGPS}, // u-blox
	{Interface: InterfaceSerial, NamePrefix: "GPS", Family: FamilyGPS},
	{Interface: InterfaceNetwork, NamePrefix: "EyeTracker", Family: FamilyEyeTracker},
	{Interface: InterfaceNetwork, NamePrefix: "Tobii", Family: FamilyEyeTracker},
	{Interface: InterfaceXBee, NamePrefix: "DRT", Family: FamilyDRT},
	{Interface: InterfaceXBee, NamePrefix: "VOG", Family: FamilyVOG},
	{Interface: InterfaceXBee, NamePrefix: "Goggles", Family: FamilyVOG},
}

// ClassificationTable is a mutable copy of the default table; callers
// may append site-specific rules (new hardware SKUs) without touching
// the package-level default.
type ClassificationTable struct {
	rules []classificationRule
}

// NewClassificationTable returns a table seeded with the built-in
// rules above.
func NewClassificationTable() *ClassificationTable {
	rules := make([]classificationRule, len(defaultClassificationTable))
	copy(rules, defaultClassificationTable)
	return &ClassificationTable{rules: rules}
}

// AddRule appends a classification rule, evaluated in insertion order
// after the built-ins, so site-specific rules only apply when no
// built-in rule matches first. Call with family=FamilyUnknown never
// makes sense and is rejected by Classify (returns FamilyUnknown).
func (t *ClassificationTable) AddRule(iface Interface, vendorID, productID, namePrefix string, family DeviceFamily) {
	t.rules = append(t.rules, classificationRule{
		Interface: iface, VendorID: vendorID, ProductID: productID,
		NamePrefix: namePrefix, Family: family,
	})
}

// Classify returns the DeviceFamily for a raw discovery hit, or
// FamilyUnknown if no rule matches.
func (t *ClassificationTable) Classify(iface Interface, vendorID, productID, displayName string) DeviceFamily {
	for _, r := range t.rules {
		if r.Interface != iface {
			continue
		}
		if r.VendorID != "" && !strings.EqualFold(r.VendorID, vendorID) {
			continue
		}
		if r.ProductID != "" && !strings.EqualFold(r.ProductID, productID) {
			continue
		}
		if r.NamePrefix != "" && !strings.HasPrefix(strings.ToLower(displayName), strings.ToLower(r.NamePrefix)) {
			continue
		}
		return r.Family
	}
	return FamilyUnknown
}
