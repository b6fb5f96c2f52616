// Package registry implements the device registry and discovery layer
// of the master process: a classification table that maps raw
// discovery hits onto a typed DeviceFamily, and a Registry that dedupes, ages out, and promotes devices
// through the discovered -> connecting -> connected lifecycle.
//
// Each physical discovery mechanism (USB enumeration, serial probing,
// ALSA card-file polling, mDNS/RTSP discovery for network devices,
// XBee scanning) is an external collaborator; this
// package defines the Driver interface those adapters implement and
// supplies a Scanner that polls an arbitrary set of Drivers, each on
// its own cadence.
package registry
