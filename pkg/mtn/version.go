// Package mtn carries build/version metadata and debug-mode state, the
// same ambient role pkg/mutagen plays for the teacher: every other package
// that needs to gate on debug logging or report a version string depends
// on this package instead of hardcoding environment variable lookups.
//
// Grounded on pkg/mutagen/version.go and debug.go, with the wire-protocol
// version handshake (SendVersion/ReceiveVersion) dropped — it belongs to
// the sync protocol, explicitly out of scope (§1).
package mtn

import "fmt"

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Version is the module's version string, computed once at init.
var Version string

func init() {
	Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
}
