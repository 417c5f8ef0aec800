// Package buildinfo carries version metadata stamped by the linker.
package buildinfo

// Set with -ldflags, e.g.
//
//	-X 'github.com/nearmod/keybot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/nearmod/keybot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/nearmod/keybot/core/buildinfo.Date=2026-10-18T12:00:00Z'
var (
	// Version reports the release tag of the build.
	Version = "dev"
	// Commit reports the source commit of the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a one-line summary for logs and the /version reply.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
