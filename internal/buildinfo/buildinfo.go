// Package buildinfo holds version metadata injected at link time via
// -ldflags "-X bindkit/internal/buildinfo.Version=...".
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("bindkit %s (commit=%s, date=%s)", Version, Commit, Date)
}
