// Package buildinfo holds version details stamped in at build time with
// -ldflags "-X github.com/bxservice/hibiscus-recon/internal/buildinfo.Version=...".
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the line printed by hibiscus --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
