// Package buildinfo holds version information stamped at build time:
//
//	go build -ldflags "-X github.com/fourbar/fourbar/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/fourbar/fourbar/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/fourbar/fourbar/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/fourbar
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", Version, Commit, Date)
}
