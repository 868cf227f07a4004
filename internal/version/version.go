// Package version carries build metadata stamped in via ldflags:
//
//	go build -ldflags "-X github.com/dexwatch/dexwatch/internal/version.Version=1.0.0 \
//	                   -X github.com/dexwatch/dexwatch/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/dexwatch/dexwatch/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String returns a single-line version summary.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
