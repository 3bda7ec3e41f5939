// Package version carries build identification, overridable at link time
// with -ldflags "-X github.com/qashinka/PoseLockTool/internal/version.Version=...".
package version

var (
	// Version is the current release version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
