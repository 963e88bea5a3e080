package config

// Set at link time:
//
//	go build -ldflags "-X plotrisk/internal/config.version=1.2.3 \
//	    -X plotrisk/internal/config.commit=$(git rev-parse --short HEAD)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String formats the build as version (commit).
func (b BuildInfo) String() string {
	return b.Version + " (" + b.Commit + ")"
}
