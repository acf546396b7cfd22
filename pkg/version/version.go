// Package version provides build and version information for docsearch.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the docsearch version, set at build time with
// -ldflags "-X github.com/Aman-CERP/docsearch/pkg/version.Version=v1.2.3".
var Version = "dev"

// Build information, also set via ldflags.
var (
	// Commit is the short git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns structured version information. When the binary was built
// without ldflags, the commit falls back to the VCS revision recorded by the
// Go toolchain.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if info.Commit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					info.Commit = s.Value[:7]
				}
			}
		}
	}
	return info
}

// String returns a one-line version string with build info.
func String() string {
	i := GetInfo()
	return fmt.Sprintf("docsearch %s (commit: %s, built: %s, go: %s)", i.Version, i.Commit, i.Date, i.GoVersion)
}

// Short returns just the version.
func Short() string {
	return Version
}
