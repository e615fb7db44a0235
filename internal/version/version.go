// Package version holds the engine version and the config compatibility rule.
package version

// Version is the engine version, set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-sim/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

// GetVersion returns the engine version.
func GetVersion() string {
	return Version
}
