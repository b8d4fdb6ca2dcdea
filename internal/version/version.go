// ABOUTME: Build version information
// ABOUTME: Overridden at link time with -ldflags "-X .../version.Version=..."
package version

import "fmt"

var (
	// Version is the release version
	Version = "0.1.0"

	// Commit is the source revision the binary was built from
	Commit = "unknown"
)

const (
	// Product is the product name reported to ASR workers and renderers
	Product = "mindscribe"

	// Manufacturer is the vendor string
	Manufacturer = "Mindscribe"
)

// String returns "mindscribe 0.1.0 (abc123)"
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Commit)
}
