// ABOUTME: Version information for the VBAN sink
// ABOUTME: Reported in logs, mDNS TXT records and the monitor feed
package version

const (
	Version = "0.3.0"
	Product = "vban-sink"
)

// String returns the product and version for display
func String() string {
	return Product + " " + Version
}
