//go:build !windows

package privilege

import "os"

// IsElevated reports whether the process runs with effective UID 0.
func IsElevated() bool {
	return os.Geteuid() == 0
}
