//go:build !windows

package restore

// CreatePoint is a no-op on non-Windows platforms.
func CreatePoint(_ string) error {
	return nil
}
