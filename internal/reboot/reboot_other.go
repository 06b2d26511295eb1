//go:build !windows

package reboot

import (
	"fmt"
	"os/exec"
	"time"
)

// Schedule asks the system to restart after delay. shutdown(8) only
// takes whole minutes, so sub-minute delays round up to one minute.
func Schedule(delay time.Duration, message string) error {
	minutes := int((delay + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	cmd := exec.Command("shutdown", "-r", fmt.Sprintf("+%d", minutes), message)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("shutdown scheduling failed: %w: %s", err, out)
	}
	return nil
}

// Cancel aborts a previously scheduled restart.
func Cancel() error {
	if out, err := exec.Command("shutdown", "-c").CombinedOutput(); err != nil {
		return fmt.Errorf("shutdown abort failed: %w: %s", err, out)
	}
	return nil
}

// DetectPending always reports no pending reboot off Windows.
func DetectPending() (bool, []string) {
	return false, nil
}
