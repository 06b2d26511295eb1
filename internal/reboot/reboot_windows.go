//go:build windows

package reboot

import (
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Schedule asks Windows to restart after delay, showing message to any
// logged-in user. The shutdown reason code marks a planned
// operating-system servicing restart.
func Schedule(delay time.Duration, message string) error {
	secs := int(delay / time.Second)
	if secs < 0 {
		secs = 0
	}

	cmd := exec.Command("shutdown", "/r", "/t", strconv.Itoa(secs), "/c", message, "/d", "p:2:17")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("shutdown scheduling failed: %w: %s", err, out)
	}
	return nil
}

// Cancel aborts a previously scheduled restart.
func Cancel() error {
	if out, err := exec.Command("shutdown", "/a").CombinedOutput(); err != nil {
		return fmt.Errorf("shutdown abort failed: %w: %s", err, out)
	}
	return nil
}
