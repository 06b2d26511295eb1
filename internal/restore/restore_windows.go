//go:build windows

package restore

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// CreatePoint creates a Windows System Restore point with the given
// description. Best-effort: callers log the error and keep going, a
// missing restore point must not block the patch cycle.
func CreatePoint(description string) error {
	var (
		srclientDLL           = windows.NewLazySystemDLL("srclient.dll")
		procSRSetRestorePoint = srclientDLL.NewProc("SRSetRestorePointW")
	)

	if err := procSRSetRestorePoint.Find(); err != nil {
		return fmt.Errorf("SRSetRestorePoint not available: %w", err)
	}

	// RESTOREPOINTINFOW
	type restorePointInfo struct {
		EventType        uint32
		RestorePointType uint32
		SequenceNumber   int64
		Description      [256]uint16
	}

	// STATEMGRSTATUS
	type statemgrStatus struct {
		Status         uint32
		SequenceNumber int64
	}

	const (
		beginSystemChange  = 100
		applicationInstall = 0
	)

	rpi := restorePointInfo{
		EventType:        beginSystemChange,
		RestorePointType: applicationInstall,
	}

	descUTF16, err := windows.UTF16FromString(description)
	if err != nil {
		return fmt.Errorf("failed to convert description: %w", err)
	}
	if len(descUTF16) > len(rpi.Description) {
		descUTF16 = descUTF16[:len(rpi.Description)-1]
		descUTF16 = append(descUTF16, 0)
	}
	copy(rpi.Description[:], descUTF16)

	var status statemgrStatus
	r, _, callErr := procSRSetRestorePoint.Call(
		uintptr(unsafe.Pointer(&rpi)),
		uintptr(unsafe.Pointer(&status)),
	)
	if r == 0 {
		return fmt.Errorf("SRSetRestorePoint failed: status=%d err=%v", status.Status, callErr)
	}

	return nil
}
