package wua

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by the real update service on platforms
// without a Windows Update Agent.
var ErrUnsupported = errors.New("windows update service is only available on windows")

// Update describes one pending update as reported by the update service.
// Values are read-only once returned from Search.
type Update struct {
	ID           string // WUA UpdateID, opaque
	Title        string
	KBNumber     string // e.g. "KB5034441", empty when the update has none
	SizeBytes    int64
	IsDownloaded bool
	EulaAccepted bool
	UpdateType   string // "software", "driver", or "feature"
}

// OperationResult is the update service's raw operation result code
// translated into this program's vocabulary at the COM boundary. Codes
// outside the known range pass through unmapped so callers can report
// them verbatim.
type OperationResult int

const (
	ResultNotStarted          OperationResult = 0
	ResultInProgress          OperationResult = 1
	ResultSucceeded           OperationResult = 2
	ResultSucceededWithErrors OperationResult = 3
	ResultFailed              OperationResult = 4
	ResultAborted             OperationResult = 5
)

// ResultFromRaw converts a raw WUA result code.
func ResultFromRaw(code int) OperationResult {
	return OperationResult(code)
}

func (r OperationResult) String() string {
	switch r {
	case ResultNotStarted:
		return "not started"
	case ResultInProgress:
		return "in progress"
	case ResultSucceeded:
		return "succeeded"
	case ResultSucceededWithErrors:
		return "succeeded with errors"
	case ResultFailed:
		return "failed"
	case ResultAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown (%d)", int(r))
	}
}

// UpdateResult is the per-update outcome inside a batch install.
type UpdateResult struct {
	ResultCode OperationResult
	HResult    int
}

// DownloadResult is the batch-level outcome of a download operation.
type DownloadResult struct {
	ResultCode OperationResult
	HResult    int
}

// InstallResult is the batch-level outcome of an install operation.
// Updates holds per-item results in the same order as the submitted
// batch. RebootRequired is a batch-level property independent of the
// individual result codes.
type InstallResult struct {
	ResultCode     OperationResult
	RebootRequired bool
	Updates        []UpdateResult
}

// Service is the platform update facility consumed by the patch cycle.
// It exposes exactly the three operations the cycle needs, so tests can
// substitute a fake without touching a real update mechanism.
type Service interface {
	Search(criteria string) ([]Update, error)
	Download(updates []Update) (DownloadResult, error)
	Install(updates []Update) (InstallResult, error)
}

// Options tunes the behavior of the real update service.
type Options struct {
	AutoAcceptEula bool
	ExcludeDrivers bool
}
