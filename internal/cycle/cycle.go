package cycle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/patchline/winpatch/internal/config"
	"github.com/patchline/winpatch/internal/logging"
	"github.com/patchline/winpatch/internal/reboot"
	"github.com/patchline/winpatch/internal/restore"
	"github.com/patchline/winpatch/internal/wua"
)

// Outcome is the terminal state of one patch cycle.
type Outcome int

const (
	OutcomeNoUpdates Outcome = iota
	OutcomeCancelled
	OutcomeDownloadFailed
	OutcomeInstallSuccess
	OutcomeRebootRequired
	OutcomeInstallError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoUpdates:
		return "NO_UPDATES"
	case OutcomeCancelled:
		return "CANCELLED_BY_USER"
	case OutcomeDownloadFailed:
		return "DOWNLOAD_FAILED"
	case OutcomeInstallSuccess:
		return "INSTALL_SUCCESS"
	case OutcomeRebootRequired:
		return "INSTALL_REBOOT_REQUIRED"
	case OutcomeInstallError:
		return "INSTALL_ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(o))
	}
}

// ExitCode maps an outcome to the process exit code. No updates,
// cancellation, and completed installs (reboot pending or not) are
// success; failed downloads and failed installs are not.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeDownloadFailed, OutcomeInstallError:
		return 1
	default:
		return 0
	}
}

// Runner drives one patch cycle: discovery, confirmation, download,
// install, and reboot coordination, strictly in that order on a single
// goroutine. Every collaborator is injected so tests can run the whole
// cycle against fakes.
type Runner struct {
	cfg *config.Config
	log *slog.Logger
	svc wua.Service
	in  *bufio.Reader
	out io.Writer

	createRestorePoint func(description string) error
	scheduleReboot     func(delay time.Duration, message string) error
}

// NewRunner wires a Runner against the real restore-point and reboot
// facilities. in and out are the interactive console.
func NewRunner(cfg *config.Config, log *slog.Logger, svc wua.Service, in io.Reader, out io.Writer) *Runner {
	return &Runner{
		cfg:                cfg,
		log:                log,
		svc:                svc,
		in:                 bufio.NewReader(in),
		out:                out,
		createRestorePoint: restore.CreatePoint,
		scheduleReboot:     reboot.Schedule,
	}
}

// Run executes the cycle and returns its terminal outcome.
func (r *Runner) Run() Outcome {
	updates := r.discover()
	if len(updates) == 0 {
		return OutcomeNoUpdates
	}

	if !r.confirm(len(updates)) {
		r.log.Warn("Update cancelled by user.")
		return OutcomeCancelled
	}

	if r.cfg.CreateRestorePoint {
		r.restorePoint()
	}

	if !r.download(updates) {
		r.log.Error("Download failed, aborting installation.")
		return OutcomeDownloadFailed
	}

	outcome := r.install(updates)
	if outcome == OutcomeRebootRequired {
		r.coordinateReboot()
	}

	r.log.Info("Run finished with status " + outcome.String())
	return outcome
}

// discover queries the update service. A search failure is logged and
// then treated exactly like an empty result: both end the run on the
// same path, so operators check the log to tell them apart.
func (r *Runner) discover() []wua.Update {
	r.log.Info("Searching for available updates...")

	updates, err := r.svc.Search(r.cfg.SearchCriteria)
	if err != nil {
		r.log.Error("Update search failed", "error", err)
		return nil
	}

	if len(updates) == 0 {
		logging.Success(r.log, "System is up to date.")
		return nil
	}

	r.log.Info(fmt.Sprintf("Found %d pending updates.", len(updates)))
	for _, u := range updates {
		r.log.Info("Pending: " + u.Title)
	}

	return updates
}

// confirm blocks on the interactive console for a yes/no decision.
// Only "y" or "Y" proceeds; everything else, including empty input and
// a closed stdin, declines. With assume_yes set, the affirmative answer
// is supplied without prompting.
func (r *Runner) confirm(count int) bool {
	if r.cfg.AssumeYes {
		r.log.Info("Proceeding without confirmation (assume_yes).")
		return true
	}

	fmt.Fprintf(r.out, "Proceed with download and installation of %d update(s)? [Y/N]: ", count)
	return r.readYes()
}

func (r *Runner) readYes() bool {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func (r *Runner) restorePoint() {
	r.log.Info("Creating system restore point...")
	if err := r.createRestorePoint("Winpatch: before update installation"); err != nil {
		r.log.Warn("Restore point creation failed", "error", err)
		return
	}
	logging.Success(r.log, "Restore point created.")
}

// download fetches the confirmed batch. The service's own succeeded
// sentinel is the only acceptable result; anything else aborts the run
// before install.
func (r *Runner) download(updates []wua.Update) bool {
	r.log.Info(fmt.Sprintf("Downloading %d update(s)...", len(updates)))

	result, err := r.svc.Download(updates)
	if err != nil {
		r.log.Error("Download failed", "error", err)
		return false
	}

	if result.ResultCode != wua.ResultSucceeded {
		msg := "Download finished with result code: " + result.ResultCode.String()
		if result.HResult != 0 {
			msg += " (" + wua.FormatHResult(result.HResult) + ")"
		}
		r.log.Warn(msg)
		return false
	}

	logging.Success(r.log, "All updates downloaded.")
	return true
}

// install installs the batch as one unit and reports each item in
// batch order. A batch-level reboot requirement takes precedence over
// individual item outcomes. Result codes outside the four reportable
// ones produce no line.
func (r *Runner) install(updates []wua.Update) Outcome {
	r.log.Info("Installing updates...")

	result, err := r.svc.Install(updates)
	if err != nil {
		r.log.Error("Installation failed", "error", err)
		return OutcomeInstallError
	}

	for i, u := range updates {
		if i >= len(result.Updates) {
			break
		}
		item := result.Updates[i]
		switch item.ResultCode {
		case wua.ResultSucceeded:
			logging.Success(r.log, "Installed: "+u.Title)
		case wua.ResultSucceededWithErrors:
			r.log.Warn("Installed with errors: " + u.Title)
		case wua.ResultFailed:
			msg := "Failed: " + u.Title
			if item.HResult != 0 {
				msg += " (" + wua.FormatHResult(item.HResult) + ")"
			}
			r.log.Error(msg)
		case wua.ResultAborted:
			r.log.Warn("Aborted: " + u.Title)
		}
	}

	if result.RebootRequired {
		return OutcomeRebootRequired
	}

	logging.Success(r.log, "All updates installed successfully.")
	return OutcomeInstallSuccess
}

// coordinateReboot handles a required reboot: auto-reboot schedules a
// restart after the configured delay; otherwise the operator decides.
// assume_yes without auto_reboot never restarts on its own, it only
// advises.
func (r *Runner) coordinateReboot() {
	if r.cfg.AutoReboot {
		delay := time.Duration(r.cfg.RebootDelaySeconds) * time.Second
		r.log.Warn(fmt.Sprintf("Reboot required. Restarting automatically in %d seconds.", r.cfg.RebootDelaySeconds))
		if err := r.scheduleReboot(delay, "Restarting to complete Windows update installation."); err != nil {
			r.log.Error("Failed to schedule restart", "error", err)
		}
		return
	}

	if r.cfg.AssumeYes {
		r.log.Warn("Reboot required. Please restart the system soon.")
		return
	}

	fmt.Fprint(r.out, "A reboot is required to complete installation. Reboot now? [Y/N]: ")
	if r.readYes() {
		delay := time.Duration(r.cfg.PromptRebootDelaySeconds) * time.Second
		r.log.Warn(fmt.Sprintf("Restarting in %d seconds.", r.cfg.PromptRebootDelaySeconds))
		if err := r.scheduleReboot(delay, "Restarting to complete Windows update installation."); err != nil {
			r.log.Error("Failed to schedule restart", "error", err)
		}
		return
	}

	r.log.Warn("Reboot required. Please restart the system soon.")
}
