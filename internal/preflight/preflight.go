package preflight

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
)

// Options configures which pre-flight checks run before the patch cycle.
type Options struct {
	CheckServiceHealth bool
	MinDiskSpaceGB     float64 // 0 disables the disk check
}

// Check is one individual check result.
type Check struct {
	Name    string
	Passed  bool
	Message string
}

// Result captures the outcome of all pre-flight checks.
type Result struct {
	OK     bool
	Checks []Check
}

// FirstFailure returns the first failed check, or nil if all passed.
func (r Result) FirstFailure() *Check {
	for i := range r.Checks {
		if !r.Checks[i].Passed {
			return &r.Checks[i]
		}
	}
	return nil
}

// Run executes the enabled checks and returns a combined result.
func Run(opts Options) Result {
	result := Result{OK: true}

	if opts.CheckServiceHealth {
		check := checkUpdateServiceHealth()
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.OK = false
		}
	}

	if opts.MinDiskSpaceGB > 0 {
		check := checkDiskSpace(opts.MinDiskSpaceGB)
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.OK = false
		}
	}

	return result
}

// checkDiskSpace verifies the system volume has at least minGB free.
func checkDiskSpace(minGB float64) Check {
	check := Check{Name: "disk_space"}

	volume := systemVolume()
	usage, err := disk.Usage(volume)
	if err != nil {
		check.Message = fmt.Sprintf("failed to check disk space on %s: %v", volume, err)
		return check
	}

	freeGB := float64(usage.Free) / (1024 * 1024 * 1024)
	if freeGB < minGB {
		check.Message = fmt.Sprintf("insufficient disk space: %.1f GB free, minimum %.1f GB required", freeGB, minGB)
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("%.1f GB free on %s", freeGB, volume)
	return check
}

func systemVolume() string {
	if runtime.GOOS != "windows" {
		return "/"
	}
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	return drive + `\`
}
