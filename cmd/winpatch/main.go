package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/patchline/winpatch/internal/config"
	"github.com/patchline/winpatch/internal/cycle"
	"github.com/patchline/winpatch/internal/logging"
	"github.com/patchline/winpatch/internal/preflight"
	"github.com/patchline/winpatch/internal/privilege"
	"github.com/patchline/winpatch/internal/reboot"
	"github.com/patchline/winpatch/internal/wua"
)

var (
	version = "0.1.0"
	cfgFile string

	flagLogPath    string
	flagAutoReboot bool
	flagAssumeYes  bool
	flagNoRestore  bool
)

var rootCmd = &cobra.Command{
	Use:   "winpatch",
	Short: "Winpatch update runner",
	Long:  `Winpatch - unattended and semi-attended Windows update cycles with a per-run audit log`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check for, download, and install pending updates",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCycle(cmd))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show elevation and pending-reboot state",
	Run: func(cmd *cobra.Command, args []string) {
		showStatus()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		showConfig()
	},
}

var cancelRebootCmd = &cobra.Command{
	Use:   "cancel-reboot",
	Short: "Abort a restart scheduled by a previous run",
	Run: func(cmd *cobra.Command, args []string) {
		if err := reboot.Cancel(); err != nil {
			fmt.Fprintln(os.Stderr, "No scheduled restart to cancel:", err)
			os.Exit(1)
		}
		fmt.Println("Scheduled restart cancelled.")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Winpatch v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is winpatch.yaml in the system config directory)")

	runCmd.Flags().StringVar(&flagLogPath, "log-path", "", "base directory for session log files")
	runCmd.Flags().BoolVar(&flagAutoReboot, "auto-reboot", false, "restart automatically when installation requires a reboot")
	runCmd.Flags().BoolVar(&flagAssumeYes, "assume-yes", false, "answer prompts with their defaults and never pause")
	runCmd.Flags().BoolVar(&flagNoRestore, "no-restore-point", false, "skip the pre-install system restore point")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelRebootCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(configShowCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCycle drives one full patch cycle and returns the process exit
// code. Deferred cleanup runs before the caller's os.Exit.
func runCycle(cmd *cobra.Command) int {
	enableVirtualTerminal()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	applyRunFlags(cmd, cfg)

	// Logging stays best-effort: without a session file the run
	// continues on console output alone.
	session, err := logging.NewSession(cfg.LogDir, os.Stdout, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Session log unavailable, continuing on console only: %v\n", err)
		session = logging.NewConsoleSession(os.Stdout, true)
	}
	defer pauseBeforeExit(cfg)
	defer session.Close()

	log := session.Logger()
	for _, verr := range cfg.Validate() {
		log.Warn("Config problem", "error", verr)
	}

	logHostHeader(log)
	if session.Path() != "" {
		log.Info("Session log: " + session.Path())
	}

	if !privilege.IsElevated() {
		log.Error("Administrator privileges required. Re-run winpatch from an elevated prompt.")
		return 1
	}

	result := preflight.Run(preflight.Options{
		CheckServiceHealth: true,
		MinDiskSpaceGB:     cfg.MinDiskSpaceGB,
	})
	for _, check := range result.Checks {
		log.Info("Preflight " + check.Name + ": " + check.Message)
	}
	if failure := result.FirstFailure(); failure != nil {
		log.Error("Preflight check failed", "check", failure.Name)
		return 1
	}

	svc := wua.NewUpdateService(wua.Options{
		AutoAcceptEula: cfg.AutoAcceptEula,
		ExcludeDrivers: cfg.ExcludeDrivers,
	})

	runner := cycle.NewRunner(cfg, log, svc, os.Stdin, os.Stdout)
	return runner.Run().ExitCode()
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("log-path") {
		cfg.LogDir = flagLogPath
	}
	if cmd.Flags().Changed("auto-reboot") {
		cfg.AutoReboot = flagAutoReboot
	}
	if cmd.Flags().Changed("assume-yes") {
		cfg.AssumeYes = flagAssumeYes
	}
	if cmd.Flags().Changed("no-restore-point") {
		cfg.CreateRestorePoint = !flagNoRestore
	}
}

// logHostHeader records where the run happened, so a session file read
// long after the fact identifies its machine.
func logHostHeader(log *slog.Logger) {
	info, err := host.Info()
	if err != nil {
		return
	}
	log.Info(fmt.Sprintf("Host: %s (%s %s)", info.Hostname, info.Platform, info.PlatformVersion),
		"uptimeHours", info.Uptime/3600)
}

// pauseBeforeExit keeps the console window open until the operator
// acknowledges, on every termination path. Suppressed in
// non-interactive runs.
func pauseBeforeExit(cfg *config.Config) {
	if cfg.AssumeYes {
		return
	}
	fmt.Print("Press Enter to exit.")
	bufio.NewReader(os.Stdin).ReadString('\n')
}

func showStatus() {
	fmt.Printf("Elevated: %v\n", privilege.IsElevated())

	if cfg, err := config.Load(cfgFile); err == nil {
		fmt.Printf("Log directory: %s\n", cfg.LogDir)
		fmt.Printf("Auto reboot: %v\n", cfg.AutoReboot)
		fmt.Printf("Search criteria: %s\n", cfg.SearchCriteria)
	}

	pending, reasons := reboot.DetectPending()
	if !pending {
		fmt.Println("No reboot pending.")
		return
	}
	fmt.Println("Reboot pending:")
	for _, reason := range reasons {
		fmt.Println("  - " + reason)
	}
}

func showConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}
