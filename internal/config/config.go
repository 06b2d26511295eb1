package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// DefaultSearchCriteria selects pending software updates, matching the
// filter the Windows Update Agent expects for an unattended patch cycle.
const DefaultSearchCriteria = "IsInstalled=0 and Type='Software'"

type Config struct {
	LogDir                   string  `mapstructure:"log_dir" yaml:"log_dir"`
	AutoReboot               bool    `mapstructure:"auto_reboot" yaml:"auto_reboot"`
	AssumeYes                bool    `mapstructure:"assume_yes" yaml:"assume_yes"`
	CreateRestorePoint       bool    `mapstructure:"create_restore_point" yaml:"create_restore_point"`
	SearchCriteria           string  `mapstructure:"search_criteria" yaml:"search_criteria"`
	ExcludeDrivers           bool    `mapstructure:"exclude_drivers" yaml:"exclude_drivers"`
	AutoAcceptEula           bool    `mapstructure:"auto_accept_eula" yaml:"auto_accept_eula"`
	MinDiskSpaceGB           float64 `mapstructure:"min_disk_space_gb" yaml:"min_disk_space_gb"`
	RebootDelaySeconds       int     `mapstructure:"reboot_delay_seconds" yaml:"reboot_delay_seconds"`
	PromptRebootDelaySeconds int     `mapstructure:"prompt_reboot_delay_seconds" yaml:"prompt_reboot_delay_seconds"`
}

func Default() *Config {
	return &Config{
		LogDir:                   defaultLogDir(),
		CreateRestorePoint:       true,
		SearchCriteria:           DefaultSearchCriteria,
		ExcludeDrivers:           true,
		AutoAcceptEula:           true,
		MinDiskSpaceGB:           2,
		RebootDelaySeconds:       60,
		PromptRebootDelaySeconds: 10,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("winpatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WINPATCH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Winpatch")
	case "darwin":
		return "/Library/Application Support/Winpatch"
	default:
		return "/etc/winpatch"
	}
}

func defaultLogDir() string {
	return filepath.Join(configDir(), "logs")
}
