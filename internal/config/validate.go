package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for invalid values and returns all errors
// found. Values that would break the run are clamped to safe defaults;
// callers log the returned errors as warnings and continue.
func (c *Config) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.SearchCriteria) == "" {
		errs = append(errs, fmt.Errorf("search_criteria is empty, using default %q", DefaultSearchCriteria))
		c.SearchCriteria = DefaultSearchCriteria
	}

	if c.MinDiskSpaceGB < 0 {
		errs = append(errs, fmt.Errorf("min_disk_space_gb %.1f is negative, disabling disk check", c.MinDiskSpaceGB))
		c.MinDiskSpaceGB = 0
	}

	if c.RebootDelaySeconds < 10 {
		errs = append(errs, fmt.Errorf("reboot_delay_seconds %d is below minimum 10, clamping", c.RebootDelaySeconds))
		c.RebootDelaySeconds = 10
	} else if c.RebootDelaySeconds > 3600 {
		errs = append(errs, fmt.Errorf("reboot_delay_seconds %d exceeds maximum 3600, clamping", c.RebootDelaySeconds))
		c.RebootDelaySeconds = 3600
	}

	if c.PromptRebootDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("prompt_reboot_delay_seconds %d is negative, clamping to 0", c.PromptRebootDelaySeconds))
		c.PromptRebootDelaySeconds = 0
	} else if c.PromptRebootDelaySeconds > 600 {
		errs = append(errs, fmt.Errorf("prompt_reboot_delay_seconds %d exceeds maximum 600, clamping", c.PromptRebootDelaySeconds))
		c.PromptRebootDelaySeconds = 600
	}

	return errs
}
