//go:build windows

package preflight

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// checkUpdateServiceHealth ensures the Windows Update service
// (wuauserv) is running. If stopped, it attempts to start it and waits
// up to 30 seconds.
func checkUpdateServiceHealth() Check {
	check := Check{Name: "service_health"}

	m, err := mgr.Connect()
	if err != nil {
		check.Message = fmt.Sprintf("failed to connect to service manager: %v", err)
		return check
	}
	defer m.Disconnect()

	s, err := m.OpenService("wuauserv")
	if err != nil {
		check.Message = fmt.Sprintf("failed to open wuauserv service: %v", err)
		return check
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		check.Message = fmt.Sprintf("failed to query wuauserv status: %v", err)
		return check
	}

	if status.State == svc.Running {
		check.Passed = true
		check.Message = "wuauserv is running"
		return check
	}

	if err := s.Start(); err != nil {
		check.Message = fmt.Sprintf("wuauserv is stopped and failed to start: %v", err)
		return check
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		status, err = s.Query()
		if err != nil {
			check.Message = fmt.Sprintf("failed to query wuauserv after start: %v", err)
			return check
		}
		if status.State == svc.Running {
			check.Passed = true
			check.Message = "wuauserv started successfully"
			return check
		}
		time.Sleep(1 * time.Second)
	}

	check.Message = "wuauserv did not reach running state within 30s"
	return check
}
