//go:build !windows

package preflight

// checkUpdateServiceHealth always passes off Windows; there is no
// update service to probe.
func checkUpdateServiceHealth() Check {
	return Check{Name: "service_health", Passed: true, Message: "not applicable on this platform"}
}
