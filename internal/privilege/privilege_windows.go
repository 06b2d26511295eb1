//go:build windows

package privilege

import "golang.org/x/sys/windows"

// IsElevated reports whether the current process token is a member of
// the BUILTIN\Administrators group. Update search runs unelevated, but
// download and install require administrator rights, so the tool bails
// out early instead of failing mid-cycle.
func IsElevated() bool {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(adminSid)

	member, err := windows.Token(0).IsMember(adminSid)
	return err == nil && member
}
