//go:build !windows

package main

// enableVirtualTerminal is a no-op outside Windows; terminals there
// handle ANSI escapes natively.
func enableVirtualTerminal() {}
