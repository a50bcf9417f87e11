//go:build linux

package platform

import "golang.org/x/sys/unix"

// LinuxReboot issues a real reboot(2) syscall. It exists only for a
// Linux-hosted bench/gateway target built from this module; the
// microcontroller target supplies its own board-specific Hooks and
// never links this file.
func LinuxReboot() error {
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
