//go:build !linux

package platform

import "errors"

// LinuxReboot is unavailable outside a Linux-hosted bench target.
func LinuxReboot() error {
	return errors.New("platform: LinuxReboot requires GOOS=linux")
}
