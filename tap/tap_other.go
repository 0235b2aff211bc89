//go:build !linux

package tap

import (
	"errors"
)

// Create is only implemented on Linux.
func Create(name string, mtu int, address string) (*Device, error) {
	return nil, &DeviceError{Op: "create", Err: errors.New("tap devices are only supported on linux")}
}
