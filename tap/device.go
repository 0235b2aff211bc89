// Package tap provides a Linux TAP interface as a types.Device.
package tap

import (
	"fmt"
	"sync"

	"golang.zx2c4.com/wireguard/tun"

	"github.com/tapmesh/tapmesh/types"
)

// tunOffsetBytes is the room reserved in front of every frame for the packet information header.
const tunOffsetBytes = 4

// DeviceError describes a failed step while creating or using the interface.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return "tap: " + e.Op + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Device is an Ethernet-level interface backed by a kernel TAP device.
type Device struct {
	dev        tun.Device
	name       string
	hw         types.HardwareAddr
	writeMutex sync.Mutex
	writeBuf   []byte
}

var _ types.Device = (*Device)(nil)

func newDevice(dev tun.Device, name string, hw types.HardwareAddr) *Device {
	return &Device{dev: dev, name: name, hw: hw}
}

// Read reads one frame into buf. buf needs tunOffsetBytes of slack beyond the largest frame.
func (d *Device) Read(buf []byte) (int, error) {
	if len(buf) <= tunOffsetBytes {
		return 0, &DeviceError{Op: "read", Err: fmt.Errorf("buffer of %d bytes too small", len(buf))}
	}
	n, err := d.dev.Read(buf, tunOffsetBytes)
	if err != nil {
		return 0, err
	}
	copy(buf, buf[tunOffsetBytes:tunOffsetBytes+n])
	return n, nil
}

// Write injects one frame into the kernel.
func (d *Device) Write(frame []byte) (int, error) {
	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()
	d.writeBuf = append(d.writeBuf[:0], 0, 0, 0, 0)
	d.writeBuf = append(d.writeBuf, frame...)
	n, err := d.dev.Write(d.writeBuf, tunOffsetBytes)
	if n >= tunOffsetBytes {
		n -= tunOffsetBytes
	} else {
		n = 0
	}
	return n, err
}

func (d *Device) HardwareAddr() types.HardwareAddr {
	return d.hw
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Close() error {
	return d.dev.Close()
}
