//go:build linux

package tap

import (
	"fmt"
	"os"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
	"golang.zx2c4.com/wireguard/tun"

	"github.com/tapmesh/tapmesh/types"
)

const cloneDevicePath = "/dev/net/tun"

// Create opens a TAP interface called name (the kernel picks one if name is empty or a pattern like "tap%d"),
// sets its MTU, assigns address if it is not empty and brings the link up.
func Create(name string, mtu int, address string) (*Device, error) {
	file, err := openTAP(name)
	if err != nil {
		return nil, err
	}
	dev, err := tun.CreateTUNFromFile(file, mtu)
	if err != nil {
		file.Close()
		return nil, &DeviceError{Op: "wrap", Err: err}
	}
	name, err = dev.Name()
	if err != nil {
		dev.Close()
		return nil, &DeviceError{Op: "name", Err: err}
	}
	hw, err := setupLink(name, mtu, address)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return newDevice(dev, name, hw), nil
}

// openTAP creates the interface with IFF_TAP, keeping the packet information header that tun.Device expects.
func openTAP(name string) (*os.File, error) {
	fd, err := unix.Open(cloneDevicePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &DeviceError{Op: "open " + cloneDevicePath, Err: err}
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		unix.Close(fd)
		return nil, &DeviceError{Op: "ifreq", Err: err}
	}
	ifr.SetUint16(unix.IFF_TAP)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, &DeviceError{Op: "TUNSETIFF", Err: err}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, &DeviceError{Op: "nonblock", Err: err}
	}
	return os.NewFile(uintptr(fd), cloneDevicePath), nil
}

func setupLink(name string, mtu int, address string) (types.HardwareAddr, error) {
	var hw types.HardwareAddr
	link, err := netlink.LinkByName(name)
	if err != nil {
		return hw, &DeviceError{Op: "lookup link", Err: err}
	}
	if err := netlink.LinkSetMTU(link, mtu); err != nil {
		return hw, &DeviceError{Op: "set mtu", Err: err}
	}
	if address != "" {
		addr, err := netlink.ParseAddr(address)
		if err != nil {
			return hw, &DeviceError{Op: "parse address", Err: err}
		}
		if err := netlink.AddrAdd(link, addr); err != nil {
			return hw, &DeviceError{Op: "add address", Err: err}
		}
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return hw, &DeviceError{Op: "set up", Err: err}
	}
	// the kernel assigns a random address on creation, re-read the link to get it
	if link, err = netlink.LinkByName(name); err != nil {
		return hw, &DeviceError{Op: "lookup link", Err: err}
	}
	hw, ok := types.HardwareAddrFrom(link.Attrs().HardwareAddr)
	if !ok {
		return hw, &DeviceError{Op: "hardware address", Err: fmt.Errorf("unexpected address %q", link.Attrs().HardwareAddr)}
	}
	return hw, nil
}
