package types

// Device is the local interface collaborator: a virtual network device that emits and accepts raw Ethernet frames.
type Device interface {
	// Read blocks until one frame is available and copies it into buf, returning its length.
	Read(buf []byte) (int, error)
	// Write injects one raw frame. Delivery is best-effort; the device may reject malformed frames.
	Write(frame []byte) (int, error)
	// HardwareAddr is the address assigned to the device when it was created.
	HardwareAddr() HardwareAddr
	// Name is the kernel interface name, used in logs.
	Name() string
	Close() error
}
