package types

import (
	"net"
)

const HardwareAddrSize = 6

// HardwareAddr is a 6 byte link-layer address, used as the routing key for unicast frames.
// The zero value means "unresolved".
type HardwareAddr [HardwareAddrSize]byte

// BroadcastAddr is the all-ones Ethernet destination.
var BroadcastAddr = HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// HardwareAddrFrom copies the first 6 bytes of a net.HardwareAddr.
// It reports false if the slice is too short.
func HardwareAddrFrom(a net.HardwareAddr) (hw HardwareAddr, ok bool) {
	if len(a) < HardwareAddrSize {
		return hw, false
	}
	copy(hw[:], a)
	return hw, true
}

func (a HardwareAddr) IsZero() bool {
	return a == HardwareAddr{}
}

func (a HardwareAddr) IsBroadcast() bool {
	return a == BroadcastAddr
}

// Network returns "ether", but is otherwise unused.
func (a HardwareAddr) Network() string {
	return "ether"
}

// String returns the address in the usual colon separated hexadecimal form.
func (a HardwareAddr) String() string {
	return net.HardwareAddr(a[:]).String()
}

// MarshalText makes the address readable in json and yaml output.
func (a HardwareAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *HardwareAddr) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = HardwareAddr{}
		return nil
	}
	hw, err := net.ParseMAC(string(text))
	if err != nil {
		return err
	}
	parsed, ok := HardwareAddrFrom(hw)
	if !ok {
		return &net.AddrError{Err: "not an ethernet address", Addr: string(text)}
	}
	*a = parsed
	return nil
}
