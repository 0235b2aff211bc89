package types

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// EthernetHeaderSize is the size of an untagged Ethernet II header.
const EthernetHeaderSize = 14

// Frame is a parsed Ethernet header plus the frame bytes it was parsed from.
// Data aliases the caller's buffer, so a Frame is only valid until that buffer is reused.
type Frame struct {
	Dst       HardwareAddr
	Src       HardwareAddr
	EtherType uint16
	Data      []byte
}

// ParseFrame decodes the Ethernet header at the start of data.
// The returned Frame borrows data rather than copying it.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if len(data) < EthernetHeaderSize {
		return f, ErrFrameTooShort
	}
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return f, err
	}
	f.Dst, _ = HardwareAddrFrom(eth.DstMAC)
	f.Src, _ = HardwareAddrFrom(eth.SrcMAC)
	f.EtherType = uint16(eth.EthernetType)
	if eth.Length != 0 {
		// 802.3 frame, the type field carries a length
		f.EtherType = eth.Length
	}
	f.Data = data
	return f, nil
}

// IsBroadcast reports whether the frame is addressed to every station.
func (f *Frame) IsBroadcast() bool {
	return f.Dst.IsBroadcast()
}

// Clone copies Data so the frame can outlive the buffer it was read into, e.g. when handed to another goroutine.
func (f Frame) Clone() Frame {
	f.Data = append([]byte(nil), f.Data...)
	return f
}
