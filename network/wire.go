package network

import (
	"net/netip"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tapmesh/tapmesh/types"
)

// Every control datagram is one message: a kind byte followed by protobuf wire-format fields.

type wireMessageType byte

const (
	wireDummy wireMessageType = iota // unused
	wireDiscoveryRequest
	wireDiscoveryReply
	wireHwAddrRequest
	wireHwAddrReply
	wirePing
	wirePong
	wireAddPeerRequest
	wireAddPeerReply
	wireListPeerRequest
	wireListPeerReply
	wireRemovePeerRequest
	wireRemovePeerReply
	wireScanNodeRequest
	wireScanNodeReply
)

var wireMessageNames = [...]string{
	wireDummy:             "dummy",
	wireDiscoveryRequest:  "discovery_request",
	wireDiscoveryReply:    "discovery_reply",
	wireHwAddrRequest:     "hwaddr_request",
	wireHwAddrReply:       "hwaddr_reply",
	wirePing:              "ping",
	wirePong:              "pong",
	wireAddPeerRequest:    "add_peer_request",
	wireAddPeerReply:      "add_peer_reply",
	wireListPeerRequest:   "list_peer_request",
	wireListPeerReply:     "list_peer_reply",
	wireRemovePeerRequest: "remove_peer_request",
	wireRemovePeerReply:   "remove_peer_reply",
	wireScanNodeRequest:   "scan_node_request",
	wireScanNodeReply:     "scan_node_reply",
}

func (t wireMessageType) String() string {
	if int(t) < len(wireMessageNames) {
		return wireMessageNames[t]
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

type message interface {
	wireType() wireMessageType
	encode(out []byte) ([]byte, error)
	decode(data []byte) error
}

func wireNewMessage(t wireMessageType) message {
	switch t {
	case wireDiscoveryRequest:
		return new(discoveryRequest)
	case wireDiscoveryReply:
		return new(discoveryReply)
	case wireHwAddrRequest:
		return new(hwAddrRequest)
	case wireHwAddrReply:
		return new(hwAddrReply)
	case wirePing:
		return new(ping)
	case wirePong:
		return new(pong)
	case wireAddPeerRequest:
		return new(addPeerRequest)
	case wireAddPeerReply:
		return new(addPeerReply)
	case wireListPeerRequest:
		return new(listPeerRequest)
	case wireListPeerReply:
		return new(listPeerReply)
	case wireRemovePeerRequest:
		return new(removePeerRequest)
	case wireRemovePeerReply:
		return new(removePeerReply)
	case wireScanNodeRequest:
		return new(scanNodeRequest)
	case wireScanNodeReply:
		return new(scanNodeReply)
	default:
		return nil
	}
}

func wireEncode(out []byte, msg message) ([]byte, error) {
	out = append(out, byte(msg.wireType()))
	var err error
	if out, err = msg.encode(out); err != nil {
		return nil, err
	}
	return out, nil
}

func wireDecode(data []byte) (message, error) {
	if len(data) == 0 {
		return nil, EmptyMessageError{}
	}
	msg := wireNewMessage(wireMessageType(data[0]))
	if msg == nil {
		return nil, UnrecognizedMessageError{Kind: data[0]}
	}
	if err := msg.decode(data[1:]); err != nil {
		return nil, err
	}
	return msg, nil
}

/**************************
 * Field encoding helpers *
 **************************/

func wireAppendBytes(out []byte, num protowire.Number, bs []byte) []byte {
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, bs)
}

func wireAppendString(out []byte, num protowire.Number, s string) []byte {
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendString(out, s)
}

func wireAppendBool(out []byte, num protowire.Number, b bool) []byte {
	out = protowire.AppendTag(out, num, protowire.VarintType)
	return protowire.AppendVarint(out, protowire.EncodeBool(b))
}

func wireAppendHardwareAddr(out []byte, num protowire.Number, hw types.HardwareAddr) []byte {
	return wireAppendBytes(out, num, hw[:])
}

func wireAppendAddrPort(out []byte, num protowire.Number, addr netip.AddrPort) ([]byte, error) {
	bs, err := addr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wireAppendBytes(out, num, bs), nil
}

func wireAppendAddr(out []byte, num protowire.Number, addr netip.Addr) ([]byte, error) {
	bs, err := addr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wireAppendBytes(out, num, bs), nil
}

const (
	wirePeerName        protowire.Number = 1
	wirePeerControlAddr protowire.Number = 2
	wirePeerHwAddr      protowire.Number = 3
)

func wireAppendPeer(out []byte, num protowire.Number, peer *types.Peer) ([]byte, error) {
	var body []byte
	body = wireAppendString(body, wirePeerName, peer.Name)
	var err error
	if body, err = wireAppendAddrPort(body, wirePeerControlAddr, peer.ControlAddr); err != nil {
		return nil, err
	}
	body = wireAppendHardwareAddr(body, wirePeerHwAddr, peer.HardwareAddr)
	return wireAppendBytes(out, num, body), nil
}

/**************************
 * Field decoding helpers *
 **************************/

func wireChopTag(num *protowire.Number, typ *protowire.Type, data *[]byte) bool {
	n, t, l := protowire.ConsumeTag(*data)
	if l < 0 {
		return false
	}
	*num, *typ, *data = n, t, (*data)[l:]
	return true
}

func wireChopBytes(out *[]byte, data *[]byte) bool {
	bs, l := protowire.ConsumeBytes(*data)
	if l < 0 {
		return false
	}
	*out, *data = bs, (*data)[l:]
	return true
}

func wireChopString(out *string, data *[]byte) bool {
	var bs []byte
	if !wireChopBytes(&bs, data) {
		return false
	}
	*out = string(bs)
	return true
}

func wireChopBool(out *bool, data *[]byte) bool {
	v, l := protowire.ConsumeVarint(*data)
	if l < 0 {
		return false
	}
	*out, *data = protowire.DecodeBool(v), (*data)[l:]
	return true
}

func wireChopHardwareAddr(out *types.HardwareAddr, data *[]byte) bool {
	var bs []byte
	if !wireChopBytes(&bs, data) || len(bs) != types.HardwareAddrSize {
		return false
	}
	copy(out[:], bs)
	return true
}

func wireChopAddrPort(out *netip.AddrPort, data *[]byte) bool {
	var bs []byte
	if !wireChopBytes(&bs, data) {
		return false
	}
	var addr netip.AddrPort
	if err := addr.UnmarshalBinary(bs); err != nil {
		return false
	}
	*out = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
	return true
}

func wireChopAddr(out *netip.Addr, data *[]byte) bool {
	var bs []byte
	if !wireChopBytes(&bs, data) {
		return false
	}
	var addr netip.Addr
	if err := addr.UnmarshalBinary(bs); err != nil || !addr.IsValid() {
		return false
	}
	*out = addr.Unmap()
	return true
}

// wireChopUnknown skips a field this version does not understand.
func wireChopUnknown(num protowire.Number, typ protowire.Type, data *[]byte) bool {
	l := protowire.ConsumeFieldValue(num, typ, *data)
	if l < 0 {
		return false
	}
	*data = (*data)[l:]
	return true
}

func wireChopPeer(out *types.Peer, data *[]byte) bool {
	var body []byte
	if !wireChopBytes(&body, data) {
		return false
	}
	var name string
	var controlAddr netip.AddrPort
	var hw types.HardwareAddr
	for len(body) > 0 {
		var num protowire.Number
		var typ protowire.Type
		if !wireChopTag(&num, &typ, &body) {
			return false
		}
		var ok bool
		switch {
		case num == wirePeerName && typ == protowire.BytesType:
			ok = wireChopString(&name, &body)
		case num == wirePeerControlAddr && typ == protowire.BytesType:
			ok = wireChopAddrPort(&controlAddr, &body)
		case num == wirePeerHwAddr && typ == protowire.BytesType:
			ok = wireChopHardwareAddr(&hw, &body)
		default:
			ok = wireChopUnknown(num, typ, &body)
		}
		if !ok {
			return false
		}
	}
	peer, err := types.NewPeer(name, controlAddr, hw)
	if err != nil {
		return false
	}
	*out = peer
	return true
}

// wireChopFields walks every field in data, handing known ones to fn.
// fn returns handled=false for fields it does not know, which are skipped.
func wireChopFields(data []byte, fn func(num protowire.Number, typ protowire.Type, data *[]byte) (handled, ok bool)) error {
	for len(data) > 0 {
		var num protowire.Number
		var typ protowire.Type
		if !wireChopTag(&num, &typ, &data) {
			return DecodeError{}
		}
		handled, ok := false, false
		if fn != nil {
			handled, ok = fn(num, typ, &data)
		}
		if !handled {
			ok = wireChopUnknown(num, typ, &data)
		}
		if !ok {
			return DecodeError{}
		}
	}
	return nil
}
