package network

import (
	"net/netip"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tapmesh/tapmesh/types"
)

// wireEmpty is embedded by messages that carry no fields.
type wireEmpty struct{}

func (wireEmpty) encode(out []byte) ([]byte, error) {
	return out, nil
}

func (wireEmpty) decode(data []byte) error {
	return wireChopFields(data, nil)
}

type discoveryRequest struct{ wireEmpty }

func (*discoveryRequest) wireType() wireMessageType { return wireDiscoveryRequest }

type hwAddrRequest struct{ wireEmpty }

func (*hwAddrRequest) wireType() wireMessageType { return wireHwAddrRequest }

type ping struct{ wireEmpty }

func (*ping) wireType() wireMessageType { return wirePing }

type pong struct{ wireEmpty }

func (*pong) wireType() wireMessageType { return wirePong }

type listPeerRequest struct{ wireEmpty }

func (*listPeerRequest) wireType() wireMessageType { return wireListPeerRequest }

type scanNodeRequest struct{ wireEmpty }

func (*scanNodeRequest) wireType() wireMessageType { return wireScanNodeRequest }

/*******************
 * discoveryReply *
 *******************/

type discoveryReply struct {
	name   string
	hwAddr types.HardwareAddr
}

func (*discoveryReply) wireType() wireMessageType { return wireDiscoveryReply }

func (m *discoveryReply) encode(out []byte) ([]byte, error) {
	out = wireAppendString(out, 1, m.name)
	return wireAppendHardwareAddr(out, 2, m.hwAddr), nil
}

func (m *discoveryReply) decode(data []byte) error {
	var tmp discoveryReply
	err := wireChopFields(data, func(num protowire.Number, typ protowire.Type, data *[]byte) (bool, bool) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return true, wireChopString(&tmp.name, data)
		case num == 2 && typ == protowire.BytesType:
			return true, wireChopHardwareAddr(&tmp.hwAddr, data)
		}
		return false, false
	})
	if err != nil {
		return err
	}
	*m = tmp
	return nil
}

/****************
 * hwAddrReply *
 ****************/

type hwAddrReply struct {
	hwAddr types.HardwareAddr
}

func (*hwAddrReply) wireType() wireMessageType { return wireHwAddrReply }

func (m *hwAddrReply) encode(out []byte) ([]byte, error) {
	return wireAppendHardwareAddr(out, 1, m.hwAddr), nil
}

func (m *hwAddrReply) decode(data []byte) error {
	var tmp hwAddrReply
	err := wireChopFields(data, func(num protowire.Number, typ protowire.Type, data *[]byte) (bool, bool) {
		if num == 1 && typ == protowire.BytesType {
			return true, wireChopHardwareAddr(&tmp.hwAddr, data)
		}
		return false, false
	})
	if err != nil {
		return err
	}
	*m = tmp
	return nil
}

/*******************
 * addPeerRequest *
 *******************/

type addPeerRequest struct {
	peer types.Peer
}

func (*addPeerRequest) wireType() wireMessageType { return wireAddPeerRequest }

func (m *addPeerRequest) encode(out []byte) ([]byte, error) {
	return wireAppendPeer(out, 1, &m.peer)
}

func (m *addPeerRequest) decode(data []byte) error {
	var tmp addPeerRequest
	var found bool
	err := wireChopFields(data, func(num protowire.Number, typ protowire.Type, data *[]byte) (bool, bool) {
		if num == 1 && typ == protowire.BytesType {
			found = true
			return true, wireChopPeer(&tmp.peer, data)
		}
		return false, false
	})
	if err != nil {
		return err
	}
	if !found {
		return DecodeError{}
	}
	*m = tmp
	return nil
}

/***************************************
 * addPeerReply and removePeerReply *
 ***************************************/

type wireBoolReply struct {
	ok bool
}

func (m *wireBoolReply) encode(out []byte) ([]byte, error) {
	return wireAppendBool(out, 1, m.ok), nil
}

func (m *wireBoolReply) decode(data []byte) error {
	var tmp wireBoolReply
	err := wireChopFields(data, func(num protowire.Number, typ protowire.Type, data *[]byte) (bool, bool) {
		if num == 1 && typ == protowire.VarintType {
			return true, wireChopBool(&tmp.ok, data)
		}
		return false, false
	})
	if err != nil {
		return err
	}
	*m = tmp
	return nil
}

type addPeerReply struct{ wireBoolReply }

func (*addPeerReply) wireType() wireMessageType { return wireAddPeerReply }

type removePeerReply struct{ wireBoolReply }

func (*removePeerReply) wireType() wireMessageType { return wireRemovePeerReply }

/****************************************
 * listPeerReply and scanNodeReply *
 ****************************************/

type wirePeerList struct {
	peers []types.Peer
}

func (m *wirePeerList) encode(out []byte) ([]byte, error) {
	var err error
	for idx := range m.peers {
		if out, err = wireAppendPeer(out, 1, &m.peers[idx]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *wirePeerList) decode(data []byte) error {
	var tmp wirePeerList
	err := wireChopFields(data, func(num protowire.Number, typ protowire.Type, data *[]byte) (bool, bool) {
		if num == 1 && typ == protowire.BytesType {
			var peer types.Peer
			if !wireChopPeer(&peer, data) {
				return true, false
			}
			tmp.peers = append(tmp.peers, peer)
			return true, true
		}
		return false, false
	})
	if err != nil {
		return err
	}
	*m = tmp
	return nil
}

type listPeerReply struct{ wirePeerList }

func (*listPeerReply) wireType() wireMessageType { return wireListPeerReply }

type scanNodeReply struct{ wirePeerList }

func (*scanNodeReply) wireType() wireMessageType { return wireScanNodeReply }

/**********************
 * removePeerRequest *
 **********************/

// removePeerRequest filters by name or by control IP. A nil name or an invalid host means the filter is absent.
type removePeerRequest struct {
	name *string
	host netip.Addr
}

func (*removePeerRequest) wireType() wireMessageType { return wireRemovePeerRequest }

func (m *removePeerRequest) encode(out []byte) ([]byte, error) {
	if m.name != nil {
		out = wireAppendString(out, 1, *m.name)
	}
	if m.host.IsValid() {
		return wireAppendAddr(out, 2, m.host)
	}
	return out, nil
}

func (m *removePeerRequest) decode(data []byte) error {
	var tmp removePeerRequest
	err := wireChopFields(data, func(num protowire.Number, typ protowire.Type, data *[]byte) (bool, bool) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var name string
			if !wireChopString(&name, data) {
				return true, false
			}
			tmp.name = &name
			return true, true
		case num == 2 && typ == protowire.BytesType:
			return true, wireChopAddr(&tmp.host, data)
		}
		return false, false
	})
	if err != nil {
		return err
	}
	*m = tmp
	return nil
}
