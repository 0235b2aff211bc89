package config

import (
	"net/netip"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/tapmesh/tapmesh/types"
)

var (
	peerType      = reflect.TypeOf(types.Peer{})
	peerSliceType = reflect.TypeOf([]types.Peer{})
	addrPortType  = reflect.TypeOf(netip.AddrPort{})
)

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToPeersHookFunc(),
		stringToAddrPortHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// stringToPeersHookFunc decodes "name=addr" items, either one per list element or comma separated.
func stringToPeersHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		s, ok := data.(string)
		if !ok || f.Kind() != reflect.String {
			return data, nil
		}
		switch t {
		case peerSliceType:
			return types.ParsePeers(s)
		case peerType:
			return types.ParsePeer(s)
		}
		return data, nil
	}
}

// stringToAddrPortHookFunc accepts "ip:port" or a bare ip, which gets the default control port.
func stringToAddrPortHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		s, ok := data.(string)
		if !ok || t != addrPortType {
			return data, nil
		}
		return types.ParseAddr(s)
	}
}
