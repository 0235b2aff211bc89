package types

import "errors"

// PeerParseError is returned for malformed peer specs and addresses, usually from administrative input.
type PeerParseError struct {
	Input  string
	Reason string
}

func (e *PeerParseError) Error() string {
	return "PeerParseError: " + e.Reason + ": " + e.Input
}

// ErrFrameTooShort is returned when a buffer cannot hold an Ethernet header.
var ErrFrameTooShort = errors.New("frame shorter than an ethernet header")
