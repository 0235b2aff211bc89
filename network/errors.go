package network

// DecodeError is returned for control messages that are truncated or malformed.
type DecodeError struct{}

func (e DecodeError) Error() string {
	return "DecodeError"
}

type EmptyMessageError struct{}

func (e EmptyMessageError) Error() string {
	return "EmptyMessageError"
}

// UnrecognizedMessageError is returned when the leading kind byte is not part of the protocol.
type UnrecognizedMessageError struct {
	Kind byte
}

func (e UnrecognizedMessageError) Error() string {
	return "UnrecognizedMessageError: kind " + wireMessageType(e.Kind).String()
}

// UnexpectedReplyError is returned when a peer answers a request with the wrong message kind.
type UnexpectedReplyError struct {
	Want byte
	Kind byte
}

func (e UnexpectedReplyError) Error() string {
	return "UnexpectedReplyError: want " + wireMessageType(e.Want).String() + ", got " + wireMessageType(e.Kind).String()
}

// DeadlineError is returned when no reply arrived before the exchange timeout.
type DeadlineError struct{}

func (e DeadlineError) Error() string {
	return "DeadlineError"
}

type ClosedError struct{}

func (e ClosedError) Error() string {
	return "ClosedError"
}

// RejectedError is returned by Client.AddPeer when the node could not resolve the new peer.
type RejectedError struct{}

func (e RejectedError) Error() string {
	return "RejectedError"
}
