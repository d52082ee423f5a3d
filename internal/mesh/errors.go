package mesh

import (
	"errors"
	"fmt"
)

var (
	ErrMediaAcquisitionDenied = errors.New("media acquisition denied")
	ErrNegotiationFailed      = errors.New("negotiation failed")
	ErrTransportClosed        = errors.New("signaling transport closed")
	ErrInvalidState           = errors.New("invalid link state")
	ErrUnknownPeer            = errors.New("unknown peer")
	ErrSessionClosed          = errors.New("session closed")
	ErrNoLocalTrack           = errors.New("no local track of that kind")
	ErrUnknownObject          = errors.New("unknown whiteboard object")
)

// Error describes a failed operation, optionally scoped to one peer.
type Error struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Peer != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Peer)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", msg, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func PeerError(op, peer string, err error) *Error {
	return &Error{Op: op, Peer: peer, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
