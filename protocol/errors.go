package protocol

import (
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	ErrMalformedPacket  = errors.New("Packet is malformed")
	ErrInvalidPayload   = errors.New("Packet payload may not contain NUL bytes")
	ErrBufferOverflow   = errors.New("Packet does not fit in the read buffer")
	ErrPayloadTooLarge  = errors.New("Packet does not fit in the write buffer")
	ErrConnectionClosed = errors.New("Connection closed")
	ErrIOFailure        = errors.New("Connection I/O failed")
)

// TransportError wraps an error returned by the underlying connection.
//
// It matches ErrIOFailure for every transport error, and ErrConnectionClosed
// as well when the peer or the local side closed the stream. Unwrap returns
// the original error so callers can still inspect net.Error and friends.
type TransportError struct {
	Op     string
	Err    error
	Closed bool
}

func newTransportError(op string, err error) *TransportError {
	return &TransportError{
		Op:     op,
		Err:    err,
		Closed: isClosedErr(err),
	}
}

func (e *TransportError) Error() string {
	if e.Closed {
		return e.Op + ": " + ErrConnectionClosed.Error() + ": " + e.Err.Error()
	}

	return e.Op + ": " + ErrIOFailure.Error() + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrIOFailure:
		return true
	case ErrConnectionClosed:
		return e.Closed
	default:
		return false
	}
}

func isClosedErr(err error) bool {
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return true
	default:
		return false
	}
}
