package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxLength bounds the length field a peer may announce. Anything
// larger is treated as garbage rather than an allocation request.
const DefaultMaxLength = 1024 * 1024

// Decode parses the packet at the start of data and returns it together with
// the number of bytes it occupied.
//
// When data does not yet hold a whole packet Decode returns n == 0 and a nil
// error; nothing is consumed and the caller should try again with more data.
//
// A maxLength above zero rejects packets whose length field exceeds it.
func Decode(data []byte, maxLength int) (p Packet, n int, err error) {
	if len(data) < LengthFieldSize {
		return Packet{}, 0, nil
	}

	length := int(int32(binary.LittleEndian.Uint32(data)))

	if length < MinLength {
		return Packet{}, 0, fmt.Errorf("Length %d is below the minimum of %d: %w",
			length, MinLength, ErrMalformedPacket)
	}

	if maxLength > 0 && length > maxLength {
		return Packet{}, 0, fmt.Errorf("Length %d exceeds the maximum of %d: %w",
			length, maxLength, ErrMalformedPacket)
	}

	if len(data)-LengthFieldSize < length {
		return Packet{}, 0, nil
	}

	frame := data[LengthFieldSize : LengthFieldSize+length]

	if frame[length-2] != 0 || frame[length-1] != 0 {
		return Packet{}, 0, fmt.Errorf("Packet is not NUL terminated: %w", ErrMalformedPacket)
	}

	p = Packet{
		RequestID: int32(binary.LittleEndian.Uint32(frame[0:4])),
		Type:      PacketType(int32(binary.LittleEndian.Uint32(frame[4:8]))),
		Payload:   string(frame[8 : length-TerminatorSize]),
	}

	return p, LengthFieldSize + length, nil
}

// declaredSize returns the full size, including the prefix, announced by the
// length field at the start of data, or -1 if the field is incomplete.
func declaredSize(data []byte) int {
	if len(data) < LengthFieldSize {
		return -1
	}

	return LengthFieldSize + int(int32(binary.LittleEndian.Uint32(data)))
}

type ReaderOptions struct {
	// BufferSize is the fixed capacity of the read buffer. A single packet
	// must fit in it.
	BufferSize int

	// MaxLength is handed to Decode as its length guard.
	MaxLength int
}

// Reader pulls packets off a connection. Bytes belonging to the next packet
// stay buffered between calls. A Reader is not safe for concurrent use.
type Reader struct {
	r io.Reader

	buf        []byte
	start, end int

	maxLength int
}

func NewReader(r io.Reader, options ReaderOptions) *Reader {
	bufferSize := options.BufferSize
	if bufferSize < MinLength+LengthFieldSize {
		bufferSize = DefaultBufferSize
	}

	maxLength := options.MaxLength
	if maxLength == 0 {
		maxLength = DefaultMaxLength
	}

	return &Reader{
		r:         r,
		buf:       make([]byte, bufferSize),
		maxLength: maxLength,
	}
}

// Buffered returns the number of bytes read from the connection but not yet
// returned as part of a packet.
func (r *Reader) Buffered() int {
	return r.end - r.start
}

// ReadPacket blocks until a whole packet has been read, or the connection
// fails.
func (r *Reader) ReadPacket() (Packet, error) {
	var readErr error

	for {
		p, n, err := Decode(r.buf[r.start:r.end], r.maxLength)
		if err != nil {
			return Packet{}, err
		}

		if n > 0 {
			r.start += n
			if r.start == r.end {
				r.start, r.end = 0, 0
			}

			return p, nil
		}

		if readErr != nil {
			return Packet{}, newTransportError("read", readErr)
		}

		if err := r.compact(); err != nil {
			return Packet{}, err
		}

		var m int
		m, readErr = r.r.Read(r.buf[r.end:])
		r.end += m
	}
}

// compact moves the unread bytes to the front of the buffer and checks the
// pending packet can fit.
func (r *Reader) compact() error {
	if r.start > 0 {
		copy(r.buf, r.buf[r.start:r.end])
		r.end -= r.start
		r.start = 0
	}

	if size := declaredSize(r.buf[:r.end]); size > len(r.buf) {
		return fmt.Errorf("Failed to read %d byte packet into %d byte buffer: %w",
			size, len(r.buf), ErrBufferOverflow)
	}

	return nil
}
