package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// DefaultBufferSize is the read and write buffer size used when none is
// configured. It comfortably holds the 4096 byte packets most servers send.
const DefaultBufferSize = 16 * 1024

// Encode appends the wire form of p to dst and returns the extended slice.
func Encode(dst []byte, p Packet) ([]byte, error) {
	if strings.IndexByte(p.Payload, 0) != -1 {
		return dst, ErrInvalidPayload
	}

	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(WrapperSize+len(p.Payload)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(p.RequestID))
	binary.LittleEndian.PutUint32(header[8:12], uint32(p.Type))

	dst = append(dst, header[:]...)
	dst = append(dst, p.Payload...)
	dst = append(dst, 0, 0)

	return dst, nil
}

// Writer serialises packets onto a connection. A Writer is not safe for
// concurrent use.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter creates a Writer whose encoded packets may not exceed
// bufferSize bytes. A bufferSize below one uses DefaultBufferSize.
func NewWriter(w io.Writer, bufferSize int) *Writer {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}

	return &Writer{
		w:   w,
		buf: make([]byte, 0, bufferSize),
	}
}

// WritePacket encodes p and writes all of it. Encoding errors are returned
// before any byte reaches the connection.
func (w *Writer) WritePacket(p Packet) error {
	if size := EncodedLen(p); size > cap(w.buf) {
		return fmt.Errorf("Failed to write %d byte packet into %d byte buffer: %w",
			size, cap(w.buf), ErrPayloadTooLarge)
	}

	b, err := Encode(w.buf[:0], p)
	if err != nil {
		return err
	}

	for len(b) > 0 {
		n, err := w.w.Write(b)
		b = b[n:]

		if err != nil {
			return newTransportError("write", err)
		}
	}

	return nil
}
