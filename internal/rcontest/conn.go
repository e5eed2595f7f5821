// Package rcontest provides scripted RCON endpoints for tests.
package rcontest

import (
	"bytes"
	"io"
	"sync"

	"github.com/luma/rconctl/protocol"
)

// Handler answers a single request packet with zero or more packets.
type Handler func(req protocol.Packet) []protocol.Packet

// Conn is an in-memory connection to a Handler. Every packet written to it
// is decoded and answered immediately; reading with no answer queued
// reports io.EOF, as a server hanging up would.
type Conn struct {
	handler Handler

	mu       sync.Mutex
	out      []byte
	in       bytes.Buffer
	requests []protocol.Packet
	closed   bool
}

func NewConn(handler Handler) *Conn {
	return &Conn{handler: handler}
}

// Push queues packets as if the server had sent them unprompted.
func (c *Conn) Push(packets ...protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue(packets)
}

func (c *Conn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, io.ErrClosedPipe
	}

	c.out = append(c.out, b...)

	for {
		req, n, err := protocol.Decode(c.out, 0)
		if err != nil {
			return len(b), err
		}

		if n == 0 {
			return len(b), nil
		}

		c.out = c.out[n:]
		c.requests = append(c.requests, req)

		if c.handler != nil {
			if err := c.queue(c.handler(req)); err != nil {
				return len(b), err
			}
		}
	}
}

func (c *Conn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, io.ErrClosedPipe
	}

	if c.in.Len() == 0 {
		return 0, io.EOF
	}

	return c.in.Read(b)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

// Requests returns every packet written so far, in order.
func (c *Conn) Requests() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]protocol.Packet(nil), c.requests...)
}

// Pending returns the number of queued bytes not read yet.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.in.Len()
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Conn) queue(packets []protocol.Packet) error {
	for _, p := range packets {
		b, err := protocol.Encode(nil, p)
		if err != nil {
			return err
		}

		c.in.Write(b)
	}

	return nil
}

// Script returns a Handler that ignores requests and replies with the
// given batches in order, one batch per request.
func Script(batches ...[]protocol.Packet) Handler {
	return func(req protocol.Packet) []protocol.Packet {
		if len(batches) == 0 {
			return nil
		}

		next := batches[0]
		batches = batches[1:]

		return next
	}
}
