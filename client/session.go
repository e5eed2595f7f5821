package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/rconctl/protocol"
	"github.com/luma/rconctl/transport"
)

type Options struct {
	// ReadBufferSize is the largest packet the session can receive
	ReadBufferSize int

	// WriteBufferSize is the largest packet the session can send
	WriteBufferSize int

	// MaxPacketLength bounds the length field accepted from the server
	MaxPacketLength int

	// DialTimeout and KeepAlive are only used by Open
	DialTimeout time.Duration
	KeepAlive   time.Duration

	// LogAuthPayloads includes passwords in debug logs. Leave it off.
	LogAuthPayloads bool

	Log *zap.Logger
}

// Session is an RCON client bound to a single connection.
//
// Every exported method runs as one exchange: the request ID is allocated,
// the request written and the response read while holding the session lock,
// so exchanges from concurrent callers never interleave on the wire.
type Session struct {
	conn   io.ReadWriteCloser
	reader *protocol.Reader
	writer *protocol.Writer

	mu             sync.Mutex
	requestCounter uint32
	password       string

	// err poisons the session after the stream got out of sync
	err error

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	logAuthPayloads bool
	log             *zap.Logger
}

// New creates a Session that owns conn. Nothing is sent until the first
// exchange.
func New(conn io.ReadWriteCloser, options Options) *Session {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		conn: conn,
		reader: protocol.NewReader(conn, protocol.ReaderOptions{
			BufferSize: options.ReadBufferSize,
			MaxLength:  options.MaxPacketLength,
		}),
		writer:          protocol.NewWriter(conn, options.WriteBufferSize),
		requestCounter:  1,
		done:            make(chan struct{}),
		logAuthPayloads: options.LogAuthPayloads,
		log:             log,
	}
}

// Open dials address and returns a Session on the new connection.
func Open(ctx context.Context, address string, options Options) (*Session, error) {
	conn, err := transport.Dial(ctx, transport.Options{
		Address:     address,
		DialTimeout: options.DialTimeout,
		KeepAlive:   options.KeepAlive,
		Log:         options.Log,
	})
	if err != nil {
		return nil, err
	}

	return New(conn, options), nil
}

// Authenticate logs in with password. It returns false, and no error, when
// the server rejects the password.
func (s *Session) Authenticate(password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return false, err
	}

	s.password = password

	return s.authenticate(password)
}

// AuthenticateOrFail is Authenticate with a rejected password reported as
// ErrAuthenticationFailed.
func (s *Session) AuthenticateOrFail(password string) error {
	ok, err := s.Authenticate(password)
	if err != nil {
		return err
	}

	if !ok {
		return ErrAuthenticationFailed
	}

	return nil
}

// Reauthenticate repeats Authenticate with the last password it was given.
func (s *Session) Reauthenticate() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return false, err
	}

	return s.authenticate(s.password)
}

func (s *Session) authenticate(password string) (bool, error) {
	requestID := s.nextRequestID(1)

	resp, err := s.writeAndRead(protocol.NewPacket(requestID, protocol.Auth, password))
	if err != nil {
		return false, err
	}

	// Some servers (CS:GO) send an empty RESPONSE_VALUE before the AUTH_RESPONSE
	if resp.Type == protocol.ResponseValue {
		s.log.Debug("Skipping empty response before auth response",
			zap.Int32("requestID", requestID))

		if resp, err = s.read(requestID); err != nil {
			return false, err
		}
	}

	if resp.Type != protocol.AuthResponse {
		return false, s.poison(fmt.Errorf("Unexpected auth response type %s: %w",
			resp.Type, ErrProtocolViolation))
	}

	if !resp.IsValid() {
		s.log.Info("Server rejected password")
	}

	return resp.IsValid(), nil
}

// Listen waits for the next packet the server sends on its own, such as a
// log line, and returns its payload.
func (s *Session) Listen() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return "", err
	}

	resp, err := s.read(protocol.ListenRequestID)
	if err != nil {
		return "", err
	}

	return resp.Payload, nil
}

// SendCommand runs command and returns its complete output, however many
// packets the server splits it into.
//
// The end marker is sent with the request ID of the next exchange. A server
// that answers the marker with more than one packet leaves the extra packet
// buffered, and the next exchange takes it as its response.
func (s *Session) SendCommand(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return "", err
	}

	requestID := s.nextRequestID(2)

	if err := s.write(protocol.NewPacket(requestID, protocol.ExecCommand, command)); err != nil {
		return "", err
	}

	// The server echoes this once every fragment of the command output is sent
	if err := s.write(protocol.NewPacket(requestID+1, protocol.ResponseValue, "")); err != nil {
		return "", s.poison(err)
	}

	return s.readAll(requestID)
}

// SendCommandSimple runs command and returns the payload of the first
// response packet. Output the server splits over several packets is
// truncated; use SendCommand unless the server cannot handle the marker
// packet.
func (s *Session) SendCommandSimple(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return "", err
	}

	requestID := s.nextRequestID(1)

	resp, err := s.writeAndRead(protocol.NewPacket(requestID, protocol.ExecCommand, command))
	if err != nil {
		return "", err
	}

	if !resp.IsValid() {
		return "", s.poison(fmt.Errorf("Invalid command response %q: %w",
			resp.Payload, ErrProtocolViolation))
	}

	return resp.Payload, nil
}

// Err returns the error that makes the session unusable, or nil. A session
// with an error must be closed and replaced.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.usable()
}

// Close closes the connection. It may be called more than once and from
// another goroutine, in which case a blocked exchange fails with
// ErrSessionClosed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.conn.Close()
		s.log.Debug("Session closed", zap.Error(s.closeErr))
	})

	return s.closeErr
}

func (s *Session) writeAndRead(req protocol.Packet) (protocol.Packet, error) {
	if err := s.write(req); err != nil {
		return protocol.Packet{}, err
	}

	return s.read(req.RequestID)
}

func (s *Session) readAll(requestID int32) (string, error) {
	var output strings.Builder

	for {
		resp, err := s.readPacket()
		if err != nil {
			return "", err
		}

		if !resp.IsValid() {
			return "", s.poison(fmt.Errorf("Invalid command response %q: %w",
				resp.Payload, ErrProtocolViolation))
		}

		if resp.RequestID != requestID {
			break
		}

		output.WriteString(resp.Payload)

		if resp.Type != protocol.ResponseValue {
			break
		}
	}

	return output.String(), nil
}

// read reads one packet and checks it belongs to requestID. Invalid packets
// are returned as is, the caller decides what they mean.
func (s *Session) read(requestID int32) (protocol.Packet, error) {
	resp, err := s.readPacket()
	if err != nil {
		return protocol.Packet{}, err
	}

	if resp.IsValid() && resp.RequestID != requestID {
		return protocol.Packet{}, s.poison(fmt.Errorf("Unexpected response id (%d -> %d): %w",
			requestID, resp.RequestID, ErrProtocolViolation))
	}

	return resp, nil
}

func (s *Session) readPacket() (protocol.Packet, error) {
	p, err := s.reader.ReadPacket()
	if err != nil {
		return protocol.Packet{}, s.poison(err)
	}

	s.logPacket("Received packet", p)

	return p, nil
}

// write sends p. Encoding errors leave the stream untouched and are returned
// as is; anything else poisons the session.
func (s *Session) write(p protocol.Packet) error {
	s.logPacket("Sending packet", p)

	err := s.writer.WritePacket(p)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, protocol.ErrPayloadTooLarge), errors.Is(err, protocol.ErrInvalidPayload):
		return err
	default:
		return s.poison(err)
	}
}

// nextRequestID allocates the request ID for an exchange that uses ids
// consecutive IDs. IDs overlapping the listen or invalid IDs are skipped.
func (s *Session) nextRequestID(ids int) int32 {
	for {
		requestID := int32(s.requestCounter)
		s.requestCounter++

		if !overlapsReserved(requestID, ids) {
			return requestID
		}
	}
}

func overlapsReserved(requestID int32, ids int) bool {
	for i := 0; i < ids; i++ {
		switch requestID + int32(i) {
		case protocol.ListenRequestID, protocol.InvalidRequestID:
			return true
		}
	}

	return false
}

// poison records err as the reason the session can no longer be used and
// returns it.
func (s *Session) poison(err error) error {
	if !s.isRunning() {
		err = fmt.Errorf("%v: %w", err, ErrSessionClosed)
	}

	if s.err == nil {
		s.err = err
		s.log.Warn("Session is no longer usable", zap.Error(err))
	}

	return err
}

// usable returns the error that prevents a new exchange, if any.
func (s *Session) usable() error {
	if !s.isRunning() {
		return ErrSessionClosed
	}

	return s.err
}

// isRunning returns true if Close has not been called
func (s *Session) isRunning() bool {
	select {
	case <-s.done:
		return false

	default:
		return true
	}
}

func (s *Session) logPacket(msg string, p protocol.Packet) {
	if ce := s.log.Check(zap.DebugLevel, msg); ce != nil {
		fields := []zap.Field{
			zap.Int32("requestID", p.RequestID),
			zap.Stringer("type", p.Type),
			zap.Int("payloadLength", len(p.Payload)),
		}

		if p.Type != protocol.Auth || s.logAuthPayloads {
			fields = append(fields, zap.String("payload", p.Payload))
		}

		ce.Write(fields...)
	}
}
