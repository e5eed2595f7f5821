package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
)

var ErrMissingAddress = errors.New("No RCON server address configured")

// Dial opens a TCP connection to an RCON server.
//
// The returned connection has no read or write deadlines; a caller that
// wants them must set them before handing the connection to a session.
func Dial(ctx context.Context, options Options) (net.Conn, error) {
	if options.Address == "" {
		return nil, ErrMissingAddress
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	timeout := options.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	keepAlive := options.KeepAlive
	if keepAlive == 0 {
		keepAlive = DefaultKeepAlive
	}

	dialer := net.Dialer{
		Timeout:   timeout,
		KeepAlive: keepAlive,
	}

	conn, err := dialer.DialContext(ctx, "tcp", options.Address)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to %s: %w", options.Address, err)
	}

	log.Debug("Connected",
		zap.String("address", options.Address),
		zap.String("local", conn.LocalAddr().String()))

	return conn, nil
}
