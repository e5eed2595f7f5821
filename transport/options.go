package transport

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDialTimeout = 2 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

type Options struct {
	// Address of the RCON server, host:port
	Address string

	// DialTimeout bounds connection setup. Zero uses DefaultDialTimeout.
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive period. Zero uses DefaultKeepAlive,
	// a negative value disables keep-alives.
	KeepAlive time.Duration

	Log *zap.Logger
}
