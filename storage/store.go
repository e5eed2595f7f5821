package storage

import (
	"context"
	"time"
)

// Entry is one recorded exchange with the RCON server.
type Entry struct {
	Kind    string    `json:"kind"`
	Command string    `json:"command,omitempty"`
	Output  string    `json:"output"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

const (
	KindCommand       = "command"
	KindSimpleCommand = "simple"
)

type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, path string) ([]byte, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates(ctx context.Context) <-chan *Entry

	Close() error
}
