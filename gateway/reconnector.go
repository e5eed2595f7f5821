package gateway

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/rconctl/client"
)

var ErrReconnectorClosed = errors.New("Reconnector is closed")

// Reconnector is a Commander that replaces its session once it becomes
// unusable. The command that hit the error still fails; the next one opens
// and authenticates a new session first.
type Reconnector struct {
	open func() (*client.Session, error)
	log  *zap.Logger

	mu      sync.Mutex
	session *client.Session
	closed  bool
}

// NewReconnector returns a Reconnector using session until it breaks, then
// sessions returned by open. open must return an authenticated session.
func NewReconnector(session *client.Session, open func() (*client.Session, error), log *zap.Logger) *Reconnector {
	if log == nil {
		log = zap.NewNop()
	}

	return &Reconnector{
		open:    open,
		log:     log,
		session: session,
	}
}

func (r *Reconnector) SendCommand(command string) (string, error) {
	session, err := r.current()
	if err != nil {
		return "", err
	}

	return session.SendCommand(command)
}

func (r *Reconnector) SendCommandSimple(command string) (string, error) {
	session, err := r.current()
	if err != nil {
		return "", err
	}

	return session.SendCommandSimple(command)
}

// Close closes the current session. Later commands fail with
// ErrReconnectorClosed.
func (r *Reconnector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.session == nil {
		return nil
	}

	return r.session.Close()
}

func (r *Reconnector) current() (*client.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrReconnectorClosed
	}

	if r.session != nil {
		err := r.session.Err()
		if err == nil {
			return r.session, nil
		}

		r.log.Info("Replacing unusable session", zap.Error(err))
		r.session.Close()
		r.session = nil
	}

	session, err := r.open()
	if err != nil {
		return nil, err
	}

	r.session = session

	return session, nil
}

var _ Commander = (*Reconnector)(nil)
