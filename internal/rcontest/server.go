package rcontest

import (
	"errors"
	"net"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rconctl/protocol"
)

// Server serves a Handler over TCP on a loopback port. Each accepted
// connection gets its own Handler from the factory.
type Server struct {
	listener   net.Listener
	newHandler func() Handler

	loopWaiter sync.WaitGroup

	mu          sync.Mutex
	activeConns map[*serverConn]struct{}

	stop chan struct{}

	log *zap.Logger
}

type serverConn struct {
	conn net.Conn

	mu     sync.Mutex
	writer *protocol.Writer
}

func (c *serverConn) write(packets []protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range packets {
		if err := c.writer.WritePacket(p); err != nil {
			return err
		}
	}

	return nil
}

// NewServer starts listening on 127.0.0.1 on a free port.
func NewServer(newHandler func() Handler, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	listener, err := reuseport.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		newHandler:  newHandler,
		activeConns: make(map[*serverConn]struct{}),
		stop:        make(chan struct{}),
		log:         log,
	}

	s.loopWaiter.Add(1)
	go func() {
		defer s.loopWaiter.Done()
		s.acceptLoop()
	}()

	return s, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ConnCount returns the number of connected clients.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.activeConns)
}

// Broadcast sends packets to every connected client, e.g. to emulate log
// lines pushed by the server.
func (s *Server) Broadcast(packets ...protocol.Packet) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.activeConns {
		if werr := conn.write(packets); werr != nil {
			err = multierr.Append(err, werr)
		}
	}

	return err
}

// Close stops accepting, closes every client connection and waits for the
// connection loops to exit.
func (s *Server) Close() error {
	select {
	case <-s.stop:
		return nil
	default:
		close(s.stop)
	}

	err := s.listener.Close()

	s.mu.Lock()
	for conn := range s.activeConns {
		err = multierr.Append(err, conn.conn.Close())
	}
	s.mu.Unlock()

	s.loopWaiter.Wait()

	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("Failed to accept", zap.Error(err))
			}
			return
		}

		sc := &serverConn{
			conn:   conn,
			writer: protocol.NewWriter(conn, 0),
		}

		s.mu.Lock()
		select {
		case <-s.stop:
			s.mu.Unlock()
			conn.Close()
			return
		default:
			s.activeConns[sc] = struct{}{}
		}
		s.mu.Unlock()

		s.loopWaiter.Add(1)
		go func() {
			defer s.loopWaiter.Done()
			s.serve(sc)
		}()
	}
}

func (s *Server) serve(sc *serverConn) {
	log := s.log.With(zap.String("remote", sc.conn.RemoteAddr().String()))

	defer func() {
		s.mu.Lock()
		delete(s.activeConns, sc)
		s.mu.Unlock()

		sc.conn.Close()
	}()

	handler := s.newHandler()
	reader := protocol.NewReader(sc.conn, protocol.ReaderOptions{})

	for {
		req, err := reader.ReadPacket()
		if err != nil {
			if !errors.Is(err, protocol.ErrConnectionClosed) {
				log.Warn("Failed to read client request", zap.Error(err))
			}
			return
		}

		if err := sc.write(handler(req)); err != nil {
			log.Warn("Failed to reply", zap.Error(err))
			return
		}
	}
}
