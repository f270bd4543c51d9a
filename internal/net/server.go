package net

import (
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts observer connections and creates Sessions.
// New sessions reach the simulation loop through a channel.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	active   atomic.Int64
	newConns chan *Session
	inSize   int
	outSize  int
	limit    int // max live observers, 0 = unlimited
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, inSize, outSize int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		inSize:   inSize,
		outSize:  outSize,
		log:      log,
		closeCh:  make(chan struct{}),
	}
	return s, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, starts their
// sessions, and pushes them onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		if s.limit > 0 && s.active.Load() >= int64(s.limit) {
			s.log.Warn("觀察者數量已達上限，拒絕連線",
				zap.String("ip", conn.RemoteAddr().String()), zap.Int("limit", s.limit))
			conn.Close()
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.inSize, s.outSize, s.log)
		s.active.Add(1)
		sess.onClose = func() { s.active.Add(-1) }
		sess.Start()

		s.log.Info(fmt.Sprintf("觀察者連線  session=%d  ip=%s  active=%d", id, sess.IP, s.active.Load()))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("連線佇列已滿，拒絕新連線")
			sess.Close()
		}
	}
}

// SetLimit caps the number of live observers. Must be called before
// AcceptLoop starts.
func (s *Server) SetLimit(n int) { s.limit = n }

// Active returns the number of observers whose sessions are still open.
func (s *Server) Active() int { return int(s.active.Load()) }

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
