package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Session is one observer connection. Network I/O runs in dedicated
// goroutines; the simulation loop only touches outBuf and the queues.
type Session struct {
	ID   uint64
	conn net.Conn

	InQueue  chan []byte // simulation loop reads observer packets from here
	OutQueue chan []byte // writer goroutine reads from here

	IP string

	// Layer is the observer's layer filter, 0 = every layer. Simulation loop only.
	Layer int32

	outBuf [][]byte // buffered packets, flushed once per frame (simulation loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func() // set by the server before Start

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize int, log *zap.Logger) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan []byte, inSize),
		OutQueue: make(chan []byte, outSize),
		IP:       conn.RemoteAddr().String(),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet. Nothing reaches TCP until FlushOutput.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the observer is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速觀察者")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads observer frames and pushes them onto InQueue. Observers
// send little; a full queue drops the packet rather than stalling the socket.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		default:
			s.log.Debug("輸入佇列已滿，丟棄封包", zap.Int("len", len(payload)))
		}
	}
}

// writeLoop writes queued packets as frames until the session closes.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOnePacket(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOnePacket(data []byte) bool {
	if len(data) > 0 {
		s.log.Debug("TX",
			zap.String("op", fmt.Sprintf("0x%02X(%d)", data[0], data[0])),
			zap.Int("len", len(data)),
		)
	}

	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := WriteFrame(s.conn, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("寫入錯誤", zap.Error(err))
		}
		return false
	}
	return true
}
