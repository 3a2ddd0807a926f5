package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SessionOptions sizes a session's queues and limits.
type SessionOptions struct {
	InQueueSize       int
	OutQueueSize      int
	MessagesPerSecond int   // 0 = unlimited
	ReadLimit         int64 // max inbound frame size, 0 = unlimited
	WriteTimeout      time.Duration
}

// Session represents a single viewer connection. Network I/O runs in
// dedicated goroutines; everything else is touched only by the game loop.
type Session struct {
	ID     uint64 // transport-level id, assigned at accept
	ConnID string // registry id, assigned by the lifecycle handler
	IP     string

	conn *websocket.Conn

	InQueue  chan []byte // game loop reads messages from here
	OutQueue chan []byte // writer goroutine reads from here

	outBuf  [][]byte // buffered messages, flushed by OutputSystem (game loop only)
	dropped uint64   // frames dropped on a full OutQueue (game loop only)

	limiter      *rate.Limiter
	readLimit    int64
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id uint64, ip string, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		IP:           ip,
		conn:         conn,
		InQueue:      make(chan []byte, opts.InQueueSize),
		OutQueue:     make(chan []byte, opts.OutQueueSize),
		readLimit:    opts.ReadLimit,
		writeTimeout: opts.WriteTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint64("session", id)),
	}
	if opts.MessagesPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.MessagesPerSecond)
	}
	return s
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	if s.readLimit > 0 {
		s.conn.SetReadLimit(s.readLimit)
	}
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a message. It is not written until FlushOutput runs.
// Game loop only; never blocks.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput hands buffered messages to the writer goroutine. When the
// out queue is full the remaining messages of this tick are dropped: the
// viewer misses a frame, the game loop never waits.
func (s *Session) FlushOutput() {
	for i, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			n := uint64(len(s.outBuf) - i)
			s.dropped += n
			s.log.Debug("out queue full, frame dropped",
				zap.Uint64("messages", n),
				zap.Uint64("total_dropped", s.dropped),
			)
			s.resetOut()
			return
		}
	}
	s.resetOut()
}

func (s *Session) resetOut() {
	clear(s.outBuf)
	s.outBuf = s.outBuf[:0]
}

// Dropped returns how many messages were dropped on a full out queue.
func (s *Session) Dropped() uint64 {
	return s.dropped
}

// Close shuts the session down. Safe from any goroutine, idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop pushes inbound text frames onto InQueue for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warn("message rate exceeded, closing")
			return
		}

		// Blocking here only stalls this viewer's reader.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes queued messages to the socket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if s.writeTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// Bind records the registry id assigned to this session. Game loop only;
// the I/O goroutines never read ConnID.
func (s *Session) Bind(connID string) {
	s.ConnID = connID
}

// Key returns the registry id, empty until Bind.
func (s *Session) Key() string { return s.ConnID }

// Addr returns the remote address.
func (s *Session) Addr() string { return s.IP }
