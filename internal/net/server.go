package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades websocket requests into Sessions and serves the static
// front-end for everything else. New sessions reach the game loop through
// a channel; the server never touches game state.
type Server struct {
	upgrader websocket.Upgrader
	opts     SessionOptions
	static   http.Handler
	nextID   atomic.Uint64
	newConns chan *Session
	closeCh  chan struct{}
	httpSrv  *http.Server
	listener net.Listener
	log      *zap.Logger
}

// NewServer creates a server. staticDir is served when it exists.
func NewServer(opts SessionOptions, staticDir string, log *zap.Logger) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts:     opts,
		newConns: make(chan *Session, 64),
		closeCh:  make(chan struct{}),
		log:      log,
	}
	if staticDir != "" {
		if fi, err := os.Stat(staticDir); err == nil && fi.IsDir() {
			s.static = http.FileServer(http.Dir(staticDir))
		}
	}
	return s
}

// Listen binds the listening socket. Serve must be called afterwards.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.httpSrv = &http.Server{Handler: s}
	return nil
}

// Serve runs the HTTP server until Shutdown. Run it in its own goroutine.
func (s *Server) Serve() error {
	err := s.httpSrv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeHTTP routes websocket upgrades to sessions and the rest to the
// static file server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		if s.static == nil {
			http.NotFound(w, r)
			return
		}
		s.static.ServeHTTP(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.String("ip", r.RemoteAddr), zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := NewSession(conn, id, r.RemoteAddr, s.opts, s.log)

	select {
	case <-s.closeCh:
		conn.Close()
		return
	default:
	}

	select {
	case s.newConns <- sess:
		sess.Start()
		s.log.Debug("session accepted", zap.Uint64("session", id), zap.String("ip", sess.IP))
	default:
		s.log.Warn("connection queue full, rejecting")
		conn.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting connections and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.closeCh:
		return nil
	default:
		close(s.closeCh)
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
