package system

import (
	"time"

	coresys "github.com/starsandbox/server/internal/core/system"
	"github.com/starsandbox/server/internal/handler"
	"github.com/starsandbox/server/internal/net"
)

// SessionSource delivers newly accepted sessions.
type SessionSource interface {
	NewSessions() <-chan *net.Session
}

// InputSystem feeds transport events to the lifecycle handler: new
// sessions, closed sessions, then queued inbound messages. Phase 0 (Input).
// Connection churn is therefore only ever seen between world steps.
type InputSystem struct {
	source     SessionSource
	store      *net.SessionStore
	lifecycle  *handler.Lifecycle
	maxPerTick int
}

func NewInputSystem(source SessionSource, store *net.SessionStore, lifecycle *handler.Lifecycle, maxPerTick int) *InputSystem {
	return &InputSystem{
		source:     source,
		store:      store,
		lifecycle:  lifecycle,
		maxPerTick: maxPerTick,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
			s.lifecycle.OnConnect(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			s.lifecycle.OnClose(sess)
			s.store.Remove(id)
			continue
		}

		for i := 0; i < s.maxPerTick; i++ {
			select {
			case data := <-sess.InQueue:
				s.lifecycle.OnMessage(sess, data)
			default:
				goto nextSession
			}
		}
	nextSession:
	}
}

// CloseAll closes every session through the lifecycle handler, so shutdown
// disconnects emit the same events as client hangups. Call it on the game
// loop after the scheduler has stopped.
func (s *InputSystem) CloseAll() int {
	n := 0
	for id, sess := range s.store.Raw() {
		s.lifecycle.OnClose(sess)
		sess.Close()
		s.store.Remove(id)
		n++
	}
	return n
}
