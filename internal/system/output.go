package system

import (
	"time"

	coresys "github.com/starsandbox/server/internal/core/system"
	"github.com/starsandbox/server/internal/net"
)

// OutputSystem flushes buffered output for all sessions. Phase 4 (Output),
// after everything this tick wanted to send has been buffered.
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
