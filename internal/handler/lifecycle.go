package handler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/starsandbox/server/internal/core/event"
	"github.com/starsandbox/server/internal/protocol"
)

// Lifecycle turns transport events into registry changes. Every method runs
// on the game loop between ticks.
type Lifecycle struct {
	deps        *Deps
	reg         *protocol.Registry
	platformMsg []byte
}

// NewLifecycle pre-encodes the PLATFORM_INFO message, which never changes.
func NewLifecycle(deps *Deps, reg *protocol.Registry) (*Lifecycle, error) {
	msg, err := protocol.PlatformInfoMessage(deps.Scene.PlatformsCopy())
	if err != nil {
		return nil, fmt.Errorf("encode platform info: %w", err)
	}
	return &Lifecycle{deps: deps, reg: reg, platformMsg: msg}, nil
}

// OnConnect registers the viewer and sends it the platform layout.
func (h *Lifecycle) OnConnect(v Viewer) string {
	id := h.deps.Registry.Add(v)
	v.Bind(id)
	v.Send(h.platformMsg)

	h.deps.Log.Info("client connected",
		zap.String("conn", id),
		zap.String("ip", v.Addr()),
		zap.Int("online", h.deps.Registry.Len()),
	)
	event.Emit(h.deps.Bus, event.ClientConnected{ConnID: id, RemoteAddr: v.Addr()})
	return id
}

// OnMessage decodes and dispatches one inbound message. Failures are
// logged and dropped; they never reach the tick or other viewers.
func (h *Lifecycle) OnMessage(v Viewer, raw []byte) {
	if err := h.reg.Dispatch(v, raw); err != nil {
		h.deps.Log.Debug("message dropped",
			zap.String("conn", v.Key()),
			zap.Error(err),
		)
	}
}

// OnClose unregisters the viewer, dropping any debug subscription.
func (h *Lifecycle) OnClose(v Viewer) {
	id := v.Key()
	if _, live := h.deps.Registry.State(id); !live {
		return
	}
	changed := h.deps.Registry.Remove(id)

	h.deps.Log.Info("client disconnected",
		zap.String("conn", id),
		zap.Int("online", h.deps.Registry.Len()),
	)
	event.Emit(h.deps.Bus, event.ClientDisconnected{ConnID: id})
	if changed {
		h.deps.modeChanged()
	}
}
