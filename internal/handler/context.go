package handler

import (
	"go.uber.org/zap"

	"github.com/starsandbox/server/internal/core/event"
	"github.com/starsandbox/server/internal/data"
	"github.com/starsandbox/server/internal/protocol"
	"github.com/starsandbox/server/internal/world"
)

// Viewer is the handler's view of one transport session.
type Viewer interface {
	world.Conn
	Bind(connID string)
	Key() string
	Addr() string
}

// Deps holds shared dependencies injected into all handlers.
type Deps struct {
	Registry *world.Registry
	Scene    data.Scene
	Bus      *event.Bus
	Log      *zap.Logger
}

// RegisterAll registers every incoming action handler.
func RegisterAll(reg *protocol.Registry, deps *Deps) {
	reg.Register(protocol.ActionToggleDebugMode, func(conn any, p protocol.Payload) error {
		return HandleToggleDebugMode(conn.(Viewer), p, deps)
	})
}

// modeChanged publishes a global debug-mode transition.
func (d *Deps) modeChanged() {
	active := d.Registry.DebugMode()
	d.Log.Info("debug mode changed",
		zap.Bool("active", active),
		zap.Int("subscribers", d.Registry.SubscriberCount()),
	)
	event.Emit(d.Bus, event.DebugModeChanged{
		Active:      active,
		Subscribers: d.Registry.SubscriberCount(),
	})
}
