package protocol

import (
	"fmt"

	"go.uber.org/zap"
)

// HandlerFunc handles one decoded incoming message. The connection is passed
// as an opaque value to avoid an import cycle with the handler package.
type HandlerFunc func(conn any, p Payload) error

// Registry maps incoming action tags to handlers.
type Registry struct {
	handlers map[Action]HandlerFunc
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[Action]HandlerFunc),
		log:      log,
	}
}

// Register maps an action tag to a handler, replacing any previous one.
func (reg *Registry) Register(action Action, fn HandlerFunc) {
	reg.handlers[action] = fn
}

// Dispatch decodes raw, finds the handler for its action and calls it.
// Unknown actions are ignored and return nil. A malformed envelope, a
// handler error or a handler panic is returned as an error for this
// message only.
func (reg *Registry) Dispatch(conn any, raw []byte) error {
	env, err := Decode(raw)
	if err != nil {
		return err
	}
	fn, ok := reg.handlers[env.Action]
	if !ok {
		reg.log.Debug("unknown action", zap.String("action", env.Action.String()))
		return nil
	}
	return reg.safeCall(fn, conn, env)
}

// safeCall runs a handler with panic recovery so one bad message cannot
// take down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, conn any, env Envelope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("action", env.Action.String()),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", env.Action, rec)
		}
	}()
	if err := fn(conn, Payload(env.Data)); err != nil {
		return fmt.Errorf("%s: %w", env.Action, err)
	}
	return nil
}
