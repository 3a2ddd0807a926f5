package handler

import (
	"go.uber.org/zap"

	"github.com/starsandbox/server/internal/core/event"
	"github.com/starsandbox/server/internal/protocol"
)

// HandleToggleDebugMode processes csToggleDebugMode. A malformed payload
// leaves the subscription untouched.
func HandleToggleDebugMode(v Viewer, p protocol.Payload, deps *Deps) error {
	var msg protocol.ToggleDebugMode
	if err := p.Decode(&msg); err != nil {
		return err
	}
	enabled, err := msg.Enabled()
	if err != nil {
		return err
	}

	changed, err := deps.Registry.SetDebugSubscribed(v.Key(), enabled)
	if err != nil {
		return err
	}
	deps.Log.Debug("debug subscription",
		zap.String("conn", v.Key()),
		zap.Bool("enabled", enabled),
	)
	event.Emit(deps.Bus, event.DebugSubscriptionChanged{ConnID: v.Key(), Enabled: enabled})
	if changed {
		deps.modeChanged()
	}
	return nil
}
