package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/starsandbox/server/internal/core/system"
	"github.com/starsandbox/server/internal/debugdraw"
	"github.com/starsandbox/server/internal/physics"
	"github.com/starsandbox/server/internal/protocol"
	"github.com/starsandbox/server/internal/world"
)

// Simulation is the read side of the physics world.
type Simulation interface {
	StarPosition() physics.Vec2
	ToDisplay(v physics.Vec2) physics.Vec2
	DebugDraw(sink physics.DebugDrawer)
}

// BroadcastSystem pushes the post-step state. Phase 3 (PostUpdate), after
// the physics step of the same tick.
//
// Every live connection gets one STAR_POSITION. While debug mode is on, the
// world's debug draw is collected and sent to debug subscribers as
// COLLIDER_INFO messages, closed by one CLEAR_COLLIDER_INFO.
type BroadcastSystem struct {
	sim       Simulation
	registry  *world.Registry
	collector *debugdraw.Aggregator
	log       *zap.Logger
}

func NewBroadcastSystem(sim Simulation, registry *world.Registry, collector *debugdraw.Aggregator, log *zap.Logger) *BroadcastSystem {
	return &BroadcastSystem{
		sim:       sim,
		registry:  registry,
		collector: collector,
		log:       log,
	}
}

func (s *BroadcastSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *BroadcastSystem) Update(_ time.Duration) {
	s.broadcastStar()
	if s.registry.DebugMode() {
		s.broadcastDebug()
	}
}

func (s *BroadcastSystem) broadcastStar() {
	if s.registry.Len() == 0 {
		return
	}
	pos := s.sim.ToDisplay(s.sim.StarPosition())
	msg, err := protocol.StarPositionMessage(protocol.StarPosition{X: pos.X, Y: pos.Y})
	if err != nil {
		s.log.Warn("star position encode failed", zap.Error(err))
		return
	}
	for _, c := range s.registry.All() {
		c.Send(msg)
	}
}

func (s *BroadcastSystem) broadcastDebug() {
	s.sim.DebugDraw(s.collector)
	s.collector.DrainAndBroadcast(s.registry)

	clearMsg := protocol.ClearColliderInfoMessage()
	for _, c := range s.registry.DebugSubscribers() {
		c.Send(clearMsg)
	}
}
