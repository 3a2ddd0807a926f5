package system

import (
	"time"

	"github.com/starsandbox/server/internal/config"
	coresys "github.com/starsandbox/server/internal/core/system"
)

// Stepper advances a simulation.
type Stepper interface {
	Step(dt float64, velocityIterations, positionIterations int)
}

// PhysicsSystem advances the world by the fixed time step every tick,
// independent of wall-clock jitter. Phase 2 (Update).
type PhysicsSystem struct {
	world Stepper
	dt    float64
	velIt int
	posIt int
}

func NewPhysicsSystem(world Stepper, cfg config.SimulationConfig) *PhysicsSystem {
	return &PhysicsSystem{
		world: world,
		dt:    cfg.TimeStep,
		velIt: cfg.VelocityIterations,
		posIt: cfg.PositionIterations,
	}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PhysicsSystem) Update(_ time.Duration) {
	s.world.Step(s.dt, s.velIt, s.posIt)
}
