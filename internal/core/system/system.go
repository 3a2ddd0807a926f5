package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: connection events + inbound messages
	PhasePreUpdate               // 1: dispatch last tick's events
	PhaseUpdate                  // 2: physics step
	PhasePostUpdate              // 3: star + debug broadcast
	PhaseOutput                  // 4: flush session buffers
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
