package debugdraw

import (
	"go.uber.org/zap"

	"github.com/starsandbox/server/internal/physics"
	"github.com/starsandbox/server/internal/protocol"
	"github.com/starsandbox/server/internal/world"
)

// Subscribers is the slice of the connection registry the aggregator reads.
type Subscribers interface {
	DebugSubscribers() []world.Conn
}

// Aggregator collects one frame of debug-draw primitives, converted to
// display units. It is filled by World.DebugDraw and emptied only by
// DrainAndBroadcast. Game loop only.
type Aggregator struct {
	ppm     float64
	pending []protocol.Collider
	log     *zap.Logger
}

func NewAggregator(pixelsPerMeter float64, log *zap.Logger) *Aggregator {
	return &Aggregator{
		ppm:     pixelsPerMeter,
		pending: make([]protocol.Collider, 0, 16),
		log:     log,
	}
}

func (a *Aggregator) scale(v physics.Vec2) physics.Vec2 {
	return physics.Vec2{X: v.X * a.ppm, Y: v.Y * a.ppm}
}

func (a *Aggregator) DrawSolidPolygon(vertices []physics.Vec2, color physics.Color) {
	scaled := make([]physics.Vec2, len(vertices))
	for i, v := range vertices {
		scaled[i] = a.scale(v)
	}
	a.pending = append(a.pending, protocol.Collider{
		Kind:     protocol.KindSolidPolygon,
		Vertices: scaled,
		Color:    color,
	})
}

func (a *Aggregator) DrawSolidCircle(center physics.Vec2, radius float64, axis physics.Vec2, color physics.Color) {
	c := a.scale(center)
	ax := axis // unit vector, not scaled
	a.pending = append(a.pending, protocol.Collider{
		Kind:   protocol.KindSolidCircle,
		Center: &c,
		Radius: radius * a.ppm,
		Axis:   &ax,
		Color:  color,
	})
}

func (a *Aggregator) DrawSegment(p1, p2 physics.Vec2, color physics.Color) {
	s1, s2 := a.scale(p1), a.scale(p2)
	a.pending = append(a.pending, protocol.Collider{
		Kind:  protocol.KindSegment,
		P1:    &s1,
		P2:    &s2,
		Color: color,
	})
}

// Len returns the number of primitives waiting to be broadcast.
func (a *Aggregator) Len() int {
	return len(a.pending)
}

// DrainAndBroadcast sends every pending primitive as a COLLIDER_INFO
// message to each current debug subscriber, then empties the buffer. It
// returns the number of primitives drained. The buffer is emptied even if
// an encode fails, so nothing leaks into the next tick.
func (a *Aggregator) DrainAndBroadcast(subs Subscribers) int {
	n := len(a.pending)
	defer a.reset()
	if n == 0 {
		return 0
	}

	targets := subs.DebugSubscribers()
	for _, c := range a.pending {
		msg, err := protocol.ColliderInfoMessage(c)
		if err != nil {
			a.log.Warn("collider encode failed", zap.String("kind", c.Kind), zap.Error(err))
			continue
		}
		for _, conn := range targets {
			conn.Send(msg)
		}
	}
	return n
}

func (a *Aggregator) reset() {
	clear(a.pending)
	a.pending = a.pending[:0]
}
