package physics

import (
	"errors"
	"fmt"

	"github.com/ByteArena/box2d"

	"github.com/starsandbox/server/internal/data"
)

// ErrEngine is returned when the physics engine cannot construct the world.
var ErrEngine = errors.New("physics engine")

// Vec2 is a 2D vector. Units depend on context: World methods speak
// simulation units (meters) unless documented otherwise.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Options tunes world construction.
type Options struct {
	Gravity        Vec2    // simulation units per second squared
	PixelsPerMeter float64 // display units per simulation unit
}

// Platform is a static body as created, in simulation units.
type Platform struct {
	Center      Vec2
	HalfExtents Vec2
}

// World owns the box2d world and the star body. It is not safe for
// concurrent use; the tick loop is its only caller after construction.
type World struct {
	b2        *box2d.B2World
	star      *box2d.B2Body
	ppm       float64
	platforms []Platform
}

// New builds the world from the scene: one static box per platform, then
// the dynamic circular star.
func New(sc data.Scene, opts Options) (w *World, err error) {
	if opts.PixelsPerMeter <= 0 {
		return nil, fmt.Errorf("%w: pixels per meter %v", data.ErrInvalidScene, opts.PixelsPerMeter)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("%w: %v", ErrEngine, r)
		}
	}()

	b2w := box2d.MakeB2World(box2d.MakeB2Vec2(opts.Gravity.X, opts.Gravity.Y))
	w = &World{
		b2:        &b2w,
		ppm:       opts.PixelsPerMeter,
		platforms: make([]Platform, 0, len(sc.Platforms)),
	}

	for _, p := range sc.Platforms {
		half := Vec2{
			X: p.W * p.Scale / 2 / w.ppm,
			Y: p.H * p.Scale / 2 / w.ppm,
		}
		center := Vec2{X: p.X / w.ppm, Y: p.Y / w.ppm}

		shape := box2d.MakeB2PolygonShape()
		shape.SetAsBox(half.X, half.Y)

		def := box2d.MakeB2BodyDef()
		def.Type = box2d.B2BodyType.B2_staticBody
		def.Position = box2d.MakeB2Vec2(center.X, center.Y)

		body := w.b2.CreateBody(&def)
		fixture := body.CreateFixture(&shape, 0)
		fixture.SetFriction(sc.PlatformFriction)

		w.platforms = append(w.platforms, Platform{Center: center, HalfExtents: half})
	}

	st := sc.Star
	circle := box2d.MakeB2CircleShape()
	circle.M_radius = st.Radius / w.ppm

	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	def.Position = box2d.MakeB2Vec2(st.X/w.ppm, st.Y/w.ppm)

	w.star = w.b2.CreateBody(&def)
	w.star.SetFixedRotation(st.FixedRotation)
	fixture := w.star.CreateFixture(&circle, st.Density)
	fixture.SetFriction(st.Friction)
	fixture.SetRestitution(st.Restitution)

	return w, nil
}

// Step advances the world by dt seconds.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	w.b2.Step(dt, velocityIterations, positionIterations)
}

// StarPosition returns the star's position in simulation units.
func (w *World) StarPosition() Vec2 {
	p := w.star.GetPosition()
	return Vec2{X: p.X, Y: p.Y}
}

// ToDisplay converts a simulation-unit vector to display units.
func (w *World) ToDisplay(v Vec2) Vec2 {
	return Vec2{X: v.X * w.ppm, Y: v.Y * w.ppm}
}

// Platforms returns the static bodies created from the scene, in scene order.
func (w *World) Platforms() []Platform {
	out := make([]Platform, len(w.platforms))
	copy(out, w.platforms)
	return out
}

// BodyCount returns the number of bodies in the engine world.
func (w *World) BodyCount() int {
	return w.b2.GetBodyCount()
}
