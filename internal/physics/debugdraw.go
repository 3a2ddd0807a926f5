package physics

import "github.com/ByteArena/box2d"

// Color is an RGB triple in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Body colors, matching the stock Box2D debug renderer.
var (
	ColorInactive  = Color{R: 0.5, G: 0.5, B: 0.3}
	ColorStatic    = Color{R: 0.5, G: 0.9, B: 0.5}
	ColorKinematic = Color{R: 0.5, G: 0.5, B: 0.9}
	ColorSleeping  = Color{R: 0.6, G: 0.6, B: 0.6}
	ColorAwake     = Color{R: 0.9, G: 0.7, B: 0.7}
)

// DebugDrawer receives the primitives of one debug-draw pass. All
// coordinates are world-space simulation units.
type DebugDrawer interface {
	DrawSolidPolygon(vertices []Vec2, color Color)
	DrawSolidCircle(center Vec2, radius float64, axis Vec2, color Color)
	DrawSegment(p1, p2 Vec2, color Color)
}

// DebugDraw emits every fixture shape of every body into sink. Call it
// only after Step has returned so the geometry is post-step.
func (w *World) DebugDraw(sink DebugDrawer) {
	for b := w.b2.GetBodyList(); b != nil; b = b.GetNext() {
		xf := b.GetTransform()
		color := bodyColor(b)
		for f := b.GetFixtureList(); f != nil; f = f.GetNext() {
			drawShape(sink, f, xf, color)
		}
	}
}

func bodyColor(b *box2d.B2Body) Color {
	switch {
	case !b.IsActive():
		return ColorInactive
	case b.GetType() == box2d.B2BodyType.B2_staticBody:
		return ColorStatic
	case b.GetType() == box2d.B2BodyType.B2_kinematicBody:
		return ColorKinematic
	case !b.IsAwake():
		return ColorSleeping
	default:
		return ColorAwake
	}
}

func drawShape(sink DebugDrawer, f *box2d.B2Fixture, xf box2d.B2Transform, color Color) {
	switch f.GetType() {
	case box2d.B2Shape_Type.E_circle:
		circle, ok := f.GetShape().(*box2d.B2CircleShape)
		if !ok {
			return
		}
		center := box2d.B2TransformVec2Mul(xf, circle.M_p)
		axis := box2d.B2RotVec2Mul(xf.Q, box2d.MakeB2Vec2(1, 0))
		sink.DrawSolidCircle(vec(center), circle.M_radius, vec(axis), color)

	case box2d.B2Shape_Type.E_polygon:
		poly, ok := f.GetShape().(*box2d.B2PolygonShape)
		if !ok {
			return
		}
		vertices := make([]Vec2, poly.M_count)
		for i := 0; i < poly.M_count; i++ {
			vertices[i] = vec(box2d.B2TransformVec2Mul(xf, poly.M_vertices[i]))
		}
		sink.DrawSolidPolygon(vertices, color)

	case box2d.B2Shape_Type.E_edge:
		edge, ok := f.GetShape().(*box2d.B2EdgeShape)
		if !ok {
			return
		}
		sink.DrawSegment(
			vec(box2d.B2TransformVec2Mul(xf, edge.M_vertex1)),
			vec(box2d.B2TransformVec2Mul(xf, edge.M_vertex2)),
			color,
		)
	}
}

func vec(v box2d.B2Vec2) Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}
