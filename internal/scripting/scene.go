package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/starsandbox/server/internal/data"
)

// ApplyScene passes the scene through the Lua build_scene(scene) hook, if
// one is defined, and returns the scene the hook hands back. Without a hook
// the input is returned unchanged.
//
// The table the hook receives (and must return) looks like:
//
//	{ platform_friction = 3,
//	  platforms = { {x=, y=, w=, h=, scale=}, ... },
//	  star = {x=, y=, radius=, density=, friction=, restitution=, fixed_rotation=} }
func (e *Engine) ApplyScene(sc data.Scene) (data.Scene, error) {
	fn := e.vm.GetGlobal("build_scene")
	if fn == lua.LNil {
		return sc, nil
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.sceneTable(sc)); err != nil {
		return data.Scene{}, fmt.Errorf("lua build_scene: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return data.Scene{}, fmt.Errorf("lua build_scene returned %s, want table", result.Type())
	}
	out, err := sceneFromTable(rt, sc)
	if err != nil {
		return data.Scene{}, err
	}
	if err := out.Validate(); err != nil {
		return data.Scene{}, fmt.Errorf("lua build_scene: %w", err)
	}
	e.log.Info("scene rewritten by script", zap.Int("platforms", out.Count()))
	return out, nil
}

func (e *Engine) sceneTable(sc data.Scene) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("platform_friction", lua.LNumber(sc.PlatformFriction))

	platforms := e.vm.NewTable()
	for _, p := range sc.Platforms {
		pt := e.vm.NewTable()
		pt.RawSetString("x", lua.LNumber(p.X))
		pt.RawSetString("y", lua.LNumber(p.Y))
		pt.RawSetString("w", lua.LNumber(p.W))
		pt.RawSetString("h", lua.LNumber(p.H))
		pt.RawSetString("scale", lua.LNumber(p.Scale))
		platforms.Append(pt)
	}
	t.RawSetString("platforms", platforms)

	star := e.vm.NewTable()
	star.RawSetString("x", lua.LNumber(sc.Star.X))
	star.RawSetString("y", lua.LNumber(sc.Star.Y))
	star.RawSetString("radius", lua.LNumber(sc.Star.Radius))
	star.RawSetString("density", lua.LNumber(sc.Star.Density))
	star.RawSetString("friction", lua.LNumber(sc.Star.Friction))
	star.RawSetString("restitution", lua.LNumber(sc.Star.Restitution))
	star.RawSetString("fixed_rotation", lua.LBool(sc.Star.FixedRotation))
	t.RawSetString("star", star)
	return t
}

// sceneFromTable reads a scene table back. Missing fields fall back to base.
func sceneFromTable(t *lua.LTable, base data.Scene) (data.Scene, error) {
	out := base
	out.Platforms = base.PlatformsCopy()

	if v, ok := t.RawGetString("platform_friction").(lua.LNumber); ok {
		out.PlatformFriction = float64(v)
	}

	switch pv := t.RawGetString("platforms").(type) {
	case *lua.LTable:
		out.Platforms = make([]data.PlatformInfo, 0, pv.Len())
		for i := 1; i <= pv.Len(); i++ {
			pt, ok := pv.RawGetInt(i).(*lua.LTable)
			if !ok {
				return data.Scene{}, fmt.Errorf("lua build_scene: platform %d is not a table", i)
			}
			out.Platforms = append(out.Platforms, data.PlatformInfo{
				X:     number(pt, "x", 0),
				Y:     number(pt, "y", 0),
				W:     number(pt, "w", 0),
				H:     number(pt, "h", 0),
				Scale: number(pt, "scale", 1),
			})
		}
	case *lua.LNilType:
	default:
		return data.Scene{}, fmt.Errorf("lua build_scene: platforms is %s, want table", pv.Type())
	}

	if st, ok := t.RawGetString("star").(*lua.LTable); ok {
		s := &out.Star
		s.X = number(st, "x", s.X)
		s.Y = number(st, "y", s.Y)
		s.Radius = number(st, "radius", s.Radius)
		s.Density = number(st, "density", s.Density)
		s.Friction = number(st, "friction", s.Friction)
		s.Restitution = number(st, "restitution", s.Restitution)
		if b, ok := st.RawGetString("fixed_rotation").(lua.LBool); ok {
			s.FixedRotation = bool(b)
		}
	}
	return out, nil
}

func number(t *lua.LTable, key string, def float64) float64 {
	if v, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float64(v)
	}
	return def
}
