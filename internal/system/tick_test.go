package system

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/starsandbox/server/internal/config"
	"github.com/starsandbox/server/internal/core/event"
	coresys "github.com/starsandbox/server/internal/core/system"
	"github.com/starsandbox/server/internal/data"
	"github.com/starsandbox/server/internal/debugdraw"
	"github.com/starsandbox/server/internal/handler"
	"github.com/starsandbox/server/internal/physics"
	"github.com/starsandbox/server/internal/protocol"
	"github.com/starsandbox/server/internal/world"
)

type fakeViewer struct {
	id   string
	addr string
	msgs [][]byte
}

func (v *fakeViewer) Send(b []byte)  { v.msgs = append(v.msgs, b) }
func (v *fakeViewer) Bind(id string) { v.id = id }
func (v *fakeViewer) Key() string    { return v.id }
func (v *fakeViewer) Addr() string   { return v.addr }

func (v *fakeViewer) take(t *testing.T) []protocol.Envelope {
	t.Helper()
	out := make([]protocol.Envelope, 0, len(v.msgs))
	for _, m := range v.msgs {
		env, err := protocol.Decode(m)
		if err != nil {
			t.Fatalf("decode %s: %v", m, err)
		}
		out = append(out, env)
	}
	v.msgs = nil
	return out
}

type harness struct {
	t         *testing.T
	cfg       config.SimulationConfig
	world     *physics.World
	registry  *world.Registry
	lifecycle *handler.Lifecycle
	collector *debugdraw.Aggregator
	bus       *event.Bus
	runner    *coresys.Runner
}

func newHarness(t *testing.T, gravity physics.Vec2) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg := config.SimulationConfig{
		TickRate:           16 * time.Millisecond,
		TimeStep:           0.016,
		VelocityIterations: 3,
		PositionIterations: 2,
		PixelsPerMeter:     50,
	}
	sc := data.DefaultScene()
	w, err := physics.New(sc, physics.Options{Gravity: gravity, PixelsPerMeter: cfg.PixelsPerMeter})
	if err != nil {
		t.Fatal(err)
	}
	reg := world.NewRegistry()
	bus := event.NewBus()
	deps := &handler.Deps{Registry: reg, Scene: sc, Bus: bus, Log: log}
	preg := protocol.NewRegistry(log)
	handler.RegisterAll(preg, deps)
	lc, err := handler.NewLifecycle(deps, preg)
	if err != nil {
		t.Fatal(err)
	}
	agg := debugdraw.NewAggregator(cfg.PixelsPerMeter, log)

	runner := coresys.NewRunner()
	runner.Register(NewBroadcastSystem(w, reg, agg, log))
	runner.Register(NewPhysicsSystem(w, cfg))
	runner.Register(NewEventDispatchSystem(bus))

	return &harness{t: t, cfg: cfg, world: w, registry: reg, lifecycle: lc, collector: agg, bus: bus, runner: runner}
}

func (h *harness) connect() *fakeViewer {
	v := &fakeViewer{addr: "127.0.0.1:1"}
	h.lifecycle.OnConnect(v)
	return v
}

func (h *harness) toggle(v *fakeViewer, on bool) {
	raw := `{"action":"csToggleDebugMode","data":"{\"debugMode\":false}"}`
	if on {
		raw = `{"action":"csToggleDebugMode","data":"{\"debugMode\":true}"}`
	}
	h.lifecycle.OnMessage(v, []byte(raw))
}

func (h *harness) tick() { h.runner.Tick(h.cfg.TickRate) }

func actions(envs []protocol.Envelope) []protocol.Action {
	out := make([]protocol.Action, len(envs))
	for i, e := range envs {
		out[i] = e.Action
	}
	return out
}

func innerJSON(t *testing.T, env protocol.Envelope, v any) {
	t.Helper()
	if err := protocol.Payload(env.Data).Decode(v); err != nil {
		t.Fatalf("payload of %s: %v", env.Action, err)
	}
}

func TestConnectSendsPlatformInfoOnce(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	a := h.connect()

	envs := a.take(t)
	if len(envs) != 1 || envs[0].Action != protocol.ActionPlatformInfo {
		t.Fatalf("on connect got %v", actions(envs))
	}
	var platforms []data.PlatformInfo
	innerJSON(t, envs[0], &platforms)
	if len(platforms) != 4 {
		t.Fatalf("platforms = %d, want 4", len(platforms))
	}

	h.tick()
	for _, act := range actions(a.take(t)) {
		if act == protocol.ActionPlatformInfo {
			t.Fatal("PLATFORM_INFO sent again on tick")
		}
	}
}

func TestStarPositionEveryTickForEveryConnection(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	viewers := []*fakeViewer{h.connect(), h.connect(), h.connect()}
	for _, v := range viewers {
		v.take(t)
	}

	for tick := 0; tick < 3; tick++ {
		h.tick()
		want := h.world.StarPosition()
		for i, v := range viewers {
			envs := v.take(t)
			if len(envs) != 1 || envs[0].Action != protocol.ActionStarPosition {
				t.Fatalf("tick %d viewer %d got %v", tick, i, actions(envs))
			}
			var pos protocol.StarPosition
			innerJSON(t, envs[0], &pos)
			if math.Abs(pos.X-want.X*50) > 1e-9 || math.Abs(pos.Y-want.Y*50) > 1e-9 {
				t.Fatalf("tick %d: star = %+v, want %+v*50", tick, pos, want)
			}
		}
	}
}

func TestDebugSubscriberGetsCollidersThenClear(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	a, b := h.connect(), h.connect()
	a.take(t)
	b.take(t)

	h.toggle(a, true)
	if !h.registry.DebugMode() {
		t.Fatal("debug mode not on after toggle")
	}

	for tick := 0; tick < 2; tick++ {
		h.tick()

		got := actions(a.take(t))
		if len(got) < 2 || got[0] != protocol.ActionStarPosition || got[len(got)-1] != protocol.ActionClearColliderInfo {
			t.Fatalf("tick %d: A got %v", tick, got)
		}
		colliders := 0
		for _, act := range got[1 : len(got)-1] {
			if act != protocol.ActionColliderInfo {
				t.Fatalf("tick %d: unexpected %s between colliders", tick, act)
			}
			colliders++
		}
		if colliders != 5 {
			t.Fatalf("tick %d: colliders = %d, want 5 (4 platforms + star)", tick, colliders)
		}
		if h.collector.Len() != 0 {
			t.Fatalf("tick %d: aggregator not empty after broadcast", tick)
		}

		if got := actions(b.take(t)); len(got) != 1 || got[0] != protocol.ActionStarPosition {
			t.Fatalf("tick %d: B got %v", tick, got)
		}
	}
}

func TestDebugModeDrivenBySubscriptionUnion(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	a, b := h.connect(), h.connect()
	h.toggle(a, true)
	h.toggle(b, true)
	a.take(t)

	h.lifecycle.OnClose(a)
	if !h.registry.DebugMode() {
		t.Fatal("debug mode dropped while B is still subscribed")
	}

	h.toggle(b, false)
	if h.registry.DebugMode() {
		t.Fatal("debug mode still on with no subscribers")
	}

	b.take(t)
	h.tick()
	if got := actions(b.take(t)); len(got) != 1 || got[0] != protocol.ActionStarPosition {
		t.Fatalf("B got %v after opting out", got)
	}
	if len(a.msgs) != 0 {
		t.Fatalf("closed A still received %d messages", len(a.msgs))
	}
}

func TestMalformedToggleLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	a := h.connect()

	for _, raw := range []string{
		`{"action":"csToggleDebugMode","data":"{\"debugMode\":1}"}`,
		`{"action":"csToggleDebugMode","data":null}`,
		`{"action":"csUnknown","data":"{}"}`,
		`garbage`,
	} {
		h.lifecycle.OnMessage(a, []byte(raw))
	}
	if h.registry.DebugMode() || h.registry.IsSubscribed(a.Key()) {
		t.Fatal("malformed input changed the subscription")
	}
	if st, _ := h.registry.State(a.Key()); st != world.StateConnected {
		t.Fatalf("state = %s, want Connected", st)
	}
}

func TestLifecycleEventsReachBusNextTick(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	var modes []bool
	var connected, disconnected int
	event.Subscribe(h.bus, func(e event.DebugModeChanged) { modes = append(modes, e.Active) })
	event.Subscribe(h.bus, func(event.ClientConnected) { connected++ })
	event.Subscribe(h.bus, func(event.ClientDisconnected) { disconnected++ })

	a := h.connect()
	h.toggle(a, true)
	h.lifecycle.OnClose(a)
	h.lifecycle.OnClose(a) // second close is a no-op

	h.tick()
	if connected != 1 || disconnected != 1 {
		t.Fatalf("connected=%d disconnected=%d", connected, disconnected)
	}
	if len(modes) != 2 || !modes[0] || modes[1] {
		t.Fatalf("mode transitions = %v, want [true false]", modes)
	}
}

func TestStepWithoutGravityKeepsStar(t *testing.T) {
	h := newHarness(t, physics.Vec2{})
	a := h.connect()
	a.take(t)
	h.tick()
	var pos protocol.StarPosition
	innerJSON(t, a.take(t)[0], &pos)
	if math.Abs(pos.X-300) > 1e-9 || math.Abs(pos.Y-100) > 1e-9 {
		t.Fatalf("star = %+v, want (300,100)", pos)
	}
}

func TestColliderPayloadShape(t *testing.T) {
	h := newHarness(t, physics.Vec2{Y: 10})
	a := h.connect()
	h.toggle(a, true)
	a.take(t)
	h.tick()

	kinds := map[string]int{}
	for _, env := range a.take(t) {
		if env.Action != protocol.ActionColliderInfo {
			continue
		}
		var raw string
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			t.Fatalf("collider data is not string-wrapped: %v", err)
		}
		var c protocol.Collider
		innerJSON(t, env, &c)
		kinds[c.Kind]++
	}
	if kinds[protocol.KindSolidPolygon] != 4 || kinds[protocol.KindSolidCircle] != 1 {
		t.Fatalf("kinds = %v", kinds)
	}
}
