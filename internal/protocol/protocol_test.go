package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/starsandbox/server/internal/data"
	"github.com/starsandbox/server/internal/physics"
)

type wireEnvelope struct {
	Action string  `json:"action"`
	Data   *string `json:"data"`
}

func unwrap(t *testing.T, raw []byte) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope %s: %v", raw, err)
	}
	return env
}

func TestPlatformInfoMessageIsStringWrapped(t *testing.T) {
	raw, err := PlatformInfoMessage(data.DefaultScene().Platforms)
	if err != nil {
		t.Fatal(err)
	}
	env := unwrap(t, raw)
	if env.Action != "scPlatformInfo" || env.Data == nil {
		t.Fatalf("envelope = %s", raw)
	}
	var platforms []data.PlatformInfo
	if err := json.Unmarshal([]byte(*env.Data), &platforms); err != nil {
		t.Fatalf("inner data: %v", err)
	}
	if len(platforms) != 4 || platforms[0].Scale != 2 {
		t.Fatalf("platforms = %+v", platforms)
	}
}

func TestStarPositionMessage(t *testing.T) {
	raw, err := StarPositionMessage(StarPosition{X: 300, Y: 100.5})
	if err != nil {
		t.Fatal(err)
	}
	env := unwrap(t, raw)
	if env.Action != "scStarPosition" || env.Data == nil || *env.Data != `{"x":300,"y":100.5}` {
		t.Fatalf("envelope = %s", raw)
	}
}

func TestColliderInfoMessage(t *testing.T) {
	c := Collider{
		Kind:   KindSolidCircle,
		Center: &physics.Vec2{X: 1, Y: 2},
		Radius: 10,
		Axis:   &physics.Vec2{X: 1},
		Color:  physics.ColorAwake,
	}
	raw, err := ColliderInfoMessage(c)
	if err != nil {
		t.Fatal(err)
	}
	env := unwrap(t, raw)
	var got Collider
	if err := json.Unmarshal([]byte(*env.Data), &got); err != nil {
		t.Fatal(err)
	}
	if env.Action != "scColliderInfo" || got.Kind != KindSolidCircle || got.Radius != 10 || got.Vertices != nil {
		t.Fatalf("collider = %+v", got)
	}
}

func TestClearColliderInfoHasNullData(t *testing.T) {
	if got := string(ClearColliderInfoMessage()); got != `{"action":"scClearColliderInfo","data":null}` {
		t.Fatalf("clear = %s", got)
	}
}

func TestPayloadDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    bool
		wantErr bool
	}{
		{name: "string wrapped", raw: `"{\"debugMode\":true}"`, want: true},
		{name: "bare object", raw: `{"debugMode":false}`, want: false},
		{name: "null", raw: `null`, wantErr: true},
		{name: "missing field", raw: `"{}"`, wantErr: true},
		{name: "wrong type", raw: `{"debugMode":"yes"}`, wantErr: true},
		{name: "garbage string", raw: `"not json"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg ToggleDebugMode
			err := Payload(tt.raw).Decode(&msg)
			if err == nil {
				var enabled bool
				enabled, err = msg.Enabled()
				if err == nil && enabled != tt.want {
					t.Fatalf("enabled = %v, want %v", enabled, tt.want)
				}
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("err = %v, want ErrMalformed", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	var calls []bool
	reg.Register(ActionToggleDebugMode, func(conn any, p Payload) error {
		if conn != "conn-a" {
			t.Fatalf("conn = %v", conn)
		}
		var msg ToggleDebugMode
		if err := p.Decode(&msg); err != nil {
			return err
		}
		on, err := msg.Enabled()
		if err != nil {
			return err
		}
		calls = append(calls, on)
		return nil
	})

	if err := reg.Dispatch("conn-a", []byte(`{"action":"csToggleDebugMode","data":"{\"debugMode\":true}"}`)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := reg.Dispatch("conn-a", []byte(`{"action":"csSomethingElse","data":null}`)); err != nil {
		t.Fatalf("unknown action should be ignored: %v", err)
	}
	if err := reg.Dispatch("conn-a", []byte(`{"action":"csToggleDebugMode","data":"{]"}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("malformed payload: err = %v", err)
	}
	if err := reg.Dispatch("conn-a", []byte(`not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("malformed envelope: err = %v", err)
	}
	if len(calls) != 1 || !calls[0] {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRegistryRecoversPanics(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.Register(ActionToggleDebugMode, func(any, Payload) error { panic("boom") })
	if err := reg.Dispatch(nil, []byte(`{"action":"csToggleDebugMode","data":null}`)); err == nil {
		t.Fatal("expected error from panicking handler")
	}
}
