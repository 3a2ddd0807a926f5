package protocol

import (
	"fmt"

	"github.com/starsandbox/server/internal/data"
	"github.com/starsandbox/server/internal/physics"
)

// StarPosition is the per-tick star position in display units.
type StarPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToggleDebugMode is the one message a viewer sends.
type ToggleDebugMode struct {
	DebugMode *bool `json:"debugMode"`
}

// Enabled validates the payload and returns the requested mode.
func (t ToggleDebugMode) Enabled() (bool, error) {
	if t.DebugMode == nil {
		return false, fmt.Errorf("%w: debugMode missing", ErrMalformed)
	}
	return *t.DebugMode, nil
}

// Collider kinds.
const (
	KindSolidPolygon = "solidPolygon"
	KindSolidCircle  = "solidCircle"
	KindSegment      = "segment"
)

// Collider is one debug-draw primitive in display units.
type Collider struct {
	Kind     string         `json:"kind"`
	Vertices []physics.Vec2 `json:"vertices,omitempty"`
	Center   *physics.Vec2  `json:"center,omitempty"`
	Radius   float64        `json:"radius,omitempty"`
	Axis     *physics.Vec2  `json:"axis,omitempty"`
	P1       *physics.Vec2  `json:"p1,omitempty"`
	P2       *physics.Vec2  `json:"p2,omitempty"`
	Color    physics.Color  `json:"color"`
}

// PlatformInfoMessage encodes the on-connect platform list.
func PlatformInfoMessage(platforms []data.PlatformInfo) ([]byte, error) {
	if platforms == nil {
		platforms = []data.PlatformInfo{}
	}
	return Encode(ActionPlatformInfo, platforms)
}

// StarPositionMessage encodes one star position update.
func StarPositionMessage(pos StarPosition) ([]byte, error) {
	return Encode(ActionStarPosition, pos)
}

// ColliderInfoMessage encodes one collider primitive.
func ColliderInfoMessage(c Collider) ([]byte, error) {
	return Encode(ActionColliderInfo, c)
}

// ClearColliderInfoMessage is the end-of-frame signal for debug viewers.
func ClearColliderInfoMessage() []byte {
	return EncodeNull(ActionClearColliderInfo)
}
