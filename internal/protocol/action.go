package protocol

// Action is the tag of a message envelope. The wire strings are the ones the
// browser front-end listens for.
type Action string

// Server -> client.
const (
	ActionPlatformInfo      Action = "scPlatformInfo"
	ActionStarPosition      Action = "scStarPosition"
	ActionColliderInfo      Action = "scColliderInfo"
	ActionClearColliderInfo Action = "scClearColliderInfo"
)

// Client -> server.
const (
	ActionToggleDebugMode Action = "csToggleDebugMode"
)

func (a Action) String() string { return string(a) }
