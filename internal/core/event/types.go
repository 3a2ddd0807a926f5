package event

// --- Connection lifecycle events (emitted by the lifecycle handler) ---

type ClientConnected struct {
	ConnID     string
	RemoteAddr string
}

type ClientDisconnected struct {
	ConnID string
}

// DebugSubscriptionChanged is emitted for every accepted debug toggle.
type DebugSubscriptionChanged struct {
	ConnID  string
	Enabled bool
}

// DebugModeChanged is emitted when the global debug mode flips.
type DebugModeChanged struct {
	Active      bool
	Subscribers int
}
