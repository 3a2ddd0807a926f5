package world

import (
	"errors"
	"fmt"

	uuid "github.com/satori/go.uuid"
)

// ErrUnknownConnection is returned for operations on ids that are not live.
var ErrUnknownConnection = errors.New("unknown connection")

// Conn is the borrowed transport handle. Send must not block.
type Conn interface {
	Send(data []byte)
}

// ConnState is a connection's position in its lifecycle:
// Connected -> Subscribed | Unsubscribed -> Closed.
type ConnState int

const (
	StateConnected    ConnState = iota // registered, never toggled
	StateSubscribed                    // last asked for debug output
	StateUnsubscribed                  // last declined debug output
	StateClosed                        // removed; terminal
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateSubscribed:
		return "Subscribed"
	case StateUnsubscribed:
		return "Unsubscribed"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Connection is the registry's record of one live transport connection.
type Connection struct {
	ID    string
	Conn  Conn
	State ConnState
}

// Registry tracks live connections and the debug-subscribed subset.
// Accessed only from the game loop goroutine, no mutex needed.
type Registry struct {
	conns     map[string]*Connection
	debug     map[string]*Connection
	debugMode bool
	newID     func() string
}

func NewRegistry() *Registry {
	return NewRegistryWithIDs(func() string { return uuid.NewV4().String() })
}

// NewRegistryWithIDs uses gen for connection ids. gen may repeat; Add
// retries until it gets an id that is not live.
func NewRegistryWithIDs(gen func() string) *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		debug: make(map[string]*Connection),
		newID: gen,
	}
}

// GlobalMode is the debug-mode rule: on iff anyone is subscribed.
func GlobalMode(subscribers int) bool {
	return subscribers > 0
}

// recompute applies GlobalMode to the current subscription set and reports
// whether the global mode changed. Every mutation goes through here.
func (r *Registry) recompute() bool {
	mode := GlobalMode(len(r.debug))
	changed := mode != r.debugMode
	r.debugMode = mode
	return changed
}

// Add registers c under a fresh id and returns the id.
func (r *Registry) Add(c Conn) string {
	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = r.newID()
	}
	r.conns[id] = &Connection{ID: id, Conn: c, State: StateConnected}
	return id
}

// Remove drops the connection and its subscription. It reports whether
// the global debug mode changed as a result. Unknown ids are a no-op.
func (r *Registry) Remove(id string) bool {
	rec, ok := r.conns[id]
	if !ok {
		return false
	}
	rec.State = StateClosed
	delete(r.conns, id)
	delete(r.debug, id)
	return r.recompute()
}

// SetDebugSubscribed records the connection's latest debug preference and
// reports whether the global debug mode changed.
func (r *Registry) SetDebugSubscribed(id string, enabled bool) (bool, error) {
	rec, ok := r.conns[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownConnection, id)
	}
	if enabled {
		rec.State = StateSubscribed
		r.debug[id] = rec
	} else {
		rec.State = StateUnsubscribed
		delete(r.debug, id)
	}
	return r.recompute(), nil
}

// DebugMode reports whether any live connection is debug-subscribed.
func (r *Registry) DebugMode() bool {
	return r.debugMode
}

// State returns the lifecycle state of a live connection.
func (r *Registry) State(id string) (ConnState, bool) {
	rec, ok := r.conns[id]
	if !ok {
		return StateClosed, false
	}
	return rec.State, true
}

// IsSubscribed reports whether id is in the debug subscription set.
func (r *Registry) IsSubscribed(id string) bool {
	_, ok := r.debug[id]
	return ok
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []Conn {
	out := make([]Conn, 0, len(r.conns))
	for _, rec := range r.conns {
		out = append(out, rec.Conn)
	}
	return out
}

// DebugSubscribers returns a snapshot of the debug-subscribed connections.
func (r *Registry) DebugSubscribers() []Conn {
	out := make([]Conn, 0, len(r.debug))
	for _, rec := range r.debug {
		out = append(out, rec.Conn)
	}
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int { return len(r.conns) }

// SubscriberCount returns the size of the debug subscription set.
func (r *Registry) SubscriberCount() int { return len(r.debug) }
